package feed

import (
	"sort"
	"sync"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

// Store is the volatile item feed. Every method is safe for concurrent use
// and applies atomically with respect to the other methods.
type Store struct {
	mu    sync.RWMutex
	items map[string]*domain.Item // ID -> Item
	seq   uint64
}

// NewStore creates an empty feed.
func NewStore() *Store {
	return &Store{
		items: make(map[string]*domain.Item),
	}
}

// List returns copies of all items, newest first.
// Sorting on every call is fine for a LAN-sized feed; a maintained
// ordered structure would be the next step if that stops being true.
func (s *Store) List() []domain.Item {
	s.mu.RLock()
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

// Append adds an item. The store assigns its tie-break sequence.
func (s *Store) Append(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	item.Seq = s.seq
	s.items[item.ID] = &item
}

// Get returns a copy of the item with the given ID.
func (s *Store) Get(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, false
	}
	return *item, true
}

// Remove deletes an item and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Clear empties the feed and returns the removed items.
func (s *Store) Clear() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		removed = append(removed, *item)
	}
	s.items = make(map[string]*domain.Item)
	return removed
}

// RelabelByDevice rewrites the display name snapshot of every item posted
// by deviceID and returns how many were touched.
func (s *Store) RelabelByDevice(deviceID, newName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.items {
		if item.DeviceID == deviceID {
			item.DeviceName = newName
			n++
		}
	}
	return n
}

// Count returns the number of items in the feed.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// StoredNames returns the stored file names referenced by file items.
func (s *Store) StoredNames() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]bool)
	for _, item := range s.items {
		if item.File != nil {
			names[item.File.StoredName] = true
		}
	}
	return names
}
