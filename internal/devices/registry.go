package devices

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

// Persister is the durable side of the registry. Save always receives the
// full mapping.
type Persister interface {
	Load(ctx context.Context) (map[string]domain.DeviceRecord, error)
	Save(ctx context.Context, devices map[string]domain.DeviceRecord) error
}

// Registry maps device identities to display records.
//
// In-memory state is the source of truth for the running process. Every
// mutation is written through to the persister while the write lock is
// held; a failed write is logged and does not undo the mutation.
type Registry struct {
	mu        sync.RWMutex
	devices   map[string]domain.DeviceRecord
	persister Persister
	logger    logger.Logger
	now       func() time.Time
}

// NewRegistry creates an empty registry. A nil persister keeps everything
// in memory.
func NewRegistry(p Persister, log logger.Logger) *Registry {
	return &Registry{
		devices:   make(map[string]domain.DeviceRecord),
		persister: p,
		logger:    log,
		now:       time.Now,
	}
}

// Load replaces the in-memory state with what the persister holds.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.persister == nil {
		return 0, nil
	}
	loaded, err := r.persister.Load(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]domain.DeviceRecord, len(loaded))
	for id, rec := range loaded {
		rec.ID = id
		r.devices[id] = rec
	}
	return len(r.devices), nil
}

// GetOrCreate returns the record for id, creating and persisting one on
// first contact. This is not a pure getter: a miss mutates the registry.
// The boolean reports whether a record was created.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (domain.DeviceRecord, bool) {
	id = domain.NormalizeDeviceID(id)

	if rec, ok := r.Get(id); ok {
		return rec, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created it between the two locks.
	if rec, ok := r.devices[id]; ok {
		return rec, false
	}

	rec := domain.DeviceRecord{
		ID:        id,
		Name:      domain.ClassifyDevice(id),
		Color:     domain.PickColor(r.colorsInUseLocked()),
		FirstSeen: r.now(),
	}
	r.devices[id] = rec
	r.persistLocked(ctx, "create")

	r.logger.Info("new device detected",
		logger.String("device_id", id),
		logger.String("name", rec.Name),
		logger.String("color", rec.Color))

	return rec, true
}

// Get returns the record for id without creating it. id must already be
// normalized.
func (r *Registry) Get(id string) (domain.DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[id]
	return rec, ok
}

// Rename changes the display name of a device and returns the updated record.
func (r *Registry) Rename(ctx context.Context, id, name string) (domain.DeviceRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DeviceRecord{}, domain.InvalidInput("device name must not be empty")
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return domain.DeviceRecord{}, domain.InvalidInput("device name must not contain control characters")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[id]
	if !ok {
		return domain.DeviceRecord{}, domain.NotFound("device", id)
	}
	old := rec.Name
	rec.Name = name
	r.devices[id] = rec
	r.persistLocked(ctx, "rename")

	r.logger.Info("device renamed",
		logger.String("device_id", id),
		logger.String("old_name", old),
		logger.String("new_name", name))

	return rec, nil
}

// Delete removes a device and returns the removed record.
func (r *Registry) Delete(ctx context.Context, id string) (domain.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[id]
	if !ok {
		return domain.DeviceRecord{}, domain.NotFound("device", id)
	}
	delete(r.devices, id)
	r.persistLocked(ctx, "delete")

	r.logger.Info("device deleted",
		logger.String("device_id", id),
		logger.String("name", rec.Name))

	return rec, nil
}

// ListAll returns a snapshot of every record.
func (r *Registry) ListAll() map[string]domain.DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

func (r *Registry) snapshotLocked() map[string]domain.DeviceRecord {
	out := make(map[string]domain.DeviceRecord, len(r.devices))
	for id, rec := range r.devices {
		out[id] = rec
	}
	return out
}

func (r *Registry) colorsInUseLocked() map[string]bool {
	used := make(map[string]bool, len(r.devices))
	for _, rec := range r.devices {
		used[rec.Color] = true
	}
	return used
}

// persistLocked writes the full mapping. Failures are only logged: a crash
// between the in-memory change and a successful write loses that one write.
func (r *Registry) persistLocked(ctx context.Context, op string) {
	if r.persister == nil {
		return
	}
	if err := r.persister.Save(ctx, r.snapshotLocked()); err != nil {
		r.logger.Warn("failed to persist devices",
			logger.String("op", op),
			logger.Error(domain.TransientIO("persist devices", err)))
	}
}
