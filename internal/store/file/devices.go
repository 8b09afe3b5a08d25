package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

// DeviceStore persists the device registry as a single YAML mapping:
//
//	"<device id>":
//	  name: iPhone
//	  color: "#e6194b"
//	  firstSeen: 2025-01-01T10:00:00Z
type DeviceStore struct {
	mu   sync.Mutex
	path string
}

// NewDeviceStore creates a store backed by the file at path. The file is
// created on first save.
func NewDeviceStore(path string) *DeviceStore {
	return &DeviceStore{path: path}
}

// Load reads the mapping. A missing file is an empty registry.
func (s *DeviceStore) Load(_ context.Context) (map[string]domain.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.DeviceRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read devices file: %w", err)
	}

	devices := make(map[string]domain.DeviceRecord)
	if err := yaml.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to parse devices yaml: %w", err)
	}
	for id, rec := range devices {
		rec.ID = id
		devices[id] = rec
	}
	return devices, nil
}

// Save replaces the file contents with devices. The write goes through a
// temp file and a rename so readers never see a truncated file.
func (s *DeviceStore) Save(_ context.Context, devices map[string]domain.DeviceRecord) error {
	data, err := yaml.Marshal(devices)
	if err != nil {
		return fmt.Errorf("failed to marshal devices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create devices dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("failed to write devices file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace devices file: %w", err)
	}
	return nil
}
