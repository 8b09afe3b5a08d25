package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/devices"
	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

type fakePersister struct {
	devices map[string]domain.DeviceRecord
	err     error
}

func (f *fakePersister) Load(context.Context) (map[string]domain.DeviceRecord, error) {
	return f.devices, f.err
}

func (f *fakePersister) Save(context.Context, map[string]domain.DeviceRecord) error { return nil }

func TestDeviceSyncer_Sync(t *testing.T) {
	p := &fakePersister{devices: map[string]domain.DeviceRecord{
		"ua-1": {Name: "Kitchen iPad", Color: "#ff0000", FirstSeen: time.Now()},
	}}
	reg := devices.NewRegistry(p, logger.NewNop())

	if err := NewDeviceSyncer(reg, logger.NewNop()).Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	rec, ok := reg.Get("ua-1")
	if !ok || rec.Name != "Kitchen iPad" || rec.ID != "ua-1" {
		t.Errorf("Expected loaded device, got %+v (found=%v)", rec, ok)
	}
}

func TestDeviceSyncer_SyncError(t *testing.T) {
	p := &fakePersister{err: errors.New("redis down")}
	reg := devices.NewRegistry(p, logger.NewNop())

	if err := NewDeviceSyncer(reg, logger.NewNop()).Sync(context.Background()); err == nil {
		t.Error("Expected error from failing persister")
	}
	if reg.Count() != 0 {
		t.Errorf("Expected empty registry, got %d devices", reg.Count())
	}
}
