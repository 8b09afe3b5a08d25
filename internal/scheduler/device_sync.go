package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/localdrop/internal/devices"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/metrics"
)

// DeviceSyncer loads persisted device records into the registry on startup
type DeviceSyncer struct {
	registry *devices.Registry
	logger   logger.Logger
}

// NewDeviceSyncer creates a new device syncer
func NewDeviceSyncer(reg *devices.Registry, log logger.Logger) *DeviceSyncer {
	return &DeviceSyncer{
		registry: reg,
		logger:   log,
	}
}

// Sync loads devices from the persister and replaces the in-memory registry
func (ds *DeviceSyncer) Sync(ctx context.Context) error {
	ds.logger.Info("syncing devices from persistent store")

	count, err := ds.registry.Load(ctx)
	if err != nil {
		return err
	}
	metrics.Devices.Set(float64(count))

	if count == 0 {
		ds.logger.Info("no devices found in persistent store")
		return nil
	}

	ds.logger.Info("synced devices from persistent store",
		logger.Int("count", count))

	return nil
}
