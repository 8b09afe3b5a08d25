package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/uploads"
)

const (
	// DefaultSweepGrace protects files that were just written and whose item
	// may not be in the feed yet.
	DefaultSweepGrace = 10 * time.Minute
)

// ReferenceSource reports the stored file names still used by the feed.
type ReferenceSource interface {
	StoredNames() map[string]bool
}

// UploadSweeper removes uploaded files that no item references anymore.
// The feed does not survive a restart, so files from earlier runs end up
// here.
type UploadSweeper struct {
	files    *uploads.Store
	refs     ReferenceSource
	logger   logger.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewUploadSweeper creates a new upload sweeper
func NewUploadSweeper(
	files *uploads.Store,
	refs ReferenceSource,
	log logger.Logger,
	interval time.Duration,
	grace time.Duration,
) *UploadSweeper {
	if grace == 0 {
		grace = DefaultSweepGrace
	}

	return &UploadSweeper{
		files:    files,
		refs:     refs,
		logger:   log,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every interval
func (us *UploadSweeper) Start(ctx context.Context) error {
	if _, err := us.Sweep(ctx); err != nil {
		us.logger.Warn("initial upload sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(us.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := us.Sweep(ctx); err != nil {
					us.logger.Error("upload sweep failed",
						logger.Error(err))
				}
			case <-us.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (us *UploadSweeper) Stop() {
	close(us.stopCh)
}

// Sweep deletes unreferenced files older than the grace period and returns
// how many were removed.
func (us *UploadSweeper) Sweep(ctx context.Context) (int, error) {
	files, err := us.files.List()
	if err != nil {
		return 0, err
	}

	refs := us.refs.StoredNames()
	cutoff := us.now().Add(-us.grace)
	removed := 0

	for _, f := range files {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if refs[f.Name] || f.ModTime.After(cutoff) {
			continue
		}

		if err := us.files.Remove(f.Name); err != nil {
			us.logger.Warn("failed to remove orphaned upload",
				logger.String("file", f.Name),
				logger.Error(err))
			continue
		}

		us.logger.Info("removed orphaned upload",
			logger.String("file", f.Name),
			logger.Int64("size", f.Size),
			logger.String("age", us.now().Sub(f.ModTime).Round(time.Second).String()))
		removed++
	}

	if removed > 0 {
		us.logger.Info("upload sweep completed",
			logger.Int("removed", removed))
	} else {
		us.logger.Debug("no orphaned uploads to remove")
	}

	return removed, nil
}
