// Package service ties the feed, the device registry, the interaction log
// and the broadcast coordinator together. Every mutation validates first,
// then changes state, records a log line and finally queues an "update"
// notice without waiting for it to be delivered.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/localdrop/internal/broadcast"
	"github.com/MrSnakeDoc/localdrop/internal/devices"
	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/feed"
	"github.com/MrSnakeDoc/localdrop/internal/interactionlog"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/metrics"
	"github.com/MrSnakeDoc/localdrop/internal/scheduler"
	"github.com/MrSnakeDoc/localdrop/internal/uploads"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

// Options wires a Service. Persister, Uploads and InteractionLog are
// optional.
type Options struct {
	Logger         logger.Logger
	Persister      devices.Persister
	Uploads        *uploads.Store
	InteractionLog interactionlog.Sink
	Broadcast      broadcast.Options
	Now            func() time.Time
}

// PostInput is one submission. At least one of Text or File is required.
type PostInput struct {
	DeviceID string
	Text     string
	File     *domain.FilePayload
}

type Service struct {
	// labelMu orders posts against renames: a post reads the device name
	// and appends under it, a rename changes the record and relabels under
	// it, so no item ends up with a name older than the record.
	labelMu sync.Mutex

	items   *feed.Store
	devices *devices.Registry
	coord   *broadcast.Coordinator
	files   *uploads.Store
	ilog    interactionlog.Sink
	logger  logger.Logger
	now     func() time.Time
}

// New builds a service and all of its parts. Nothing runs until Start.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.InteractionLog == nil {
		opts.InteractionLog = interactionlog.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		items:   feed.NewStore(),
		devices: devices.NewRegistry(opts.Persister, opts.Logger.With(logger.String("component", "devices"))),
		coord: broadcast.NewCoordinator(broadcast.NewRegistry(),
			opts.Logger.With(logger.String("component", "broadcast")), opts.Broadcast),
		files:  opts.Uploads,
		ilog:   opts.InteractionLog,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// Start loads persisted devices and starts the notice dispatcher. A failed
// load leaves the registry empty and is only logged.
func (s *Service) Start(ctx context.Context) {
	if err := scheduler.NewDeviceSyncer(s.devices, s.logger).Sync(ctx); err != nil {
		s.logger.Warn("failed to load devices, starting with an empty registry",
			logger.Error(err))
	}
	s.coord.Start(ctx)
}

// DisconnectAll stops the dispatcher and closes every live-update
// subscriber, which ends their streaming handlers. Later subscribers are
// closed as soon as they register.
func (s *Service) DisconnectAll() int {
	closed := s.coord.CloseAll()
	if closed > 0 {
		s.logger.Info("closed live-update subscribers", logger.Int("count", closed))
	}
	return closed
}

// Shutdown disconnects every subscriber and closes the interaction log.
// It is safe to call after DisconnectAll.
func (s *Service) Shutdown() {
	s.DisconnectAll()

	utils.MustClose(s.ilog, "interaction log", s.logger)
}

// Feed exposes the item store to background jobs.
func (s *Service) Feed() *feed.Store { return s.items }

// Uploads returns the file store, or nil when uploads are disabled.
func (s *Service) Uploads() *uploads.Store { return s.files }

// Mutations

// StoreUpload writes an uploaded file and returns the payload to attach to
// a PostInput.
func (s *Service) StoreUpload(r io.Reader, originalName, mimeType string) (*domain.FilePayload, error) {
	if s.files == nil {
		return nil, domain.InvalidInput("file uploads are disabled")
	}
	stored, err := s.files.Save(r, originalName)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return &domain.FilePayload{
		StoredName:   stored.Name,
		OriginalName: stored.OriginalName,
		MimeType:     mimeType,
		Size:         stored.Size,
	}, nil
}

// PostItem adds the submission to the feed. Text and file from one post
// become two items sharing the same timestamp.
func (s *Service) PostItem(ctx context.Context, in PostInput) ([]domain.Item, error) {
	hasText := strings.TrimSpace(in.Text) != ""
	if !hasText && in.File == nil {
		s.mutation("post", false)
		return nil, domain.InvalidInput("text or file is required")
	}

	s.labelMu.Lock()
	dev, _ := s.devices.GetOrCreate(ctx, in.DeviceID)
	createdAt := s.now()

	newItem := func(kind domain.ItemKind) domain.Item {
		return domain.Item{
			ID:         uuid.NewString(),
			Kind:       kind,
			DeviceID:   dev.ID,
			DeviceName: dev.Name,
			Color:      dev.Color,
			CreatedAt:  createdAt,
		}
	}

	posted := make([]domain.Item, 0, 2)
	if hasText {
		item := newItem(domain.KindText)
		item.Text = &domain.TextPayload{Content: in.Text}
		posted = append(posted, item)
	}
	if in.File != nil {
		item := newItem(domain.KindFile)
		file := *in.File
		item.File = &file
		posted = append(posted, item)
	}

	for _, item := range posted {
		s.items.Append(item)
	}
	s.labelMu.Unlock()

	for _, item := range posted {
		switch item.Kind {
		case domain.KindText:
			s.record("Text added by %s: %s", dev.Name, preview(item.Text.Content))
		case domain.KindFile:
			s.record("File added by %s: %s (%d bytes)", dev.Name, item.File.OriginalName, item.File.Size)
		}
	}

	s.mutation("post", true)
	s.notify()
	return posted, nil
}

// DeleteItem removes one item and, for file items, its stored file.
func (s *Service) DeleteItem(_ context.Context, id string) error {
	item, ok := s.items.Get(id)
	if !ok || !s.items.Remove(id) {
		s.mutation("delete_item", false)
		return domain.NotFound("item", id)
	}

	s.removeStoredFile(item)
	s.record("Item %s deleted (posted by %s)", id, item.DeviceName)

	s.mutation("delete_item", true)
	s.notify()
	return nil
}

// ClearAll empties the feed and returns how many items were removed. It
// succeeds and notifies viewers on an empty feed too.
func (s *Service) ClearAll(_ context.Context) int {
	removed := s.items.Clear()
	for _, item := range removed {
		s.removeStoredFile(item)
	}
	s.record("All items cleared (%d removed)", len(removed))

	s.mutation("clear", true)
	s.notify()
	return len(removed)
}

// RenameDevice changes a device name and relabels the items it posted.
func (s *Service) RenameDevice(ctx context.Context, id, name string) (domain.DeviceRecord, error) {
	s.labelMu.Lock()
	rec, err := s.devices.Rename(ctx, id, name)
	if err != nil {
		s.labelMu.Unlock()
		s.mutation("rename_device", false)
		return domain.DeviceRecord{}, err
	}
	relabelled := s.items.RelabelByDevice(id, rec.Name)
	s.labelMu.Unlock()

	s.record("Device %s renamed to %s (%d items relabelled)", id, rec.Name, relabelled)

	s.mutation("rename_device", true)
	s.notify()
	return rec, nil
}

// DeleteDevice forgets a device. Items it posted keep their snapshot.
func (s *Service) DeleteDevice(ctx context.Context, id string) (domain.DeviceRecord, error) {
	rec, err := s.devices.Delete(ctx, id)
	if err != nil {
		s.mutation("delete_device", false)
		return domain.DeviceRecord{}, err
	}

	s.record("Device %s deleted (%s)", rec.Name, id)

	s.mutation("delete_device", true)
	s.notify()
	return rec, nil
}

// Reads

// ListItems returns the feed, newest first.
func (s *Service) ListItems() []domain.Item { return s.items.List() }

// ListDevices returns every known device.
func (s *Service) ListDevices() map[string]domain.DeviceRecord { return s.devices.ListAll() }

// Identify returns the record of the calling device, registering it on first
// contact. A new device changes the device list, so viewers are notified.
func (s *Service) Identify(ctx context.Context, deviceID string) domain.DeviceRecord {
	rec, created := s.devices.GetOrCreate(ctx, deviceID)
	if created {
		metrics.Devices.Set(float64(s.devices.Count()))
		s.record("New device connected: %s", rec.Name)
		s.notify()
	}
	return rec
}

// Subscribe registers a live-update subscriber.
func (s *Service) Subscribe(sub broadcast.Subscriber) int { return s.coord.Subscribe(sub) }

// Unsubscribe removes a subscriber. Safe to call more than once.
func (s *Service) Unsubscribe(id string) { s.coord.Unsubscribe(id) }

// Subscribers returns the number of open subscribers.
func (s *Service) Subscribers() int { return s.coord.Count() }

// Files lists the upload directory for the gallery page.
func (s *Service) Files() ([]uploads.FileInfo, error) {
	if s.files == nil {
		return nil, nil
	}
	return s.files.List()
}

// Storage reports disk usage of the upload directory.
func (s *Service) Storage() (uploads.Usage, error) {
	if s.files == nil {
		return uploads.Usage{}, domain.InvalidInput("file uploads are disabled")
	}
	return s.files.Usage()
}

// helpers

func (s *Service) notify() {
	s.coord.Notify(domain.UpdateNotice())
}

// record appends to the interaction log. Failures never fail the mutation.
func (s *Service) record(format string, args ...any) {
	if err := s.ilog.Append(fmt.Sprintf(format, args...)); err != nil {
		s.logger.Warn("failed to write interaction log",
			logger.Error(domain.TransientIO("append interaction log", err)))
	}
}

func (s *Service) mutation(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	metrics.MutationsTotal.WithLabelValues(op, result).Inc()
	metrics.Items.Set(float64(s.items.Count()))
	metrics.Devices.Set(float64(s.devices.Count()))
}

func (s *Service) removeStoredFile(item domain.Item) {
	if item.File == nil || s.files == nil {
		return
	}
	if err := s.files.Remove(item.File.StoredName); err != nil {
		s.logger.Warn("failed to remove stored file",
			logger.String("item_id", item.ID),
			logger.String("file", item.File.StoredName),
			logger.Error(err))
	}
}

// preview shortens text for the interaction log.
func preview(text string) string {
	const limit = 60
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return text
}
