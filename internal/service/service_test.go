package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/broadcast"
	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/uploads"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8)"
)

type memSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (m *memSink) Append(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lines = append(m.lines, msg)
	return nil
}

func (m *memSink) Close() error { return nil }

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

type failingPersister struct{}

func (failingPersister) Load(context.Context) (map[string]domain.DeviceRecord, error) {
	return nil, errors.New("disk gone")
}

func (failingPersister) Save(context.Context, map[string]domain.DeviceRecord) error {
	return errors.New("disk gone")
}

type harness struct {
	svc  *Service
	sink *memSink
	sub  *broadcast.ChannelSubscriber
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	sink := &memSink{}
	if opts.InteractionLog == nil {
		opts.InteractionLog = sink
	}
	opts.Logger = logger.NewNop()

	svc := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		svc.Shutdown()
		cancel()
	})

	sub := broadcast.NewChannelSubscriber("test", 32)
	svc.Subscribe(sub)
	return &harness{svc: svc, sink: sink, sub: sub}
}

// expectUpdate waits for the next "update" notice, skipping connection counts.
func (h *harness) expectUpdate(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-h.sub.Notices():
			if n.Event == domain.EventUpdate {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for an update notice")
		}
	}
}

// expectNoUpdate fails if an "update" notice shows up shortly.
func (h *harness) expectNoUpdate(t *testing.T) {
	t.Helper()
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case n := <-h.sub.Notices():
			if n.Event == domain.EventUpdate {
				t.Fatal("unexpected update notice")
			}
		case <-deadline:
			return
		}
	}
}

func TestPostListDeleteScenario(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	posted, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "hi"})
	if err != nil {
		t.Fatalf("PostItem() error = %v", err)
	}
	h.expectUpdate(t)

	items := h.svc.ListItems()
	if len(items) != 1 {
		t.Fatalf("ListItems() len = %d, want 1", len(items))
	}
	got := items[0]
	if got.Kind != domain.KindText || got.Text.Content != "hi" || got.DeviceName != "iPhone" {
		t.Errorf("item = %+v", got)
	}
	if got.Color == "" {
		t.Error("item has no color")
	}

	if err := h.svc.DeleteItem(ctx, posted[0].ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	h.expectUpdate(t)

	if n := len(h.svc.ListItems()); n != 0 {
		t.Errorf("ListItems() after delete len = %d", n)
	}
	if h.sink.count() != 2 {
		t.Errorf("interaction log has %d lines, want 2", h.sink.count())
	}
}

func TestPostTextAndFileSharesTimestamp(t *testing.T) {
	h := newHarness(t, Options{})

	posted, err := h.svc.PostItem(context.Background(), PostInput{
		DeviceID: androidUA,
		Text:     "see attached",
		File:     &domain.FilePayload{StoredName: "1-abc-a.png", OriginalName: "a.png", MimeType: "image/png", Size: 3},
	})
	if err != nil {
		t.Fatalf("PostItem() error = %v", err)
	}
	if len(posted) != 2 {
		t.Fatalf("PostItem() created %d items, want 2", len(posted))
	}
	if !posted[0].CreatedAt.Equal(posted[1].CreatedAt) {
		t.Error("text and file items have different timestamps")
	}
	if posted[0].ID == posted[1].ID {
		t.Error("text and file items share an id")
	}

	// Same timestamp: the later insertion comes first.
	items := h.svc.ListItems()
	if items[0].Kind != domain.KindFile || items[1].Kind != domain.KindText {
		t.Errorf("order = %s, %s", items[0].Kind, items[1].Kind)
	}
}

func TestPostRejectsEmpty(t *testing.T) {
	h := newHarness(t, Options{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := h.svc.PostItem(context.Background(), PostInput{DeviceID: iphoneUA, Text: text})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("PostItem(%q) error = %v, want invalid input", text, err)
		}
	}
	h.expectNoUpdate(t)

	if n := len(h.svc.ListItems()); n != 0 {
		t.Errorf("rejected post changed the feed: %d items", n)
	}
	if len(h.svc.ListDevices()) != 0 {
		t.Error("rejected post registered a device")
	}
}

func TestDeleteUnknownItem(t *testing.T) {
	h := newHarness(t, Options{})

	err := h.svc.DeleteItem(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteItem() error = %v, want not found", err)
	}
	h.expectNoUpdate(t)
}

func TestClearAllOnEmptyFeed(t *testing.T) {
	h := newHarness(t, Options{})

	if n := h.svc.ClearAll(context.Background()); n != 0 {
		t.Errorf("ClearAll() = %d, want 0", n)
	}
	h.expectUpdate(t)
}

func TestRenamePropagatesToItems(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: androidUA, Text: "two"}); err != nil {
		t.Fatal(err)
	}

	rec, err := h.svc.RenameDevice(ctx, iphoneUA, "  Ana's phone ")
	if err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}
	if rec.Name != "Ana's phone" {
		t.Errorf("renamed record = %+v", rec)
	}

	for _, item := range h.svc.ListItems() {
		switch item.DeviceID {
		case iphoneUA:
			if item.DeviceName != "Ana's phone" {
				t.Errorf("item from renamed device still labelled %q", item.DeviceName)
			}
		case androidUA:
			if item.DeviceName != "Android" {
				t.Errorf("unrelated item relabelled to %q", item.DeviceName)
			}
		}
	}
}

func TestRenameDuringPostRelabelsNewItem(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	// The second post stalls between reading the device and appending.
	now := func() time.Time {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			close(entered)
			<-release
		}
		return time.Now()
	}

	h := newHarness(t, Options{Now: now})
	ctx := context.Background()

	if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "first"}); err != nil {
		t.Fatal(err)
	}

	posted := make(chan error, 1)
	go func() {
		_, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "second"})
		posted <- err
	}()
	<-entered

	renamed := make(chan error, 1)
	go func() {
		_, err := h.svc.RenameDevice(ctx, iphoneUA, "New")
		renamed <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := <-posted; err != nil {
		t.Fatalf("PostItem() error = %v", err)
	}
	if err := <-renamed; err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}

	for _, item := range h.svc.ListItems() {
		if item.DeviceName != "New" {
			t.Errorf("item %q labelled %q, device record is %q", item.Text.Content, item.DeviceName, "New")
		}
	}
}

func TestRenameRejections(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.svc.Identify(ctx, iphoneUA)
	h.expectUpdate(t)

	if _, err := h.svc.RenameDevice(ctx, iphoneUA, "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty name error = %v, want invalid input", err)
	}
	if _, err := h.svc.RenameDevice(ctx, "nobody", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown device error = %v, want not found", err)
	}
	h.expectNoUpdate(t)

	if rec := h.svc.ListDevices()[iphoneUA]; rec.Name != "iPhone" {
		t.Errorf("failed rename changed the record: %+v", rec)
	}
}

func TestDeleteDeviceKeepsItemSnapshots(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "keep me"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.DeleteDevice(ctx, iphoneUA); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := h.svc.DeleteDevice(ctx, iphoneUA); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteDevice() error = %v, want not found", err)
	}

	items := h.svc.ListItems()
	if len(items) != 1 || items[0].DeviceName != "iPhone" {
		t.Errorf("items after device delete = %+v", items)
	}
}

func TestIdentifyRegistersOnce(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	first := h.svc.Identify(ctx, "")
	second := h.svc.Identify(ctx, "")
	if first.ID != domain.UnknownDeviceID || first != second {
		t.Errorf("Identify() = %+v then %+v", first, second)
	}
	if len(h.svc.ListDevices()) != 1 {
		t.Errorf("devices = %d, want 1", len(h.svc.ListDevices()))
	}
}

func TestPersistenceFailureDoesNotFailMutation(t *testing.T) {
	h := newHarness(t, Options{Persister: failingPersister{}})
	ctx := context.Background()

	if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, Text: "x"}); err != nil {
		t.Fatalf("PostItem() error = %v", err)
	}
	if _, err := h.svc.RenameDevice(ctx, iphoneUA, "Mine"); err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}
	if got := h.svc.ListDevices()[iphoneUA].Name; got != "Mine" {
		t.Errorf("in-memory name = %q, want Mine", got)
	}
}

func TestInteractionLogFailureIsIgnored(t *testing.T) {
	sink := &memSink{err: errors.New("read-only fs")}
	h := newHarness(t, Options{InteractionLog: sink})

	if _, err := h.svc.PostItem(context.Background(), PostInput{DeviceID: iphoneUA, Text: "x"}); err != nil {
		t.Fatalf("PostItem() error = %v", err)
	}
	h.expectUpdate(t)
}

func TestUploadLifecycle(t *testing.T) {
	files, err := uploads.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, Options{Uploads: files})
	ctx := context.Background()

	payload, err := h.svc.StoreUpload(strings.NewReader("png-bytes"), "cat.png", "image/png")
	if err != nil {
		t.Fatalf("StoreUpload() error = %v", err)
	}
	posted, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, File: payload})
	if err != nil {
		t.Fatal(err)
	}

	listed, _ := h.svc.Files()
	if len(listed) != 1 || listed[0].Name != payload.StoredName {
		t.Fatalf("Files() = %+v", listed)
	}

	if err := h.svc.DeleteItem(ctx, posted[0].ID); err != nil {
		t.Fatal(err)
	}
	listed, _ = h.svc.Files()
	if len(listed) != 0 {
		t.Errorf("stored file survived item delete: %+v", listed)
	}
}

func TestClearAllRemovesFiles(t *testing.T) {
	files, err := uploads.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, Options{Uploads: files})
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		payload, err := h.svc.StoreUpload(strings.NewReader(name), name, "text/plain")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := h.svc.PostItem(ctx, PostInput{DeviceID: iphoneUA, File: payload}); err != nil {
			t.Fatal(err)
		}
	}

	if n := h.svc.ClearAll(ctx); n != 2 {
		t.Errorf("ClearAll() = %d, want 2", n)
	}
	listed, _ := h.svc.Files()
	if len(listed) != 0 {
		t.Errorf("files left after clear: %+v", listed)
	}
}

func TestStoreUploadDisabled(t *testing.T) {
	h := newHarness(t, Options{})
	if _, err := h.svc.StoreUpload(strings.NewReader("x"), "x", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("StoreUpload() error = %v, want invalid input", err)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("a\n\nb   c"); got != "a b c" {
		t.Errorf("preview() = %q", got)
	}
	long := strings.Repeat("é", 100)
	if got := preview(long); len([]rune(got)) != 63 {
		t.Errorf("preview() rune length = %d, want 63", len([]rune(got)))
	}
}
