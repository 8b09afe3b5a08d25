package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8)"
)

func newTestStore(t *testing.T) (*DeviceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDeviceStore(client), mr
}

func testDevices() map[string]domain.DeviceRecord {
	seen := time.UnixMilli(1_700_000_000_000)
	return map[string]domain.DeviceRecord{
		iphoneUA:  {ID: iphoneUA, Name: "iPhone", Color: "#e74c3c", FirstSeen: seen},
		androidUA: {ID: androidUA, Name: "Android", Color: "#3498db", FirstSeen: seen.Add(time.Minute)},
	}
}

func TestDeviceStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	want := testDevices()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() returned %d devices, want %d", len(got), len(want))
	}
	for id, w := range want {
		g, ok := got[id]
		if !ok {
			t.Errorf("device %q missing after Load()", id)
			continue
		}
		if g.ID != w.ID || g.Name != w.Name || g.Color != w.Color || !g.FirstSeen.Equal(w.FirstSeen) {
			t.Errorf("device %q = %+v, want %+v", id, g, w)
		}
	}
}

func TestDeviceStoreLoadEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() on empty redis = %v", got)
	}
}

func TestDeviceStoreSaveRemovesDeleted(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	devices := testDevices()

	if err := s.Save(ctx, devices); err != nil {
		t.Fatal(err)
	}
	delete(devices, androidUA)
	if err := s.Save(ctx, devices); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if mr.Exists(DeviceKey(androidUA)) {
		t.Error("record of deleted device still stored")
	}
	if member, _ := mr.IsMember(AllDevicesKey(), androidUA); member {
		t.Error("deleted device still in the index set")
	}
	if !mr.Exists(DeviceKey(iphoneUA)) {
		t.Error("record of kept device was removed")
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[androidUA]; ok || len(got) != 1 {
		t.Errorf("Load() after delete = %v", got)
	}
}

func TestDeviceStoreRename(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	devices := testDevices()

	if err := s.Save(ctx, devices); err != nil {
		t.Fatal(err)
	}
	rec := devices[iphoneUA]
	rec.Name = "Kitchen phone"
	devices[iphoneUA] = rec
	if err := s.Save(ctx, devices); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[iphoneUA].Name != "Kitchen phone" {
		t.Errorf("renamed device loaded as %q", got[iphoneUA].Name)
	}
}

func TestDeviceStoreLoadSkipsDanglingIndexEntry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testDevices()); err != nil {
		t.Fatal(err)
	}
	// Index entry whose record is gone.
	if _, err := mr.SAdd(AllDevicesKey(), "ghost"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := got["ghost"]; ok {
		t.Error("dangling index entry produced a device")
	}
	if len(got) != 2 {
		t.Errorf("Load() returned %d devices, want 2", len(got))
	}
}

func TestDeviceStoreLoadRejectsCorruptRecord(t *testing.T) {
	s, mr := newTestStore(t)

	if _, err := mr.SAdd(AllDevicesKey(), iphoneUA); err != nil {
		t.Fatal(err)
	}
	if err := mr.Set(DeviceKey(iphoneUA), "{not json"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(context.Background()); err == nil {
		t.Error("Load() of a corrupt record should fail")
	}
}

func TestDeviceStoreUnreachable(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	if _, err := s.Load(context.Background()); err == nil {
		t.Error("Load() against a stopped server should fail")
	}
	if err := s.Save(context.Background(), testDevices()); err == nil {
		t.Error("Save() against a stopped server should fail")
	}
}
