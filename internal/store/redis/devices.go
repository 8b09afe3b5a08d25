package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

// DeviceStore persists device records in Redis as JSON blobs, plus a set
// indexing every known device ID.
type DeviceStore struct {
	client *redis.Client
}

// NewDeviceStore creates a new Redis device store
func NewDeviceStore(client *redis.Client) *DeviceStore {
	return &DeviceStore{
		client: client,
	}
}

// storedDevice is the JSON shape kept under each device key.
type storedDevice struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	FirstSeen int64  `json:"firstSeen"` // unix milliseconds
}

// Load retrieves every device referenced by the index set.
func (s *DeviceStore) Load(ctx context.Context) (map[string]domain.DeviceRecord, error) {
	ids, err := s.client.SMembers(ctx, AllDevicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get device IDs: %w", err)
	}

	devices := make(map[string]domain.DeviceRecord, len(ids))
	if len(ids) == 0 {
		return devices, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, DeviceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			// Index entry without a record, skip it
			continue
		}
		var sd storedDevice
		if err := json.Unmarshal(data, &sd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device %s: %w", ids[i], err)
		}
		devices[ids[i]] = fromStored(ids[i], sd)
	}

	return devices, nil
}

// Save makes Redis hold exactly the given devices.
func (s *DeviceStore) Save(ctx context.Context, devices map[string]domain.DeviceRecord) error {
	existing, err := s.client.SMembers(ctx, AllDevicesKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get device IDs: %w", err)
	}

	pipe := s.client.TxPipeline()

	for _, id := range existing {
		if _, keep := devices[id]; keep {
			continue
		}
		pipe.Del(ctx, DeviceKey(id))
		pipe.SRem(ctx, AllDevicesKey(), id)
	}

	for id, rec := range devices {
		data, err := json.Marshal(toStored(rec))
		if err != nil {
			return fmt.Errorf("failed to marshal device %s: %w", id, err)
		}
		pipe.Set(ctx, DeviceKey(id), data, 0)
		pipe.SAdd(ctx, AllDevicesKey(), id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save devices: %w", err)
	}
	return nil
}
