package redis

import (
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

func toStored(rec domain.DeviceRecord) storedDevice {
	return storedDevice{
		Name:      rec.Name,
		Color:     rec.Color,
		FirstSeen: rec.FirstSeen.UnixMilli(),
	}
}

func fromStored(id string, sd storedDevice) domain.DeviceRecord {
	return domain.DeviceRecord{
		ID:        id,
		Name:      sd.Name,
		Color:     sd.Color,
		FirstSeen: time.UnixMilli(sd.FirstSeen),
	}
}
