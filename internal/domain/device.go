package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// UnknownDeviceID is used when a client sends no identity at all.
const UnknownDeviceID = "unknown"

// DeviceRecord is the persisted identity of a recognized client.
//
// ID is the raw identity string (the User-Agent). It is a naming
// convenience, not a security boundary.
type DeviceRecord struct {
	ID        string    `json:"id" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Color     string    `json:"color" yaml:"color"`
	FirstSeen time.Time `json:"firstSeen" yaml:"firstSeen"`
}

// Palette is the fixed set of colors handed out to new devices before
// falling back to random ones.
var Palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4",
	"#42d4f4", "#f032e6", "#469990", "#9a6324", "#800000",
	"#808000", "#000075",
}

// NormalizeDeviceID maps an empty identity to UnknownDeviceID.
func NormalizeDeviceID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownDeviceID
	}
	return raw
}

// ClassifyDevice derives a display name from a raw identity string.
func ClassifyDevice(raw string) string {
	ua := strings.ToLower(raw)
	switch {
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "linux"):
		return "Linux Laptop"
	case strings.Contains(ua, "windows"):
		return "Windows PC"
	default:
		return "Unknown Device"
	}
}

// PickColor returns the first palette entry not in use, or a random
// color once the palette is exhausted.
func PickColor(inUse map[string]bool) string {
	for _, c := range Palette {
		if !inUse[c] {
			return c
		}
	}
	return RandomColor()
}

// RandomColor synthesizes a #rrggbb color.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
