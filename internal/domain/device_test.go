package domain

import (
	"regexp"
	"testing"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "iPhone"},
		{"android wins over linux", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", "Android"},
		{"linux desktop", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0", "Linux Laptop"},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Windows PC"},
		{"mac falls through", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "Unknown Device"},
		{"empty", "", "Unknown Device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDevice(tt.ua); got != tt.want {
				t.Errorf("ClassifyDevice(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}

func TestNormalizeDeviceID(t *testing.T) {
	if got := NormalizeDeviceID("   "); got != UnknownDeviceID {
		t.Errorf("NormalizeDeviceID(blank) = %q, want %q", got, UnknownDeviceID)
	}
	if got := NormalizeDeviceID(" curl/8.0 "); got != "curl/8.0" {
		t.Errorf("NormalizeDeviceID() = %q, want %q", got, "curl/8.0")
	}
}

func TestPickColorPrefersUnused(t *testing.T) {
	inUse := map[string]bool{Palette[0]: true, Palette[1]: true}
	if got := PickColor(inUse); got != Palette[2] {
		t.Errorf("PickColor() = %q, want %q", got, Palette[2])
	}
}

func TestPickColorExhaustedPalette(t *testing.T) {
	inUse := make(map[string]bool, len(Palette))
	for _, c := range Palette {
		inUse[c] = true
	}

	re := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	got := PickColor(inUse)
	if !re.MatchString(got) {
		t.Errorf("PickColor() = %q, want a #rrggbb color", got)
	}
}
