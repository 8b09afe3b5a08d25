// Package version carries build metadata, set at link time with
// -ldflags "-X github.com/MrSnakeDoc/localdrop/internal/version.Version=v0.1.0".
package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"  // ex: v0.1.0
	Commit    = "none" // ex: abcd123
	BuildDate = ""     // ex: 2025-08-11T18:42:00Z; empty means unknown
)

// Info is the build of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Short is the one-line form used in startup logs.
func (i Info) Short() string {
	s := i.Version + " (" + i.Commit
	if i.BuildDate != "" {
		if t, err := time.Parse(time.RFC3339, i.BuildDate); err == nil {
			s += ", built " + t.Format("2006-01-02")
		}
	}
	return s + ", " + i.GoVersion + ")"
}
