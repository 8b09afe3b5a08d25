package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *zapcore.Level
	}{
		{"debug", levelPtr(zapcore.DebugLevel)},
		{"info", levelPtr(zapcore.InfoLevel)},
		{" WARN ", levelPtr(zapcore.WarnLevel)},
		{"error", levelPtr(zapcore.ErrorLevel)},
		{"fatal", nil},
		{"verbose", nil},
		{"", levelPtr(zapcore.InfoLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseLevel(tt.in)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			case *got != *tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestChildLoggersCarryContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := wrap(zap.New(core)).Named("broadcast").With(String("subscriber", "abc"))

	l.Info("pushed", Int("count", 2), Bool("ok", true))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "broadcast" {
		t.Errorf("logger name = %q", e.LoggerName)
	}
	fields := e.ContextMap()
	if fields["subscriber"] != "abc" || fields["count"] != int64(2) || fields["ok"] != true {
		t.Errorf("fields = %v", fields)
	}
}

func levelPtr(l zapcore.Level) *zapcore.Level { return &l }
