package redis

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/logger"
)

func validOptions() ConnectOptions {
	return ConnectOptions{
		Addr:           "127.0.0.1:1",
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    20 * time.Millisecond,
		WarnThreshold:  1,
		DialTimeout:    20 * time.Millisecond,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectOptions)
		wantErr bool
	}{
		{"valid", func(*ConnectOptions) {}, false},
		{"missing addr", func(o *ConnectOptions) { o.Addr = "" }, true},
		{"zero connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }, true},
		{"zero retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }, true},
		{"zero max wait", func(o *ConnectOptions) { o.MaxWait = 0 }, true},
		{"zero ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }, true},
		{"negative warn threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			if err := opts.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGivesUpAfterTimeout(t *testing.T) {
	start := time.Now()
	client, err := New(context.Background(), validOptions(), logger.NewNop())
	if err == nil {
		_ = client.Close()
		t.Fatal("New() against a closed port should fail")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("New() took %v, expected to stop near ConnectTimeout", elapsed)
	}
}
