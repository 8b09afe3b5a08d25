package interactionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	sessionNameLayout = "20060102-150405"
	lineTimeLayout    = "2006-01-02 15:04:05"
)

// Sink records human-readable interaction lines.
type Sink interface {
	Append(msg string) error
	Close() error
}

// FileSink writes one session file per process run. Lines look like
//
//	2026-01-02 15:04:05 | Item added by iPhone
type FileSink struct {
	path string
	file *os.File
	core zapcore.Core
	now  func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open creates dir if needed and starts a new session file in it.
func Open(dir string) (*FileSink, error) {
	return open(dir, time.Now)
}

func open(dir string, now func() time.Time) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("session-%s.log", now().Format(sessionNameLayout)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(lineTimeLayout),
		ConsoleSeparator: " | ",
		LineEnding:       zapcore.DefaultLineEnding,
	})

	return &FileSink{
		path: path,
		file: f,
		core: zapcore.NewCore(enc, zapcore.Lock(f), zapcore.DebugLevel),
		now:  now,
	}, nil
}

// Path returns the session file location.
func (s *FileSink) Path() string { return s.path }

// Append writes one line and returns the write error, if any.
func (s *FileSink) Append(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}
	return s.core.Write(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    s.now(),
		Message: msg,
	}, nil)
}

// Close flushes and closes the session file. Further appends fail.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.core.Sync()
	return s.file.Close()
}

// Nop discards every line.
type Nop struct{}

func (Nop) Append(string) error { return nil }
func (Nop) Close() error        { return nil }
