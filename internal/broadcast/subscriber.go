package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

// ErrClosed is returned by Push once a subscriber is closed.
var ErrClosed = errors.New("subscriber closed")

// Subscriber is one open push channel. Transport framing (SSE, WebSocket)
// lives behind this interface.
type Subscriber interface {
	ID() string
	// Push delivers n or fails. It must return once ctx is done.
	Push(ctx context.Context, n domain.Notice) error
	Close()
}

// ChannelSubscriber buffers notices for a transport goroutine that drains
// Notices() and writes them to the wire.
type ChannelSubscriber struct {
	id     string
	remote string
	ch     chan domain.Notice
	done   chan struct{}
	once   sync.Once
}

// NewChannelSubscriber creates a subscriber with a fresh handle and room
// for buffer pending notices.
func NewChannelSubscriber(remote string, buffer int) *ChannelSubscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSubscriber{
		id:     xid.New().String(),
		remote: remote,
		ch:     make(chan domain.Notice, buffer),
		done:   make(chan struct{}),
	}
}

func (s *ChannelSubscriber) ID() string { return s.id }

// Remote is the peer address the subscriber connected from.
func (s *ChannelSubscriber) Remote() string { return s.remote }

// Push queues n. A full buffer blocks until ctx is done, which is how a
// stalled reader gets detected and pruned.
func (s *ChannelSubscriber) Push(ctx context.Context, n domain.Notice) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.ch <- n:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("push to %s: %w", s.id, ctx.Err())
	}
}

// Notices is drained by the transport.
func (s *ChannelSubscriber) Notices() <-chan domain.Notice { return s.ch }

// Done is closed when the subscriber is closed.
func (s *ChannelSubscriber) Done() <-chan struct{} { return s.done }

// Close is idempotent. The notice channel is never closed so a racing Push
// cannot panic.
func (s *ChannelSubscriber) Close() {
	s.once.Do(func() { close(s.done) })
}
