package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/metrics"
)

const (
	DefaultPushTimeout = 3 * time.Second
	DefaultNotifyWait  = time.Second
	DefaultQueueSize   = 64
)

// Options tunes the coordinator. Zero values fall back to the defaults.
type Options struct {
	PushTimeout time.Duration // per-subscriber budget for one push
	NotifyWait  time.Duration // how long Notify may wait for queue room
	QueueSize   int
}

// Result summarizes one fan-out round.
type Result struct {
	Attempted int
	Delivered int
	Pruned    int
}

// Coordinator pushes notices to every registered subscriber.
//
// Mutations call Notify, which only enqueues. A single dispatcher goroutine
// drains the queue and runs Broadcast, so notices leave in the order they
// were queued and no caller waits on delivery.
type Coordinator struct {
	registry    *Registry
	logger      logger.Logger
	pushTimeout time.Duration
	notifyWait  time.Duration

	queue     chan domain.Notice
	stopCh    chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewCoordinator creates a coordinator over reg.
func NewCoordinator(reg *Registry, log logger.Logger, opts Options) *Coordinator {
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = DefaultPushTimeout
	}
	if opts.NotifyWait <= 0 {
		opts.NotifyWait = DefaultNotifyWait
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Coordinator{
		registry:    reg,
		logger:      log,
		pushTimeout: opts.PushTimeout,
		notifyWait:  opts.NotifyWait,
		queue:       make(chan domain.Notice, opts.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

// Start runs the dispatcher until Stop is called or ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.dispatch(ctx)
	})
}

// Stop halts the dispatcher. Queued notices that were not dispatched yet
// are discarded.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Coordinator) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Coordinator) dispatch(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case n := <-c.queue:
			if n.Event == domain.EventConnectionsUpdate {
				// The count may have moved since the notice was queued.
				n = domain.ConnectionsNotice(c.registry.Count())
			}
			c.Broadcast(ctx, n)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Notify queues n for delivery and returns without waiting for it. It
// reports false when the notice had to be dropped.
func (c *Coordinator) Notify(n domain.Notice) bool {
	if c.stopped() {
		return false
	}

	select {
	case c.queue <- n:
		return true
	default:
	}

	timer := time.NewTimer(c.notifyWait)
	defer timer.Stop()

	select {
	case c.queue <- n:
		return true
	case <-timer.C:
	case <-c.stopCh:
	}

	metrics.NoticesDroppedTotal.Inc()
	c.logger.Warn("dispatch queue full, notice dropped",
		logger.String("event", n.Event),
		logger.Duration("waited", c.notifyWait))
	return false
}

// Broadcast pushes n to every subscriber registered at call time. Pushes run
// concurrently, each bounded by the push timeout. A subscriber whose push
// fails is removed and closed once the round is over, and the remaining
// viewers then get the new connection count.
func (c *Coordinator) Broadcast(ctx context.Context, n domain.Notice) Result {
	subs := c.registry.Snapshot()
	res := Result{Attempted: len(subs)}
	metrics.BroadcastsTotal.WithLabelValues(n.Event).Inc()
	if len(subs) == 0 {
		return res
	}

	failed := make([]bool, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub Subscriber) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.pushTimeout)
			defer cancel()
			if err := sub.Push(pctx, n); err != nil {
				failed[i] = true
				c.logger.Debug("push failed, subscriber will be pruned",
					logger.String("subscriber", sub.ID()),
					logger.Error(err))
			}
		}(i, sub)
	}
	wg.Wait()

	for i, sub := range subs {
		if !failed[i] {
			res.Delivered++
			continue
		}
		if _, ok := c.registry.Remove(sub.ID()); ok {
			sub.Close()
			res.Pruned++
		}
	}

	metrics.PushesTotal.WithLabelValues("delivered").Add(float64(res.Delivered))
	metrics.PushesTotal.WithLabelValues("failed").Add(float64(res.Attempted - res.Delivered))

	if res.Pruned > 0 {
		count := c.registry.Count()
		metrics.PrunedTotal.Add(float64(res.Pruned))
		metrics.Subscribers.Set(float64(count))
		c.logger.Info("pruned dead subscribers",
			logger.Int("pruned", res.Pruned),
			logger.Int("remaining", count))
		if count > 0 {
			c.Broadcast(ctx, domain.ConnectionsNotice(count))
		}
	}

	return res
}

// Subscribe registers sub and announces the new connection count. Once the
// coordinator is stopped, sub is closed right away instead.
func (c *Coordinator) Subscribe(sub Subscriber) int {
	if c.stopped() {
		sub.Close()
		return c.registry.Count()
	}
	count := c.registry.Add(sub)
	if c.stopped() {
		// CloseAll may have drained the registry between the check and Add.
		if _, ok := c.registry.Remove(sub.ID()); ok {
			sub.Close()
		}
		return c.registry.Count()
	}
	metrics.Subscribers.Set(float64(count))
	c.logger.Debug("subscriber connected",
		logger.String("subscriber", sub.ID()),
		logger.Int("count", count))
	c.Notify(domain.ConnectionsNotice(count))
	return count
}

// Unsubscribe removes and closes the subscriber. It is safe to call more
// than once, and for subscribers already pruned by a broadcast.
func (c *Coordinator) Unsubscribe(id string) bool {
	sub, ok := c.registry.Remove(id)
	if !ok {
		return false
	}
	sub.Close()

	count := c.registry.Count()
	metrics.Subscribers.Set(float64(count))
	c.logger.Debug("subscriber disconnected",
		logger.String("subscriber", id),
		logger.Int("count", count))
	c.Notify(domain.ConnectionsNotice(count))
	return true
}

// Count returns the number of open subscribers.
func (c *Coordinator) Count() int {
	return c.registry.Count()
}

// CloseAll stops the dispatcher and closes every subscriber.
func (c *Coordinator) CloseAll() int {
	c.Stop()
	subs := c.registry.Drain()
	for _, sub := range subs {
		sub.Close()
	}
	metrics.Subscribers.Set(0)
	return len(subs)
}
