package payment

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is the delay between status checks.
const DefaultPollInterval = 3 * time.Second

// StatusFunc reports the current status of an order.
type StatusFunc func(ctx context.Context, orderID string) (Status, error)

// StoreStatus adapts a Store to a StatusFunc.
func StoreStatus(s *Store) StatusFunc {
	return func(_ context.Context, orderID string) (Status, error) {
		o, err := s.Get(orderID)
		if err != nil {
			return "", err
		}

		return o.Status, nil
	}
}

// Poller polls one order at a time until it settles. The zero value is not
// usable; create pollers with NewPoller. Pollers are owned by the caller
// and safe for concurrent use.
type Poller struct {
	check    StatusFunc
	interval time.Duration

	mu      sync.Mutex
	onError func(error)
	cur     *poll
}

// poll is one Start call. inCallback is only written by the poll goroutine.
type poll struct {
	cancel     context.CancelFunc
	done       chan struct{}
	inCallback atomic.Bool
}

// stop cancels the poll and waits for it to exit, unless its OnError
// callback is running: that callback may be the caller.
func (c *poll) stop() {
	if c == nil {
		return
	}

	c.cancel()

	if c.inCallback.Load() {
		return
	}

	<-c.done
}

// NewPoller creates a stopped poller. A non-positive interval means
// DefaultPollInterval.
func NewPoller(check StatusFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{check: check, interval: interval}
}

// OnError sets a callback for failed status checks. Failed checks do not
// stop polling. The callback runs on the poll goroutine and may call Start
// or Stop; Stop then returns without waiting for the callback to finish.
func (p *Poller) OnError(fn func(error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// Start polls orderID every interval until its status is final, ctx is
// done or Stop is called. onSettled receives the final status after the
// poll has exited, so it may call Start or Stop. Starting a running poller
// stops the previous poll first.
func (p *Poller) Start(ctx context.Context, orderID string, onSettled func(orderID string, status Status)) {
	ctx, cancel := context.WithCancel(ctx)
	next := &poll{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	prev := p.cur
	p.cur = next
	onError := p.onError
	p.mu.Unlock()

	prev.stop()

	go func() {
		status, settled := p.run(ctx, next, orderID, onError)
		cancel()
		close(next.done)

		if settled && onSettled != nil {
			onSettled(orderID, status)
		}
	}()
}

func (p *Poller) run(ctx context.Context, c *poll, orderID string, onError func(error)) (Status, bool) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
			if ctx.Err() != nil {
				return "", false
			}
		}

		status, err := p.check(ctx, orderID)
		if ctx.Err() != nil {
			return "", false
		}

		if err != nil {
			if onError != nil {
				c.inCallback.Store(true)
				onError(err)
				c.inCallback.Store(false)
			}

			continue
		}

		if status.Final() {
			return status, true
		}
	}
}

// Stop ends the current poll and waits for it to exit. It is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cur := p.cur
	p.cur = nil
	p.mu.Unlock()

	cur.stop()
}

// Running reports whether a poll is in progress.
func (p *Poller) Running() bool {
	p.mu.Lock()
	cur := p.cur
	p.mu.Unlock()

	if cur == nil {
		return false
	}

	select {
	case <-cur.done:
		return false
	default:
		return true
	}
}
