// ABOUTME: Refresh coordinator: a monotonically increasing token with synchronous fan-out
// ABOUTME: Mutating panels Bump it; list panels re-fetch when the token they last saw changes

package refresh

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Coordinator holds the refresh token for one view tree.
type Coordinator struct {
	token atomic.Uint64

	mu          sync.RWMutex
	subscribers map[string]func(uint64)
}

// New creates a coordinator at token 0.
func New() *Coordinator {
	return &Coordinator{
		subscribers: make(map[string]func(uint64)),
	}
}

// Token returns the current token.
func (c *Coordinator) Token() uint64 {
	return c.token.Load()
}

// Bump increments the token and calls every subscriber with the new value
// before returning. Subscribers run in no particular order.
func (c *Coordinator) Bump() uint64 {
	next := c.token.Add(1)

	// Copy under read lock so subscribers may (un)subscribe from the callback
	c.mu.RLock()
	targets := make([]func(uint64), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		targets = append(targets, fn)
	}
	c.mu.RUnlock()

	for _, fn := range targets {
		fn(next)
	}
	return next
}

// Subscribe registers fn for every future Bump. The returned cancel
// removes it and is safe to call more than once.
func (c *Coordinator) Subscribe(fn func(token uint64)) (cancel func()) {
	id := uuid.New().String()

	c.mu.Lock()
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (c *Coordinator) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// Latest returns a channel that delivers the newest token after each burst
// of bumps. Bumps that land before the consumer reads collapse into one
// delivery carrying the highest token. The subscription ends and the
// channel closes when ctx is cancelled.
func (c *Coordinator) Latest(ctx context.Context) <-chan uint64 {
	slot := make(chan uint64, 1)
	out := make(chan uint64)

	var mu sync.Mutex
	cancel := c.Subscribe(func(token uint64) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case prev := <-slot:
			if prev > token {
				token = prev
			}
		default:
		}
		slot <- token
	})

	go func() {
		defer close(out)
		defer cancel()
		for {
			var pending uint64
			select {
			case <-ctx.Done():
				return
			case pending = <-slot:
			}

		deliver:
			for {
				select {
				case newer := <-slot:
					if newer > pending {
						pending = newer
					}
					continue
				default:
				}

				select {
				case out <- pending:
					break deliver
				case newer := <-slot:
					if newer > pending {
						pending = newer
					}
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
