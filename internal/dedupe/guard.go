// ABOUTME: Thread-safe one-shot submission IDs for rejecting double form posts.
// ABOUTME: IDs are scoped to a console session and expire after a TTL.

package dedupe

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// guardEntry stores the issue time and list element for an outstanding ID.
type guardEntry struct {
	issued  time.Time
	element *list.Element
}

// Guard hands out submission IDs that can each be redeemed once.
// Uses a doubly-linked list in issue order for O(1) eviction of the oldest
// ID when full.
type Guard struct {
	mu      sync.Mutex
	pending map[string]*guardEntry
	order   *list.List // keys in issue order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a guard whose IDs live for ttl, holding at most maxSize
// outstanding IDs. A background goroutine periodically drops expired IDs.
func New(ttl time.Duration, maxSize int) *Guard {
	g := &Guard{
		pending: make(map[string]*guardEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go g.cleanup()
	return g
}

func key(scope, id string) string {
	return scope + "\x00" + id
}

// Issue returns a fresh submission ID bound to scope.
func (g *Guard) Issue(scope string) string {
	id := uuid.New().String()
	k := key(scope, id)

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) >= g.maxSize {
		g.evictOldest()
	}
	elem := g.order.PushBack(k)
	g.pending[k] = &guardEntry{issued: time.Now(), element: elem}
	return id
}

// Redeem consumes id. It returns true exactly once per issued, unexpired
// ID; replays, expired IDs and IDs from another scope return false.
func (g *Guard) Redeem(scope, id string) bool {
	if id == "" {
		return false
	}
	k := key(scope, id)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.pending[k]
	if !ok {
		return false
	}
	g.order.Remove(entry.element)
	delete(g.pending, k)
	return time.Since(entry.issued) < g.ttl
}

// Len returns the number of outstanding IDs.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// evictOldest removes the oldest outstanding ID. Must be called with mu held.
func (g *Guard) evictOldest() {
	front := g.order.Front()
	if front == nil {
		return
	}
	k, _ := front.Value.(string)
	g.order.Remove(front)
	delete(g.pending, k)
}

// cleanup runs in a background goroutine, periodically removing expired IDs.
func (g *Guard) cleanup() {
	interval := time.Minute
	if g.ttl > 0 && g.ttl < interval {
		interval = g.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.runCleanup()
		case <-g.done:
			return
		}
	}
}

// runCleanup drops expired IDs from the front of the issue order.
func (g *Guard) runCleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for e := g.order.Front(); e != nil; {
		k, _ := e.Value.(string)
		entry := g.pending[k]
		if entry == nil || now.Sub(entry.issued) < g.ttl {
			break
		}
		next := e.Next()
		g.order.Remove(e)
		delete(g.pending, k)
		e = next
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}
