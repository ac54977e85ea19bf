// ABOUTME: Tests for token monotonicity, synchronous fan-out, and coalescing delivery
// ABOUTME: goleak guards the Latest adapter's goroutine

package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBump_StrictlyIncreases(t *testing.T) {
	c := New()
	assert.Equal(t, uint64(0), c.Token())

	for n := 1; n <= 5; n++ {
		before := c.Token()
		for i := 0; i < n; i++ {
			c.Bump()
		}
		assert.Greater(t, c.Token(), before)
	}
	assert.Equal(t, uint64(15), c.Token())
}

func TestBump_ConcurrentIsAtomic(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Bump()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), c.Token())
}

func TestBump_NotifiesSynchronously(t *testing.T) {
	c := New()
	var got []uint64
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		c.Subscribe(func(token uint64) {
			mu.Lock()
			got = append(got, token)
			mu.Unlock()
		})
	}

	token := c.Bump()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{token, token, token}, got)
}

func TestSubscribe_Cancel(t *testing.T) {
	c := New()
	calls := 0
	cancel := c.Subscribe(func(uint64) { calls++ })
	assert.Equal(t, 1, c.Subscribers())

	c.Bump()
	cancel()
	cancel()
	c.Bump()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Subscribers())
}

func TestSubscribe_CancelFromCallback(t *testing.T) {
	c := New()
	var cancel func()
	calls := 0
	cancel = c.Subscribe(func(uint64) {
		calls++
		cancel()
	})

	c.Bump()
	c.Bump()
	assert.Equal(t, 1, calls)
}

func TestLatest_CoalescesBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New()
	ch := c.Latest(ctx)

	for i := 0; i < 5; i++ {
		c.Bump()
	}

	select {
	case token := <-ch:
		assert.Equal(t, uint64(5), token)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}

	select {
	case token := <-ch:
		t.Fatalf("unexpected second delivery %d", token)
	case <-time.After(50 * time.Millisecond):
	}

	c.Bump()
	select {
	case token := <-ch:
		assert.Equal(t, uint64(6), token)
	case <-time.After(time.Second):
		t.Fatal("no delivery after second bump")
	}
}

func TestLatest_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New()
	ch := c.Latest(ctx)
	require.Equal(t, 1, c.Subscribers())

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return c.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
