// ABOUTME: Tests for the view tree registry: creation, idle eviction and shutdown
// ABOUTME: Uses an injected clock so eviction is deterministic

package webconsole

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, idle time.Duration, opts ...RegistryOption) (*Registry, *fakeClock, *int) {
	t.Helper()
	builds := 0
	factory := func(_ context.Context, id string) (*viewTree, error) {
		builds++
		return &viewTree{id: id}, nil
	}
	r := NewRegistry(factory, idle, nil, opts...)
	clock := &fakeClock{now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	r.now = clock.Now
	t.Cleanup(r.Close)
	return r, clock, &builds
}

func TestRegistryGetReusesTree(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, _, builds := newTestRegistry(t, time.Hour)
	ctx := context.Background()

	first, err := r.Get(ctx, "a")
	require.NoError(t, err)
	second, err := r.Get(ctx, "a")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *builds)
	assert.Equal(t, 1, r.Len())

	_, err = r.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	r.Close()
}

func TestRegistrySweepEvictsIdleTrees(t *testing.T) {
	var counts []int
	var mu sync.Mutex
	r, clock, builds := newTestRegistry(t, 30*time.Minute, WithOnChange(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}))
	ctx := context.Background()

	_, err := r.Get(ctx, "stale")
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = r.Get(ctx, "fresh")
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	// Touching keeps a tree alive
	_, err = r.Get(ctx, "fresh")
	require.NoError(t, err)
	clock.Advance(29 * time.Minute)
	assert.Equal(t, 0, r.Sweep())

	// An evicted ID is rebuilt on its next request
	_, err = r.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, 3, *builds)

	mu.Lock()
	assert.Equal(t, []int{1, 2, 1, 2}, counts)
	mu.Unlock()
}

func TestRegistryFactoryError(t *testing.T) {
	boom := errors.New("store unavailable")
	r := NewRegistry(func(context.Context, string) (*viewTree, error) {
		return nil, boom
	}, time.Hour, nil)
	defer r.Close()

	_, err := r.Get(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r, _, _ := newTestRegistry(t, time.Hour)

	_, err := r.Get(context.Background(), "a")
	require.NoError(t, err)
	r.Remove("a")
	r.Remove("missing")
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := NewRegistry(func(_ context.Context, id string) (*viewTree, error) {
		return &viewTree{id: id}, nil
	}, time.Hour, nil)

	_, err := r.Get(context.Background(), "a")
	require.NoError(t, err)

	r.Close()
	r.Close()
	assert.Equal(t, 0, r.Len())

	_, err = r.Get(context.Background(), "a")
	assert.Error(t, err)
}

func TestRegistryJanitorRunsOnTick(t *testing.T) {
	ran := make(chan struct{}, 1)
	r := NewRegistry(func(_ context.Context, id string) (*viewTree, error) {
		return &viewTree{id: id}, nil
	}, 10*time.Millisecond, nil, WithJanitor(func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	defer r.Close()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not run")
	}
}

func TestRegistrySlowBuildDoesNotBlockOtherIDs(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	builds := map[string]int{}

	r := NewRegistry(func(_ context.Context, id string) (*viewTree, error) {
		mu.Lock()
		builds[id]++
		mu.Unlock()
		if id == "slow" {
			close(started)
			<-release
		}
		return &viewTree{id: id}, nil
	}, time.Hour, nil)
	defer r.Close()

	slow := make(chan *viewTree, 1)
	go func() {
		t, err := r.Get(context.Background(), "slow")
		if err == nil {
			slow <- t
		}
		close(slow)
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := r.Get(context.Background(), "fast")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Get for another ID waited on a slow build")
	}

	close(release)
	tree, ok := <-slow
	require.True(t, ok)
	assert.Equal(t, "slow", tree.id)
	assert.Equal(t, 2, r.Len())

	again, err := r.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Same(t, tree, again)

	mu.Lock()
	assert.Equal(t, 1, builds["slow"])
	mu.Unlock()
}
