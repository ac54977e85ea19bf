// ABOUTME: Registry of per-browser view trees keyed by console session ID
// ABOUTME: A ticker sweep evicts trees that have been idle past the configured timeout

package webconsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/auth"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/refresh"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// formSlot serializes submits of one form panel.
type formSlot struct {
	mu    sync.Mutex
	state *panels.FormState
}

// viewTree is everything one browser session owns: its auth gateway, an
// API client carrying its token, its refresh coordinator and panel state.
type viewTree struct {
	id      string
	gateway *auth.Gateway
	coord   *refresh.Coordinator
	base    *api.Client
	fetch   panels.FetchOptions

	mu       sync.Mutex
	client   *api.Client
	forms    map[views.PanelID]*formSlot
	lists    map[views.PanelID]*panels.ListState
	lastSeen time.Time

	unsubscribe func()
}

// Session returns the tree's current session, or nil.
func (t *viewTree) Session() *session.Session {
	return t.gateway.Session()
}

// API returns the client carrying the current session's token.
func (t *viewTree) API() *api.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// rebind discards panel state and points the client at the current
// session. Called after every login, signup and logout.
func (t *viewTree) rebind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = t.base
	if s := t.gateway.Session(); s != nil {
		t.client = t.base.WithToken(s.Token)
	}
	t.forms = make(map[views.PanelID]*formSlot)
	t.lists = make(map[views.PanelID]*panels.ListState)
}

// form returns the slot for a form panel, creating fresh state on first use.
func (t *viewTree) form(f *panels.Form) *formSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, ok := t.forms[f.Panel]
	if !ok {
		slot = &formSlot{state: f.NewState(t.gateway.Session())}
		t.forms[f.Panel] = slot
	}
	return slot
}

// list returns the cached list state for a list panel.
func (t *viewTree) list(l *panels.Lister) *panels.ListState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.lists[l.Panel]
	if !ok {
		st = panels.NewListState(l, t.client, t.fetch)
		t.lists[l.Panel] = st
	}
	return st
}

func (t *viewTree) touch(now time.Time) {
	t.mu.Lock()
	t.lastSeen = now
	t.mu.Unlock()
}

func (t *viewTree) idleSince() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

func (t *viewTree) close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

var errRegistryClosed = errors.New("registry closed")

// treeFactory builds the view tree for a console session ID.
type treeFactory func(ctx context.Context, id string) (*viewTree, error)

// Registry maps console session IDs to live view trees.
type Registry struct {
	mu       sync.Mutex
	trees    map[string]*viewTree
	factory  treeFactory
	idle     time.Duration
	onChange func(n int)
	janitor  func()
	logger   *slog.Logger
	now      func() time.Time
	done     chan struct{}
	closed   bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithOnChange is called with the tree count whenever it changes.
func WithOnChange(fn func(n int)) RegistryOption {
	return func(r *Registry) { r.onChange = fn }
}

// WithJanitor runs fn on every sweep tick, after idle trees are evicted.
func WithJanitor(fn func()) RegistryOption {
	return func(r *Registry) { r.janitor = fn }
}

// NewRegistry creates a registry whose trees are evicted after idle
// without a request. A background goroutine sweeps until Close.
func NewRegistry(factory treeFactory, idle time.Duration, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		trees:   make(map[string]*viewTree),
		factory: factory,
		idle:    idle,
		logger:  logger.With("component", "registry"),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.sweeper()
	return r
}

// Get returns the tree for id, building it on first use. The factory runs
// without the registry lock held; when two requests race to build the same
// ID the first insert wins and the other tree is discarded.
func (r *Registry) Get(ctx context.Context, id string) (*viewTree, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errRegistryClosed
	}
	if t, ok := r.trees[id]; ok {
		t.touch(r.now())
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	built, err := r.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("building view tree: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		built.close()
		return nil, errRegistryClosed
	}

	t, ok := r.trees[id]
	if ok {
		built.close()
	} else {
		t = built
		r.trees[id] = t
		r.changed()
		r.logger.Debug("view tree created", "trees", len(r.trees))
	}
	t.touch(r.now())
	return t, nil
}

// Remove drops the tree for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trees[id]; ok {
		t.close()
		delete(r.trees, id)
		r.changed()
	}
}

// Len returns the number of live trees.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trees)
}

// changed reports the tree count. Must be called with mu held.
func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange(len(r.trees))
	}
}

func (r *Registry) sweeper() {
	interval := time.Minute
	if r.idle > 0 && r.idle < interval {
		interval = r.idle
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
			if r.janitor != nil {
				r.janitor()
			}
		case <-r.done:
			return
		}
	}
}

// Sweep evicts every tree idle for longer than the timeout and returns how
// many were evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, t := range r.trees {
		if t.idleSince().Before(cutoff) {
			t.close()
			delete(r.trees, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.changed()
		r.logger.Debug("evicted idle view trees", "count", evicted, "remaining", len(r.trees))
	}
	return evicted
}

// Close stops the sweeper and drops every tree. Safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	for id, t := range r.trees {
		t.close()
		delete(r.trees, id)
	}
	r.changed()
}
