// Package workspace keeps one session store and auth gate per client.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/ddoksori/internal/auth"
	"github.com/Rrens/ddoksori/internal/fingerprint"
	"github.com/Rrens/ddoksori/internal/session"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/rs/zerolog/log"
)

// DefaultIdleTTL is how long an untouched workspace stays in memory
const DefaultIdleTTL = 30 * time.Minute

// Workspace is the state of one client.
//
// Store and Gate guard their own fields, but a consultation turn, a login or
// a background reload reads and writes both across several calls. Those run
// between Lock and Unlock so they never interleave for the same client.
type Workspace struct {
	ClientID string
	Store    *session.Store
	Gate     *auth.Gate

	mu       sync.Mutex
	lastSeen time.Time
}

// Lock gives the caller exclusive use of the workspace
func (w *Workspace) Lock() { w.mu.Lock() }

// Unlock releases the workspace
func (w *Workspace) Unlock() { w.mu.Unlock() }

// Registry maps client ids to workspaces. Storage is shared; each workspace
// sees it through an adapter namespaced by its client id.
type Registry struct {
	mu         sync.Mutex
	root       *storage.Adapter
	sealer     auth.Sealer
	expiry     time.Duration
	timestamp  bool
	idleTTL    time.Duration
	now        func() time.Time
	workspaces map[string]*Workspace
}

// Option configures a Registry
type Option func(*Registry)

// WithSealer encrypts persisted auth tokens
func WithSealer(s auth.Sealer) Option {
	return func(r *Registry) { r.sealer = s }
}

// WithExpiry sets the guest session lifetime
func WithExpiry(d time.Duration) Option {
	return func(r *Registry) { r.expiry = d }
}

// WithGuestTimestamp controls whether guest ids carry their creation time
func WithGuestTimestamp(include bool) Option {
	return func(r *Registry) { r.timestamp = include }
}

// WithIdleTTL sets how long an untouched workspace is kept
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) { r.idleTTL = d }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry over root
func NewRegistry(root *storage.Adapter, opts ...Option) *Registry {
	r := &Registry{
		root:       root,
		expiry:     session.DefaultExpiry,
		timestamp:  true,
		idleTTL:    DefaultIdleTTL,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the workspace of clientID, creating it on first use. A new
// workspace restores any persisted login and loads its session list. env
// seeds the guest ids of a new workspace.
func (r *Registry) Get(ctx context.Context, clientID string, env fingerprint.Environment) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if ws, ok := r.workspaces[clientID]; ok {
		ws.lastSeen = now
		return ws
	}

	adapter := r.root.WithNamespace(clientID)
	gen := fingerprint.NewGenerator(
		fingerprint.WithClock(r.now),
		fingerprint.WithTimestamp(r.timestamp),
	)

	store := session.NewStore(adapter,
		session.WithClock(r.now),
		session.WithExpiry(r.expiry),
		session.WithGuestIDFunc(func() string { return gen.Generate(env) }),
	)

	var gateOpts []auth.Option
	if r.sealer != nil {
		gateOpts = append(gateOpts, auth.WithSealer(r.sealer))
	}
	gate := auth.NewGate(adapter, gateOpts...)
	gate.Restore(ctx)
	store.Load(ctx, gate.IsAuthenticated())

	ws := &Workspace{ClientID: clientID, Store: store, Gate: gate, lastSeen: now}
	r.workspaces[clientID] = ws

	log.Debug().Str("client_id", clientID).Bool("authenticated", gate.IsAuthenticated()).Msg("workspace opened")
	return ws
}

// Len returns the number of live workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) snapshot() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		out = append(out, ws)
	}
	return out
}

// SweepGuests reloads every guest workspace so expired sessions are pruned
// from storage and from memory. It returns the number of workspaces reloaded.
func (r *Registry) SweepGuests(ctx context.Context) int {
	swept := 0
	for _, ws := range r.snapshot() {
		if r.sweep(ctx, ws) {
			swept++
		}
	}
	return swept
}

func (r *Registry) sweep(ctx context.Context, ws *Workspace) bool {
	ws.Lock()
	defer ws.Unlock()

	if ws.Gate.IsAuthenticated() {
		return false
	}
	ws.Store.Load(ctx, false)
	return true
}

// EvictIdle drops workspaces not used within the idle ttl. Their data stays
// in storage and is reloaded on the next request.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, ws := range r.workspaces {
		if ws.lastSeen.Before(cutoff) {
			delete(r.workspaces, id)
			evicted++
		}
	}
	return evicted
}

// Tick runs one background pass
func (r *Registry) Tick(ctx context.Context) {
	swept := r.SweepGuests(ctx)
	evicted := r.EvictIdle()

	log.Debug().
		Int("swept", swept).
		Int("evicted", evicted).
		Int("live", r.Len()).
		Msg("workspace tick")
}
