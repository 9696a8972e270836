// Package auth tracks who the visitor is and moves their guest history on login.
package auth

import (
	"context"
	"sync"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/session"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/rs/zerolog/log"
)

// Sealer protects the token while it sits in storage
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Gate holds the authentication state of one visitor.
// No credential is verified here; callers decide who logs in.
type Gate struct {
	mu            sync.Mutex
	storage       *storage.Adapter
	sealer        Sealer
	user          *domain.User
	token         string
	authenticated bool
}

// Option configures a Gate
type Option func(*Gate)

// WithSealer encrypts the persisted token
func WithSealer(s Sealer) Option {
	return func(g *Gate) { g.sealer = s }
}

// NewGate creates a logged-out gate over adapter
func NewGate(adapter *storage.Adapter, opts ...Option) *Gate {
	g := &Gate{storage: adapter}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Login moves guest sessions into durable storage, then marks the visitor
// as authenticated. It returns the number of sessions moved. The owner of the
// session store must hold off guest saves until Login returns, or a save
// racing the transfer would write the moved session back.
func (g *Gate) Login(ctx context.Context, user *domain.User, token string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	moved := session.Transfer(ctx, g.storage)

	u := *user
	g.user = &u
	g.token = token
	g.authenticated = true
	g.persist(ctx)

	log.Info().
		Str("user_id", u.ID).
		Str("provider", string(u.Provider)).
		Int("sessions_moved", moved).
		Msg("visitor logged in")

	return moved
}

// Logout forgets the visitor and drops the stored profile. Chat history is
// kept in both scopes.
func (g *Gate) Logout(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.user = nil
	g.token = ""
	g.authenticated = false
	g.storage.Remove(ctx, storage.KeyUserData, storage.Durable)
}

// Restore reloads a persisted login. It reports whether one was found.
func (g *Gate) Restore(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	profile, ok := storage.Get[domain.AuthProfile](ctx, g.storage, storage.KeyUserData, storage.Durable)
	if !ok || !profile.IsAuthenticated || profile.User == nil {
		return false
	}

	token := profile.Token
	if g.sealer != nil && token != "" {
		opened, err := g.sealer.Open(token)
		if err != nil {
			log.Warn().Err(err).Msg("stored auth token could not be opened")
			return false
		}
		token = opened
	}

	g.user = profile.User
	g.token = token
	g.authenticated = true
	return true
}

func (g *Gate) persist(ctx context.Context) {
	token := g.token
	if g.sealer != nil && token != "" {
		sealed, err := g.sealer.Seal(token)
		if err != nil {
			log.Error().Err(err).Msg("failed to seal auth token")
			return
		}
		token = sealed
	}

	g.storage.Set(ctx, storage.KeyUserData, domain.AuthProfile{
		User:            g.user,
		Token:           token,
		IsAuthenticated: g.authenticated,
	}, storage.Durable)
}

// IsAuthenticated reports whether a visitor is logged in
func (g *Gate) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Profile returns a copy of the current state
func (g *Gate) Profile() domain.AuthProfile {
	g.mu.Lock()
	defer g.mu.Unlock()

	var user *domain.User
	if g.user != nil {
		u := *g.user
		user = &u
	}
	return domain.AuthProfile{User: user, Token: g.token, IsAuthenticated: g.authenticated}
}
