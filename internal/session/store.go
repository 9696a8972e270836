// Package session owns the chat session list of one visitor and mediates all
// of its reads and writes to storage.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/fingerprint"
	"github.com/Rrens/ddoksori/internal/storage"
)

// DefaultExpiry is how long a guest session lives without a refresh
const DefaultExpiry = 24 * time.Hour

// Greeting opens every new conversation
const Greeting = "안녕하세요! 똑소리 AI 상담입니다. 무엇을 도와드릴까요?"

var ErrSessionNotFound = errors.New("session not found")

// State is a snapshot of the store
type State struct {
	CurrentSessionID string               `json:"currentSessionId,omitempty"`
	ActiveChatType   domain.ChatType      `json:"activeChatType,omitempty"`
	Sessions         []domain.ChatSession `json:"chatSessions"`
	DisputeMessages  []domain.Message     `json:"disputeMessages"`
	GeneralMessages  []domain.Message     `json:"generalMessages"`
	IsFormSubmitted  bool                 `json:"isFormSubmitted"`
}

// Store holds the session list, the active session pointer and the live
// conversation of each chat mode. Every operation runs under one mutex, so
// read-modify-write cycles against storage never interleave.
type Store struct {
	mu         sync.Mutex
	storage    *storage.Adapter
	now        func() time.Time
	expiry     time.Duration
	newGuestID func() string
	state      State
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithExpiry overrides the guest session lifetime
func WithExpiry(d time.Duration) Option {
	return func(s *Store) { s.expiry = d }
}

// WithGuestIDFunc sets how ids for new guest sessions are minted
func WithGuestIDFunc(fn func() string) Option {
	return func(s *Store) { s.newGuestID = fn }
}

// NewStore creates a store over adapter
func NewStore(adapter *storage.Adapter, opts ...Option) *Store {
	s := &Store{
		storage: adapter,
		now:     time.Now,
		expiry:  DefaultExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newGuestID == nil {
		gen := fingerprint.NewGenerator(fingerprint.WithClock(s.now))
		s.newGuestID = func() string { return gen.Generate(fingerprint.Environment{}) }
	}
	s.state.DisputeMessages = greeting(s.now())
	s.state.GeneralMessages = greeting(s.now())
	return s
}

func greeting(now time.Time) []domain.Message {
	return []domain.Message{{
		ID:        1,
		Role:      domain.RoleAI,
		Content:   Greeting,
		Timestamp: now,
	}}
}

func (s *Store) readSessions(ctx context.Context, scope storage.Scope) []domain.ChatSession {
	sessions, _ := storage.Get[[]domain.ChatSession](ctx, s.storage, storage.SessionsKey(scope), scope)
	return sessions
}

func (s *Store) writeSessions(ctx context.Context, scope storage.Scope, sessions []domain.ChatSession) {
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	s.storage.Set(ctx, storage.SessionsKey(scope), sessions, scope)
}

// Load reads the session list for the given authentication state and makes
// it current. Expired guest sessions are dropped and the pruned list is
// written back. Safe to call repeatedly.
func (s *Store) Load(ctx context.Context, authenticated bool) []domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := storage.ScopeFor(authenticated)
	sessions := s.readSessions(ctx, scope)

	if scope == storage.Ephemeral {
		now := s.now()
		live := sessions[:0]
		for _, sess := range sessions {
			if !sess.Expired(now) {
				live = append(live, sess)
			}
		}
		sessions = live
		s.writeSessions(ctx, scope, sessions)
	}

	s.state.Sessions = sessions
	return cloneSessions(sessions)
}

// Save upserts the conversation of chatType and returns the session id.
//
// The id is the current session id when set. Otherwise guests reuse their
// single stored session or get a fresh guest id, and authenticated visitors
// get a timestamp id. Guests never keep more than one session: every other
// entry in the ephemeral list is dropped before the upsert.
func (s *Store) Save(ctx context.Context, chatType domain.ChatType, messages []domain.Message, authenticated bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := storage.ScopeFor(authenticated)
	sessions := s.readSessions(ctx, scope)
	now := s.now()

	id := s.state.CurrentSessionID
	if !authenticated {
		if id == "" {
			if len(sessions) > 0 {
				id = sessions[0].ID
			} else {
				id = s.newGuestID()
			}
		}
		kept := sessions[:0]
		for _, sess := range sessions {
			if sess.ID == id {
				kept = append(kept, sess)
			}
		}
		sessions = kept
	} else if id == "" {
		id = strconv.FormatInt(now.UnixMilli(), 10)
	}

	stored := make([]domain.StoredMessage, len(messages))
	for i, m := range messages {
		stored[i] = m.ToStored()
	}

	row := domain.ChatSession{
		ID:          id,
		Type:        chatType,
		Title:       Title(chatType, messages),
		CreatedAt:   now.UnixMilli(),
		LastUpdated: now.UnixMilli(),
		Messages:    stored,
	}
	if !authenticated {
		expiresAt := now.Add(s.expiry).UnixMilli()
		row.ExpiresAt = &expiresAt
	}

	idx := indexOf(sessions, id)
	if idx >= 0 {
		prev := sessions[idx]
		row.CreatedAt = prev.CreatedAt
		row.ExpiresAt = prev.ExpiresAt
		if row.LastUpdated <= prev.LastUpdated {
			row.LastUpdated = prev.LastUpdated + 1
		}
		sessions[idx] = row
	} else {
		sessions = append([]domain.ChatSession{row}, sessions...)
	}

	s.writeSessions(ctx, scope, sessions)
	s.state.Sessions = sessions
	s.state.CurrentSessionID = id
	return id
}

// Delete removes a session from storage and from the in-memory list.
// Deleting an unknown id leaves storage as it was.
func (s *Store) Delete(ctx context.Context, id string, authenticated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := storage.ScopeFor(authenticated)
	sessions := s.readSessions(ctx, scope)

	kept := make([]domain.ChatSession, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}

	s.writeSessions(ctx, scope, kept)
	s.state.Sessions = kept
	if s.state.CurrentSessionID == id {
		s.state.CurrentSessionID = ""
	}
}

// RefreshExpiry pushes a guest session's expiry a full lifetime into the
// future. It reports whether the session was found; unknown ids change nothing.
func (s *Store) RefreshExpiry(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.readSessions(ctx, storage.Ephemeral)
	idx := indexOf(sessions, id)
	if idx < 0 {
		return false
	}

	now := s.now()
	expiresAt := now.Add(s.expiry).UnixMilli()
	sessions[idx].ExpiresAt = &expiresAt
	sessions[idx].LastUpdated = now.UnixMilli()

	s.writeSessions(ctx, storage.Ephemeral, sessions)
	s.state.Sessions = sessions
	return true
}

// StartNewChat clears the active session and restores both greetings.
// Storage is not touched.
func (s *Store) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.CurrentSessionID = ""
	s.state.ActiveChatType = ""
	s.state.IsFormSubmitted = false
	s.state.DisputeMessages = greeting(now)
	s.state.GeneralMessages = greeting(now)
}

// Open makes a listed session current and restores its conversation
func (s *Store) Open(id string) (domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.state.Sessions, id)
	if idx < 0 {
		return domain.ChatSession{}, ErrSessionNotFound
	}

	sess := s.state.Sessions[idx]
	s.state.CurrentSessionID = sess.ID
	s.state.ActiveChatType = sess.Type
	s.setMessages(sess.Type, sess.LiveMessages())
	if sess.Type == domain.ChatTypeDispute {
		s.state.IsFormSubmitted = len(sess.Messages) > 1
	}
	return cloneSession(sess), nil
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		CurrentSessionID: s.state.CurrentSessionID,
		ActiveChatType:   s.state.ActiveChatType,
		Sessions:         cloneSessions(s.state.Sessions),
		DisputeMessages:  cloneMessages(s.state.DisputeMessages),
		GeneralMessages:  cloneMessages(s.state.GeneralMessages),
		IsFormSubmitted:  s.state.IsFormSubmitted,
	}
}

// Sessions returns the current session list
func (s *Store) Sessions() []domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSessions(s.state.Sessions)
}

// CurrentSessionID returns the active session id, empty when none
func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSessionID
}

// SetCurrentSessionID points the store at a session
func (s *Store) SetCurrentSessionID(id string) {
	s.mu.Lock()
	s.state.CurrentSessionID = id
	s.mu.Unlock()
}

// ActiveChatType returns the active chat mode, empty when unset
func (s *Store) ActiveChatType() domain.ChatType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveChatType
}

// SetActiveChatType sets the active chat mode
func (s *Store) SetActiveChatType(t domain.ChatType) {
	s.mu.Lock()
	s.state.ActiveChatType = t
	s.mu.Unlock()
}

// SetFormSubmitted records whether the dispute intake form was sent
func (s *Store) SetFormSubmitted(submitted bool) {
	s.mu.Lock()
	s.state.IsFormSubmitted = submitted
	s.mu.Unlock()
}

// Messages returns the live conversation of a chat mode
func (s *Store) Messages(t domain.ChatType) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == domain.ChatTypeDispute {
		return cloneMessages(s.state.DisputeMessages)
	}
	return cloneMessages(s.state.GeneralMessages)
}

// SetMessages replaces the live conversation of a chat mode
func (s *Store) SetMessages(t domain.ChatType, messages []domain.Message) {
	s.mu.Lock()
	s.setMessages(t, cloneMessages(messages))
	s.mu.Unlock()
}

func (s *Store) setMessages(t domain.ChatType, messages []domain.Message) {
	if t == domain.ChatTypeDispute {
		s.state.DisputeMessages = messages
		return
	}
	s.state.GeneralMessages = messages
}

func indexOf(sessions []domain.ChatSession, id string) int {
	for i, sess := range sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func cloneSession(sess domain.ChatSession) domain.ChatSession {
	out := sess
	if sess.ExpiresAt != nil {
		v := *sess.ExpiresAt
		out.ExpiresAt = &v
	}
	out.Messages = append([]domain.StoredMessage(nil), sess.Messages...)
	return out
}

func cloneSessions(sessions []domain.ChatSession) []domain.ChatSession {
	out := make([]domain.ChatSession, len(sessions))
	for i, sess := range sessions {
		out[i] = cloneSession(sess)
	}
	return out
}

func cloneMessages(messages []domain.Message) []domain.Message {
	return append([]domain.Message(nil), messages...)
}
