package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/session"
	"github.com/go-chi/chi/v5"
)

// SessionView is a session with its countdown labels
type SessionView struct {
	domain.ChatSession
	TimeRemaining string             `json:"timeRemaining,omitempty"`
	Remaining     *session.Remaining `json:"remaining,omitempty"`
}

type SessionHandler struct {
	now func() time.Time
}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{now: time.Now}
}

func (h *SessionHandler) views(sessions []domain.ChatSession) []SessionView {
	now := h.now()
	out := make([]SessionView, len(sessions))
	for i, s := range sessions {
		out[i] = SessionView{ChatSession: s, Remaining: session.RemainingTime(s.ExpiresAt, now)}
		if s.ExpiresAt != nil {
			out[i].TimeRemaining = session.FormatTimeRemaining(*s.ExpiresAt, now)
		}
	}
	return out
}

// List loads the client's sessions, dropping expired guest sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	ws.Lock()
	defer ws.Unlock()

	sessions := ws.Store.Load(r.Context(), ws.Gate.IsAuthenticated())
	response.OK(w, map[string]any{
		"sessions":         h.views(sessions),
		"currentSessionId": ws.Store.CurrentSessionID(),
		"isAuthenticated":  ws.Gate.IsAuthenticated(),
	})
}

// Delete removes a session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	ws.Lock()
	defer ws.Unlock()

	ws.Store.Delete(r.Context(), chi.URLParam(r, "sessionID"), ws.Gate.IsAuthenticated())
	response.NoContent(w)
}

// Refresh extends a guest session's expiry
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	ws.Lock()
	defer ws.Unlock()

	if ws.Gate.IsAuthenticated() {
		response.BadRequest(w, "saved sessions do not expire")
		return
	}

	id := chi.URLParam(r, "sessionID")
	if !ws.Store.RefreshExpiry(r.Context(), id) {
		response.NotFound(w, "session not found")
		return
	}

	for _, v := range h.views(ws.Store.Sessions()) {
		if v.ID == id {
			response.OK(w, v)
			return
		}
	}
	response.NotFound(w, "session not found")
}

// Open makes a session current and returns its conversation
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	ws.Lock()
	defer ws.Unlock()

	sess, err := ws.Store.Open(chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"session":         h.views([]domain.ChatSession{sess})[0],
		"messages":        ws.Store.Messages(sess.Type),
		"isFormSubmitted": ws.Store.State().IsFormSubmitted,
	})
}
