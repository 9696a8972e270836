package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/Rrens/ddoksori/internal/consult"
	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SendMessageRequest carries one user message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// ChatHandler handles consultation endpoints
type ChatHandler struct {
	consultService *consult.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(consultService *consult.Service) *ChatHandler {
	return &ChatHandler{consultService: consultService}
}

func chatType(w http.ResponseWriter, r *http.Request) (domain.ChatType, bool) {
	t := domain.ChatType(chi.URLParam(r, "chatType"))
	if !t.Valid() {
		response.BadRequest(w, "chat type must be dispute or general")
		return "", false
	}
	return t, true
}

// New starts a fresh conversation in both modes
func (h *ChatHandler) New(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	ws.Lock()
	defer ws.Unlock()

	ws.Store.StartNewChat()
	response.OK(w, ws.Store.State())
}

// State returns the client's full chat state
func (h *ChatHandler) State(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	response.OK(w, ws.Store.State())
}

// Messages returns the live conversation of a mode
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	t, ok := chatType(w, r)
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"chatType": t,
		"messages": ws.Store.Messages(t),
	})
}

// Send posts a user message and returns the reply
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	t, ok := chatType(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !decode(w, r, &req) {
		return
	}

	exchange, err := h.consultService.Send(r.Context(), ws, t, req.Content)
	if err != nil {
		if errors.Is(err, consult.ErrEmptyMessage) || errors.Is(err, consult.ErrInvalidChatType) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, exchange)
}

// SubmitForm posts the dispute intake form
func (h *ChatHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	var form domain.DisputeForm
	if !decode(w, r, &form) {
		return
	}

	exchange, err := h.consultService.SubmitDisputeForm(r.Context(), ws, form)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	response.OK(w, exchange)
}
