package handler

import (
	"net/http"

	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login signs the client in with a social provider profile
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	var input domain.UserLogin
	if !decode(w, r, &input) {
		return
	}

	result, err := h.authService.Login(r.Context(), ws, input)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, result)
}

// Logout signs the client out; chat history is kept
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	h.authService.Logout(r.Context(), ws)
	response.NoContent(w)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	profile := ws.Gate.Profile()
	response.OK(w, map[string]any{
		"user":            profile.User,
		"isAuthenticated": profile.IsAuthenticated,
	})
}
