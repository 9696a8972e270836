package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Rrens/ddoksori/internal/fingerprint"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/google/uuid"
)

type contextKey string

const (
	ClientIDKey  contextKey = "clientID"
	WorkspaceKey contextKey = "workspace"
)

const (
	ClientIDHeader = "X-Client-ID"
	ClientCookie   = "ddoksori_client"

	maxClientIDLength = 128
	clientCookieTTL   = 365 * 24 * time.Hour
)

// ClientContext resolves the calling client and its workspace. Clients
// without an id get a fresh one, returned in both the header and a cookie.
func ClientContext(registry *workspace.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIDFrom(r)
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookie,
					Value:    clientID,
					Path:     "/",
					Expires:  time.Now().Add(clientCookieTTL),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(ClientIDHeader, clientID)

			ws := registry.Get(r.Context(), clientID, fingerprint.FromRequest(r))

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			ctx = context.WithValue(ctx, WorkspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIDFrom(r *http.Request) string {
	id := r.Header.Get(ClientIDHeader)
	if id == "" {
		if c, err := r.Cookie(ClientCookie); err == nil {
			id = c.Value
		}
	}
	if !validClientID(id) {
		return ""
	}
	return id
}

// validClientID accepts ids made of letters, digits, '-', '_' and '.'. The id
// becomes a storage namespace, so the namespace separator ':' must never
// appear in it.
func validClientID(id string) bool {
	if id == "" || len(id) > maxClientIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// GetClientID gets the client ID from context
func GetClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientIDKey).(string)
	return id, ok
}

// GetWorkspace gets the client's workspace from context
func GetWorkspace(ctx context.Context) (*workspace.Workspace, bool) {
	ws, ok := ctx.Value(WorkspaceKey).(*workspace.Workspace)
	return ws, ok
}
