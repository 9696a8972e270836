package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/service"
)

const ClaimsKey contextKey = "claims"

// AuthMiddleware requires a bearer token issued to the current client
type AuthMiddleware struct {
	authService *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the JWT token against the client's login.
// It must run after ClientContext.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := GetWorkspace(r.Context())
		if !ok {
			response.InternalError(w, "missing client context")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.authService.Verify(ws, parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims gets the verified token claims from context
func GetClaims(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*security.Claims)
	return claims, ok
}
