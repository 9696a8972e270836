package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/rs/zerolog/log"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, int, time.Time, error)
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting per client. It must run after ClientContext.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := GetClientID(r.Context())
		if !ok {
			response.InternalError(w, "missing client context")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), clientID)
		if err != nil {
			// If rate limiter fails, allow the request but log the error
			log.Warn().Err(err).Str("client_id", clientID).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))

		if !allowed {
			response.TooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
