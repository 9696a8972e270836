package api

import (
	"net/http"

	"github.com/Rrens/ddoksori/internal/api/handler"
	customMiddleware "github.com/Rrens/ddoksori/internal/api/middleware"
	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/consult"
	"github.com/Rrens/ddoksori/internal/llm"
	"github.com/Rrens/ddoksori/internal/llm/gemini"
	"github.com/Rrens/ddoksori/internal/llm/ollama"
	"github.com/Rrens/ddoksori/internal/llm/simulated"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/service"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Dependencies are the long-lived components the router serves
type Dependencies struct {
	Registry   *workspace.Registry
	Storage    handler.Pinger
	LLMRouter  *llm.Router
	JWTManager *security.JWTManager
	// RateLimiter is optional; requests are not limited when nil
	RateLimiter customMiddleware.Limiter
}

// NewLLMRouter registers every configured reply provider
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	llmRouter := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	llmRouter.RegisterProvider(simulated.NewProvider())

	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.Ollama))
	}
	if cfg.Gemini.APIKey != "" {
		log.Info().Int("key_len", len(cfg.Gemini.APIKey)).Msg("Registering Gemini provider")
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	} else if cfg.DefaultProvider == "gemini" {
		log.Warn().Msg("Gemini API Key is empty, replies fall back to the simulated provider")
	}

	return llmRouter
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMiddleware.ClientIDHeader, "X-Color-Depth", "X-Screen-Size", "X-Timezone-Offset", "X-Canvas-Digest"},
		ExposedHeaders:   []string{"X-Request-ID", customMiddleware.ClientIDHeader, "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	authService := service.NewAuthService(deps.JWTManager)
	consultService := consult.NewService(deps.LLMRouter)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler()
	chatHandler := handler.NewChatHandler(consultService)

	authMiddleware := customMiddleware.NewAuthMiddleware(authService)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Storage))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))

		// Client routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ClientContext(deps.Registry))
			if deps.RateLimiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
			}

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.Login)

				r.Group(func(r chi.Router) {
					r.Use(authMiddleware.Authenticate)
					r.Post("/logout", authHandler.Logout)
					r.Get("/me", authHandler.Me)
				})
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Delete("/", sessionHandler.Delete)
					r.Post("/refresh", sessionHandler.Refresh)
					r.Post("/open", sessionHandler.Open)
				})
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/", chatHandler.State)
				r.Post("/new", chatHandler.New)
				r.Post("/dispute/form", chatHandler.SubmitForm)
				r.Get("/{chatType}/messages", chatHandler.Messages)
				r.Post("/{chatType}/messages", chatHandler.Send)
			})
		})
	})

	return r
}
