package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rrens/ddoksori/internal/api"
	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/logger"
	"github.com/Rrens/ddoksori/internal/repository"
	"github.com/Rrens/ddoksori/internal/repository/redis"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logFile, err := logger.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting ddoksori consultation API server")

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	// Initialize storage
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	backends, err := repository.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer backends.Close()

	// Initialize workspaces
	var registryOpts []workspace.Option
	registryOpts = append(registryOpts,
		workspace.WithExpiry(cfg.Session.Expiry),
		workspace.WithGuestTimestamp(cfg.Session.IncludeGuestTimestamp),
		workspace.WithIdleTTL(cfg.Session.WorkspaceIdleTTL),
	)
	if cfg.Auth.EncryptionKey != "" {
		registryOpts = append(registryOpts, workspace.WithSealer(security.NewEncryptorFromSecret(cfg.Auth.EncryptionKey)))
	} else {
		log.Warn().Msg("ENCRYPTION_KEY is empty, auth tokens are stored unsealed")
	}

	root := storage.NewAdapter(backends.Durable, backends.Ephemeral)
	registry := workspace.NewRegistry(root, registryOpts...)

	scheduler, err := workspace.NewScheduler(registry, cfg.Session.GuestPollInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create workspace scheduler")
	}
	scheduler.Start()

	deps := api.Dependencies{
		Registry:   registry,
		Storage:    backends,
		LLMRouter:  api.NewLLMRouter(cfg.LLM),
		JWTManager: security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL),
	}

	if cfg.Security.RateLimit.Enabled {
		if backends.Redis == nil {
			client, err := redis.NewClient(cfg.Redis)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis for rate limiting")
			}
			defer client.Close()
			backends.Redis = client
		}
		deps.RateLimiter = redis.NewRateLimiter(
			backends.Redis,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Initialize router
	router := api.NewRouter(cfg, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	scheduler.Stop(ctx)

	log.Info().Msg("Server stopped")
}
