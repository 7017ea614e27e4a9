// BridgeText - Workplace Communication Coach Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/bridgetext/coach/internal/api"
	"github.com/bridgetext/coach/internal/coach"
	"github.com/bridgetext/coach/internal/config"
	"github.com/bridgetext/coach/internal/generation"
	"github.com/bridgetext/coach/internal/identity"
	"github.com/bridgetext/coach/internal/middleware"
	"github.com/bridgetext/coach/internal/retrieval"
	"github.com/bridgetext/coach/internal/safety"
	"github.com/bridgetext/coach/internal/store"
	"github.com/bridgetext/coach/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Wire the AI pipeline (optional). A missing key or unreachable backend
	// degrades to a store-only server rather than failing startup.
	var (
		engine    *coach.Engine
		retriever *retrieval.QdrantRetriever
	)
	aiEnabled := false
	if cfg.AIEnabled() {
		generator, err := generation.NewGemini(context.Background(), generation.Config{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			Temperature:     0.6,
			MaxOutputTokens: 256,
		}, logger)
		if err != nil {
			slog.Warn("Failed to initialize generator, AI features will be disabled", "error", err)
		} else {
			embedder, err := retrieval.NewGenAIEmbedder(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.EmbeddingModel)
			if err != nil {
				slog.Warn("Failed to initialize embedder, AI features will be disabled", "error", err)
			} else {
				retriever, err = retrieval.NewQdrantRetriever(context.Background(), retrieval.Config{
					Host:       cfg.Qdrant.Host,
					Port:       cfg.Qdrant.Port,
					APIKey:     cfg.Qdrant.APIKey,
					UseTLS:     cfg.Qdrant.UseTLS,
					Collection: cfg.Qdrant.Collection,
				}, embedder, logger)
				if err != nil {
					slog.Warn("Failed to connect to vector store, AI features will be disabled", "error", err)
				} else {
					defer func() {
						if closeErr := retriever.Close(); closeErr != nil {
							slog.Error("Failed to close retriever", "error", closeErr)
						}
					}()
					engine = coach.NewEngine(repo, safety.NewLexiconClassifier(), retriever, generator, coach.EngineConfig{
						MessageLimit:   cfg.MessageLimit,
						RequestTimeout: cfg.RequestTimeout,
					}, logger)
					aiEnabled = true
					slog.Info("AI pipeline ready", "model", generator.Model(), "collection", cfg.Qdrant.Collection)
				}
			}
		}
	}
	if !aiEnabled {
		slog.Info("AI features disabled (GEMINI_API_KEY not set or backend unreachable)")
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cfg.FrontendURL)
	chatHandler := api.NewChatHandler(baseHandler, engine)

	var healthRetriever api.HealthChecker
	if retriever != nil {
		healthRetriever = retriever
	}
	healthHandler := api.NewHealthHandler(repo, healthRetriever, aiEnabled, 5*time.Second)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	chatHandler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
