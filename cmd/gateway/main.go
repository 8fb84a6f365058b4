package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/essenca/essenca-gateway/config"
	"github.com/essenca/essenca-gateway/internal/auth"
	"github.com/essenca/essenca-gateway/internal/dispatch"
	"github.com/essenca/essenca-gateway/internal/gateway"
	"github.com/essenca/essenca-gateway/internal/ledger"
	"github.com/essenca/essenca-gateway/internal/provider"
	"github.com/essenca/essenca-gateway/internal/provider/gemini"
	"github.com/essenca/essenca-gateway/internal/provider/openai"
	"github.com/essenca/essenca-gateway/internal/provider/relay"
	"github.com/essenca/essenca-gateway/internal/seeder"
	"github.com/essenca/essenca-gateway/internal/settings"
	"github.com/essenca/essenca-gateway/internal/telemetry"
	"github.com/essenca/essenca-gateway/internal/token"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Println("WARNING: JWT_SECRET is unset, using the default secret")
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("essenca-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init stores
	userStore := auth.NewPostgresStore(pool)
	ledgerStore := ledger.NewPostgresStore(pool)
	settingsStore := settings.NewCachedStore(settings.NewPostgresStore(pool), rdb)

	// 6. Init auth
	codec := token.NewCodec(cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(codec, userStore, rdb)

	// 7. Init the configured provider backend
	var generator provider.Generator
	switch cfg.Provider {
	case "openai":
		generator = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case "relay":
		generator = relay.New(cfg.RelayURL, cfg.RelayToken)
	default:
		generator = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	dispatcher := dispatch.New(generator, cfg.ProviderTimeout)
	log.Printf("AI provider: %s", dispatcher.ProviderName())

	// 8. Init handler
	tracer := otel.GetTracerProvider().Tracer("essenca-gateway")
	handler := gateway.NewHandler(codec, userStore, ledgerStore, settingsStore, dispatcher, rdb, tracer)

	// 9. Seed admin account and default controls if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedAdmin(ctx, userStore)
		seeder.SeedControls(ctx, settingsStore)
	}

	// 10. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"essenca-gateway"}`))
	})
	r.Post("/v1/register", handler.HandleRegister)
	r.Post("/v1/token", handler.HandleToken)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/process", handler.HandleProcess)
		r.Get("/v1/balance", handler.HandleBalance)
		r.Get("/v1/user/me", handler.HandleMe)
		r.Get("/v1/user/activity", handler.HandleActivity)
		r.Post("/v1/user/change-password", handler.HandleChangePassword)
		r.Post("/v1/user/change-username", handler.HandleChangeUsername)

		r.Group(func(r chi.Router) {
			r.Use(gateway.RequireAdmin)
			r.Post("/v1/admin/test", handler.HandleTestProvider)
			r.Post("/v1/admin/users/{id}/balance", handler.HandleSetBalance)
			r.Get("/v1/admin/analytics/summary", handler.HandleAnalyticsSummary)
			r.Get("/v1/admin/analytics/daily", handler.HandleAnalyticsDaily)
		})
	})

	// 11. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Essenca Gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
