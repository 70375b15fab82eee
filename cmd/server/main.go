package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/MrSCAN/hobbyist-haven-api/internal/config"
	"github.com/MrSCAN/hobbyist-haven-api/internal/db"
	identityrepo "github.com/MrSCAN/hobbyist-haven-api/internal/identity/repository"
	identityservice "github.com/MrSCAN/hobbyist-haven-api/internal/identity/service"
	"github.com/MrSCAN/hobbyist-haven-api/internal/logger"
	"github.com/MrSCAN/hobbyist-haven-api/internal/metrics"
	projectrepo "github.com/MrSCAN/hobbyist-haven-api/internal/project/repository"
	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/middleware"
	"github.com/MrSCAN/hobbyist-haven-api/internal/telemetry/otel"
	userhandler "github.com/MrSCAN/hobbyist-haven-api/internal/user/handler"
	userrepo "github.com/MrSCAN/hobbyist-haven-api/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.Env)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "hobbyist-haven-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	var verifier userhandler.WebhookVerifier
	if cfg.ClerkWebhookSecret != "" {
		v, err := security.NewWebhookVerifier(cfg.ClerkWebhookSecret)
		if err != nil {
			log.Fatalf("webhook secret: %v", err)
		}
		verifier = v
	} else {
		slog.Warn("CLERK_WEBHOOK_SECRET is empty; webhook deliveries are not verified")
	}

	users := userrepo.NewPostgresRepository(database)
	identities := identityrepo.NewPostgresRepository(database)
	projects := projectrepo.NewPostgresRepository(database)
	auth := identityservice.NewAuthService(users, identities, hasher, tokens)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer limiter.Stop()

	router := server.NewRouter(server.RouterDeps{
		Tokens:          tokens,
		Users:           users,
		Auth:            auth,
		UserStore:       users,
		ProviderSync:    auth,
		WebhookVerifier: verifier,
		ProjectStore:    projects,
		Metrics:         metrics.NewCollector(),
		RateLimiter:     limiter,
		RequestTimeout:  cfg.RequestTimeout(),
	})

	if err := server.Run(ctx, cfg.HTTPAddr, router); err != nil {
		log.Fatalf("server: %v", err)
	}
	slog.Info("server stopped")
}
