package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nutcracker-app/nutcracker/internal/api"
	"github.com/nutcracker-app/nutcracker/internal/assets"
	"github.com/nutcracker-app/nutcracker/internal/audit"
	"github.com/nutcracker-app/nutcracker/internal/auth"
	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/database"
	"github.com/nutcracker-app/nutcracker/internal/events"
	"github.com/nutcracker-app/nutcracker/internal/gemini"
	"github.com/nutcracker-app/nutcracker/internal/generation"
	"github.com/nutcracker-app/nutcracker/internal/middleware"
	"github.com/nutcracker-app/nutcracker/internal/quota"
	iredis "github.com/nutcracker-app/nutcracker/internal/redis"
	"github.com/nutcracker-app/nutcracker/internal/server"
	"github.com/nutcracker-app/nutcracker/internal/support"
	"github.com/nutcracker-app/nutcracker/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Event bus — optional; everything downstream tolerates a nil publisher
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())

		auditRepo := audit.NewRepository(pool)
		consumerCtx, stopConsumer := context.WithCancel(ctx)
		defer stopConsumer()
		go func() {
			if err := audit.NewConsumer(eventsClient, auditRepo).Run(consumerCtx); err != nil && consumerCtx.Err() == nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Warn("NATS_URL not set, events and audit trail disabled")
	}

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.SessionExpiry)
	authHandler := auth.NewHandler(jwtManager)

	// Quota
	quotaSvc := quota.NewService(quota.NewPGStore(pool), cfg.Quota)

	// Collaborators
	geminiClient := gemini.NewClient(cfg.Gemini)
	signer := assets.NewSigner(cfg.Assets.SigningKey, cfg.Assets.URLTTL)
	assetRepo := assets.NewRepository(pool, signer)
	assetHandler := assets.NewHandler(assetRepo, signer)

	// Generation
	orchestrator := generation.NewOrchestrator(
		quotaSvc, geminiClient, geminiClient, assetRepo, assetRepo, publisher)
	generationHandler := generation.NewHandler(orchestrator, quotaSvc)

	// Support
	limiter := support.NewSessionLimiter(cfg.Support.SessionWindow, cfg.Support.SessionMaxMsgs)
	convLog := support.NewConvLog(redisClient, cfg.Support.LogTTL)
	githubTracker := tracker.NewGitHub(cfg.Support)
	supportOrch := support.NewOrchestrator(
		limiter, geminiClient, githubTracker, geminiClient, convLog, publisher)
	supportHandler := support.NewHandler(supportOrch)

	// Router
	ipLimiter := middleware.NewIPRateLimiter(redisClient, 30, 60)
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		IPRateLimiter:      ipLimiter.Middleware,
	}, api.HandlerSet{
		CreateSession:  authHandler.CreateSession,
		Generate:       generationHandler.Generate,
		QuotaStatus:    generationHandler.QuotaStatus,
		SupportMessage: supportHandler.Message,
		ServeAsset:     assetHandler.Serve,
		AuthMiddleware: auth.Middleware(jwtManager),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
