package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Haven-Estates/propora-adapter/internal/api"
	"github.com/Haven-Estates/propora-adapter/internal/propora"
	"github.com/Haven-Estates/propora-adapter/internal/publisher"
	"github.com/Haven-Estates/propora-adapter/internal/rate"
	"github.com/Haven-Estates/propora-adapter/internal/store"
	"github.com/Haven-Estates/propora-adapter/pkg/config"
	"github.com/Haven-Estates/propora-adapter/pkg/logger"
	pkgsecrets "github.com/Haven-Estates/propora-adapter/pkg/secrets"
	"github.com/Haven-Estates/propora-adapter/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [propora-adapter]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider (dynamic credentials source) ---
	var secretsProvider pkgsecrets.Provider
	awsProvider, err := pkgsecrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		// Static env credentials still work without the dynamic source.
		logg.Warnw("aws secrets manager unavailable, using env credentials only", "error", err)
	} else {
		secretsProvider = awsProvider
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.OutboundSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 10,
		Burst:             20,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Propora credentials + auth ---
	credResolver := propora.NewCredentialResolver(
		logg.Desugar(),
		secretsProvider,
		cfg.Env,
		propora.CredentialSet{APIKey: cfg.ProporaAPIKey, APISecret: cfg.ProporaAPISecret},
	)
	tokenMgr := propora.NewTokenManager(logg.Desugar(), credResolver, cfg.ProporaBaseURL)

	// --- Propora HTTP client ---
	client := propora.NewClient(logg.Desugar(), rateMgr, tokenMgr, cfg.ProporaBaseURL)

	// --- Location resolver ---
	locations := propora.NewLocationResolver(logg.Desugar(), client, cfg.LocationCacheTTL)

	// --- Listing catalog ---
	listings := propora.NewListingCatalog(logg.Desugar(), client)

	// --- Sync service ---
	svc := propora.NewService(logg.Desugar(), client, st, pub, cfg.OutboundSubject)

	// --- Scheduled lead sync ---
	if cfg.LeadSyncEnabled {
		poller := propora.NewPoller(logg.Desugar(), svc, cfg.LeadSyncInterval)
		go poller.Run(ctx)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewProporaHandler(logg.Desugar(), svc, locations, st, listings)
	api.RegisterRoutes(app, nc, st, handler)

	// Start HTTP server
	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[propora-adapter] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"base_url", cfg.ProporaBaseURL,
		"lead_sync_enabled", cfg.LeadSyncEnabled,
		"lead_sync_interval", cfg.LeadSyncInterval)

	<-ctx.Done()
	logg.Info("shutting down [propora-adapter]...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
