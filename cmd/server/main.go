// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

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

	"github.com/cinechance/recommender/internal/api"
	"github.com/cinechance/recommender/internal/auth"
	"github.com/cinechance/recommender/internal/config"
	"github.com/cinechance/recommender/internal/database"
	"github.com/cinechance/recommender/internal/logging"
	"github.com/cinechance/recommender/internal/middleware"
	"github.com/cinechance/recommender/internal/supervisor"
	"github.com/cinechance/recommender/internal/supervisor/services"
)

const (
	perfMonitorSize = 1000
	slowRequestTime = time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("redis_sessions", cfg.Redis.Addr != "").
		Bool("genre_twins", cfg.Recommend.GenreTwinsEnabled).
		Msg("Starting CineChance recommender")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	sessions, closeSessions, err := initSessions(ctx, cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer closeSessions()

	rec, err := initRecommend(cfg, db, sessions.SessionStore, logging.Logger())
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	perfMon := middleware.NewPerformanceMonitor(perfMonitorSize, slowRequestTime)
	deps := api.HandlerDeps{
		Engine:   rec.Engine,
		Outcomes: rec.Outcomes,
		Ratings:  rec.Ratings,
		DB:       db,
		Metadata: rec.Metadata,
		PerfMon:  perfMon,
	}
	if sessions.pinger != nil {
		deps.Sessions = sessions.pinger
	}
	router := api.NewRouter(
		api.NewHandler(deps),
		auth.NewMiddleware(jwtManager),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
		perfMon,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	if cfg.Recommend.ProfileRefreshInterval > 0 {
		tree.AddDataService(services.NewProfileRefreshService(rec.Profiles, services.ProfileRefreshConfig{
			Interval:  cfg.Recommend.ProfileRefreshInterval,
			OnStartup: cfg.Recommend.ProfileRefreshOnStartup,
		}, logging.Logger()))
		logging.Info().Dur("interval", cfg.Recommend.ProfileRefreshInterval).Msg("Profile refresh service added")
	} else {
		logging.Info().Msg("Profile refresh disabled (RECOMMEND_PROFILE_REFRESH_INTERVAL=0)")
	}

	if sessions.cleaner != nil {
		tree.AddDataService(services.NewSessionCleanupService(sessions.cleaner, services.DefaultSessionCleanupInterval, logging.Logger()))
		logging.Info().Msg("Session cleanup service added")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
