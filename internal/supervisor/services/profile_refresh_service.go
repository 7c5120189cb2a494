// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/tasteprofile"
)

// ProfileRefresher rebuilds every stored taste profile.
type ProfileRefresher interface {
	RefreshAll(ctx context.Context) (tasteprofile.RefreshStats, error)
}

// ProfileRefreshConfig controls the refresh schedule.
type ProfileRefreshConfig struct {
	// Interval between full refreshes. Default: 6h
	Interval time.Duration

	// OnStartup runs a refresh before the first tick.
	OnStartup bool

	// Timeout bounds a single refresh pass. Default: 30m
	Timeout time.Duration
}

// ProfileRefreshService periodically recomputes taste profiles from
// watch history so twin matching reflects recent ratings.
type ProfileRefreshService struct {
	refresher ProfileRefresher
	config    ProfileRefreshConfig
	logger    zerolog.Logger
	name      string
}

// NewProfileRefreshService creates the refresh loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProfileRefreshService(refresher ProfileRefresher, cfg ProfileRefreshConfig, logger zerolog.Logger) *ProfileRefreshService {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &ProfileRefreshService{
		refresher: refresher,
		config:    cfg,
		logger:    logger.With().Str("service", "profile-refresh").Logger(),
		name:      "profile-refresh",
	}
}

// Serve implements suture.Service. Failed passes are logged and retried
// on the next tick; only cancellation ends the loop.
func (s *ProfileRefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Msg("profile refresh service starting")

	if s.config.OnStartup {
		s.refresh(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("profile refresh service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *ProfileRefreshService) refresh(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	stats, err := s.refresher.RefreshAll(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Msg("profile refresh failed")
		return
	}
	s.logger.Debug().
		Int("users", stats.Users).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("profile refresh pass complete")
}

// String names the service in supervisor events.
func (s *ProfileRefreshService) String() string {
	return s.name
}
