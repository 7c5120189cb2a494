// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSessionCleanupInterval is used when no interval is given.
const DefaultSessionCleanupInterval = 10 * time.Minute

// SessionCleaner drops expired sessions and reports how many it removed.
type SessionCleaner interface {
	Cleanup() int
}

// SessionCleanupService sweeps expired in-process sessions so idle ones
// do not hold cache slots until they are evicted.
type SessionCleanupService struct {
	cleaner  SessionCleaner
	interval time.Duration
	logger   zerolog.Logger
}

// NewSessionCleanupService creates the sweep loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSessionCleanupService(cleaner SessionCleaner, interval time.Duration, logger zerolog.Logger) *SessionCleanupService {
	if interval <= 0 {
		interval = DefaultSessionCleanupInterval
	}
	return &SessionCleanupService{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger.With().Str("service", "session-cleanup").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.cleaner.Cleanup(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("expired sessions removed")
			}
		}
	}
}

// String names the service in supervisor events.
func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
