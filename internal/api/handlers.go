// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"context"
	"time"

	"github.com/cinechance/recommender/internal/middleware"
	"github.com/cinechance/recommender/internal/ratings"
	"github.com/cinechance/recommender/internal/recommend"
)

// Recommender runs the recommendation pipeline.
type Recommender interface {
	Run(ctx context.Context, req recommend.RunRequest) recommend.Result
	Generators() []string
}

// OutcomeService serves outcome statistics and records user responses.
type OutcomeService interface {
	Dashboard(ctx context.Context, userID string, window recommend.StatsWindow) (*recommend.DashboardStats, error)
	RecordAction(ctx context.Context, logID, userID string, action recommend.Action) error
}

// RatingService looks up blended ratings.
type RatingService interface {
	Lookup(ctx context.Context, key recommend.TitleKey) (*ratings.Rating, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes a circuit breaker state name.
type BreakerReporter interface {
	BreakerState() string
}

// Handler contains dependencies for API handlers.
type Handler struct {
	engine   Recommender
	outcomes OutcomeService
	ratings  RatingService

	db       Pinger
	sessions Pinger
	metadata BreakerReporter
	perfMon  *middleware.PerformanceMonitor

	startTime time.Time
}

// HandlerDeps lists the handler dependencies. Engine, Outcomes and Ratings
// are required; the rest only feed /health.
type HandlerDeps struct {
	Engine   Recommender
	Outcomes OutcomeService
	Ratings  RatingService

	DB       Pinger
	Sessions Pinger
	Metadata BreakerReporter
	PerfMon  *middleware.PerformanceMonitor
}

// NewHandler creates a new API handler.
//
//nolint:gocritic // hugeParam: deps is a one-time constructor argument
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		engine:    deps.Engine,
		outcomes:  deps.Outcomes,
		ratings:   deps.Ratings,
		db:        deps.DB,
		sessions:  deps.Sessions,
		metadata:  deps.Metadata,
		perfMon:   deps.PerfMon,
		startTime: time.Now(),
	}
}
