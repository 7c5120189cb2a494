// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cinechance/recommender/internal/middleware"
	"github.com/cinechance/recommender/internal/models"
)

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status            string                     `json:"status"`
	DatabaseConnected bool                       `json:"databaseConnected"`
	SessionsConnected bool                       `json:"sessionsConnected"`
	MetadataBreaker   string                     `json:"metadataBreaker,omitempty"`
	Generators        []string                   `json:"generators"`
	Uptime            float64                    `json:"uptimeSeconds"`
	Endpoints         []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// Health handles GET /health. It answers 503 when the database is down.
// An unreachable session store only degrades the status since sessions
// are best effort.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: h.db != nil && h.db.Ping(ctx) == nil,
		SessionsConnected: h.sessions == nil || h.sessions.Ping(ctx) == nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.engine != nil {
		health.Generators = h.engine.Generators()
	}
	if h.metadata != nil {
		health.MetadataBreaker = h.metadata.BreakerState()
	}
	if h.perfMon != nil {
		health.Endpoints = h.perfMon.GetStats()
	}

	status := http.StatusOK
	switch {
	case !health.DatabaseConnected:
		health.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case !health.SessionsConnected || health.MetadataBreaker == "open":
		health.Status = "degraded"
	}

	respondJSON(w, r, status, models.NewSuccess(health, start))
}
