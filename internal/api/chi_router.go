// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinechance/recommender/internal/auth"
	"github.com/cinechance/recommender/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
	perfMon       *middleware.PerformanceMonitor
}

// NewRouter creates a router. perfMon may be nil.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMw *ChiMiddleware, perfMon *middleware.PerformanceMonitor) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: chiMw,
		perfMon:       perfMon,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chimiddleware.Compress(5, "application/json"))
	if router.perfMon != nil {
		r.Use(router.perfMon.Middleware)
	}

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/health", router.handler.Health)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(chiMiddleware(router.auth.Authenticate))
		r.Use(router.chiMiddleware.RateLimit())

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/", router.handler.GetRecommendations)
			r.Get("/stats", router.handler.RecommendationStats)
			r.Post("/{logId}/action", router.handler.RecordAction)
		})
		r.Get("/ratings/{mediaType}/{tmdbId}", router.handler.GetRating)
	})

	return r
}
