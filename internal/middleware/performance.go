// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package middleware

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/cinechance/recommender/internal/logging"
)

// RequestMetrics is one observed request.
type RequestMetrics struct {
	Route      string
	Method     string
	DurationMS int64
	StatusCode int
	Timestamp  time.Time
}

// EndpointStats aggregates the window for one method and route.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"requestCount"`
	ErrorCount   int64   `json:"errorCount"`
	AvgDuration  float64 `json:"avgDurationMs"`
	P50Duration  int64   `json:"p50DurationMs"`
	P95Duration  int64   `json:"p95DurationMs"`
	MaxDuration  int64   `json:"maxDurationMs"`
}

// PerformanceMonitor keeps the most recent requests in a ring buffer.
type PerformanceMonitor struct {
	mu        sync.RWMutex
	ring      []RequestMetrics
	next      int
	full      bool
	slowAfter time.Duration
}

// NewPerformanceMonitor keeps the last size requests and warns about
// requests slower than slowAfter (zero disables the warning).
func NewPerformanceMonitor(size int, slowAfter time.Duration) *PerformanceMonitor {
	if size < 1 {
		size = 1000
	}
	return &PerformanceMonitor{ring: make([]RequestMetrics, size), slowAfter: slowAfter}
}

// RecordRequest adds a request to the window.
func (pm *PerformanceMonitor) RecordRequest(m RequestMetrics) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.ring[pm.next] = m
	pm.next = (pm.next + 1) % len(pm.ring)
	if pm.next == 0 {
		pm.full = true
	}
}

func (pm *PerformanceMonitor) snapshotLocked() []RequestMetrics {
	if pm.full {
		return append(slices.Clone(pm.ring[pm.next:]), pm.ring[:pm.next]...)
	}
	return slices.Clone(pm.ring[:pm.next])
}

// GetStats returns per-endpoint statistics, busiest first.
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.RLock()
	window := pm.snapshotLocked()
	pm.mu.RUnlock()

	durations := make(map[string][]int64)
	failures := make(map[string]int64)
	for _, m := range window {
		key := m.Method + " " + m.Route
		durations[key] = append(durations[key], m.DurationMS)
		if m.StatusCode >= http.StatusInternalServerError {
			failures[key]++
		}
	}

	stats := make([]EndpointStats, 0, len(durations))
	for endpoint, d := range durations {
		slices.Sort(d)
		var sum int64
		for _, v := range d {
			sum += v
		}
		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(d)),
			ErrorCount:   failures[endpoint],
			AvgDuration:  float64(sum) / float64(len(d)),
			P50Duration:  percentile(d, 0.50),
			P95Duration:  percentile(d, 0.95),
			MaxDuration:  d[len(d)-1],
		})
	}

	slices.SortFunc(stats, func(a, b EndpointStats) int {
		if a.RequestCount != b.RequestCount {
			if a.RequestCount > b.RequestCount {
				return -1
			}
			return 1
		}
		if a.Endpoint < b.Endpoint {
			return -1
		}
		if a.Endpoint > b.Endpoint {
			return 1
		}
		return 0
	})
	return stats
}

// Middleware records every request passing through.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		elapsed := time.Since(start)
		route := routePattern(r)
		pm.RecordRequest(RequestMetrics{
			Route:      route,
			Method:     r.Method,
			DurationMS: elapsed.Milliseconds(),
			StatusCode: wrapper.statusCode,
			Timestamp:  start,
		})

		if pm.slowAfter > 0 && elapsed > pm.slowAfter {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", elapsed).
				Msg("Slow request detected")
		}
	})
}

// percentile calculates the percentile value from a sorted slice
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
