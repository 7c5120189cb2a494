// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package middleware provides HTTP middleware for request tracking and
instrumentation.

Key Components:

  - RequestID: UUID request ids in the X-Request-ID header and the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge per route pattern
  - PerformanceMonitor: sliding window of recent latencies with percentiles, served by /health

Route labels use the chi route pattern (for example
"/api/v1/recommendations/{logId}/action") so per-entity ids do not create
new metric series. Outside a chi router the raw path is used.
*/
package middleware
