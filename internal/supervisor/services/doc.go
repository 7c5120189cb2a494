// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package services adapts the recommender's long-running components to
// suture.Service so the supervisor tree can start, restart and stop them.
//
// HTTPServerService wraps an *http.Server with graceful shutdown.
// ProfileRefreshService rebuilds every taste profile on a fixed interval.
package services
