// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package database provides DuckDB-backed storage for the recommendation
engine.

Tables:
  - users: every known user id
  - watch_list: per-user list entries (want, watched, rewatched, dropped)
    with optional 0-10 ratings and the TMDB vote average at save time
  - recommendation_log: one row per recommendation shown, with its
    context bag (JSON) and the user's explicit response
  - taste_profiles: per-user actor/director/genre weight maps (JSON)

DB implements the recommend.ProfileStore, recommend.WatchListStore,
recommend.LogStore and recommend.OutcomeStore interfaces, plus the bulk
profile scan used by the twin generators and the community rating
aggregate used by the rating lookup.

Every query runs under a context with a 30-second ceiling and is recorded
in the db_query_duration_seconds histogram.
*/
package database
