// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the tables and indexes
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,

		// Ratings are 0-10; NULL means unrated.
		`CREATE TABLE IF NOT EXISTS watch_list (
			user_id TEXT NOT NULL,
			tmdb_id INTEGER NOT NULL,
			media_type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			user_rating DOUBLE,
			vote_average DOUBLE NOT NULL DEFAULT 0,
			added_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, tmdb_id, media_type)
		)`,

		`CREATE TABLE IF NOT EXISTS recommendation_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			tmdb_id INTEGER NOT NULL,
			media_type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			algorithm TEXT NOT NULL,
			score DOUBLE NOT NULL,
			context TEXT NOT NULL DEFAULT '{}',
			shown_at TIMESTAMP NOT NULL,
			action TEXT,
			action_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS taste_profiles (
			user_id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_watch_list_title ON watch_list(tmdb_id, media_type)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendation_log_user_shown ON recommendation_log(user_id, shown_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendation_log_shown ON recommendation_log(shown_at)`,
	}
}
