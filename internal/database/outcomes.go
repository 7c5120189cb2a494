// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cinechance/recommender/internal/recommend"
)

// The follow-up join matches a log row to the same title in the same
// user's lists, counting it only if the list entry changed after the
// recommendation was shown.
const followUpJoin = `
	LEFT JOIN watch_list w
	  ON w.user_id = l.user_id
	 AND w.tmdb_id = l.tmdb_id
	 AND w.media_type = l.media_type
	 AND w.updated_at > l.shown_at`

// OutcomeCounts buckets log entries by UTC day. Empty userID or
// algorithm matches all.
func (db *DB) OutcomeCounts(ctx context.Context, userID, algorithm string, since time.Time) (counts []recommend.DayCounts, err error) {
	defer track("select", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			CAST(l.shown_at AS DATE) AS day,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE w.status = 'want') AS added,
			COUNT(*) FILTER (WHERE w.status <> 'want'
				AND (w.status IN ('watched', 'rewatched') OR w.user_rating IS NOT NULL)) AS rated
		FROM recommendation_log l`+followUpJoin+`
		WHERE (? = '' OR l.user_id = ?)
		  AND (? = '' OR l.algorithm = ?)
		  AND l.shown_at >= ?
		GROUP BY day
		ORDER BY day`,
		userID, userID, algorithm, algorithm, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var c recommend.DayCounts
		if err = rows.Scan(&c.Date, &c.Total, &c.Added, &c.Rated); err != nil {
			return nil, fmt.Errorf("scan outcome counts: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// AlgorithmCounts returns shown and accepted counts per algorithm. An
// entry is accepted when the user answered yes or later added, watched
// or rated the title.
func (db *DB) AlgorithmCounts(ctx context.Context, userID string, since time.Time) (counts []recommend.AlgorithmCounts, err error) {
	defer track("select", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			l.algorithm,
			COUNT(*) AS shown,
			COUNT(*) FILTER (WHERE l.action = 'accepted_yes'
				OR w.status IN ('want', 'watched', 'rewatched')
				OR w.user_rating IS NOT NULL) AS accepted
		FROM recommendation_log l`+followUpJoin+`
		WHERE (? = '' OR l.user_id = ?)
		  AND l.shown_at >= ?
		GROUP BY l.algorithm
		ORDER BY l.algorithm`,
		userID, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query algorithm counts: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var c recommend.AlgorithmCounts
		if err = rows.Scan(&c.Algorithm, &c.Shown, &c.Accepted); err != nil {
			return nil, fmt.Errorf("scan algorithm counts: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate algorithm counts: %w", err)
	}
	return counts, nil
}

// UserWatchCounts returns the watched count of every user, zeros included.
func (db *DB) UserWatchCounts(ctx context.Context) (counts map[string]int, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.id, COUNT(w.tmdb_id) FILTER (WHERE w.status IN ('watched', 'rewatched'))
		FROM users u
		LEFT JOIN watch_list w ON w.user_id = u.id
		GROUP BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("query user watch counts: %w", err)
	}
	defer closeRows(rows)

	counts = make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err = rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan user watch count: %w", err)
		}
		counts[id] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user watch counts: %w", err)
	}
	return counts, nil
}
