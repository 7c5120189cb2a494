// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cinechance/recommender/internal/recommend"
)

// WatchListEntry is one title in a user's lists.
type WatchListEntry struct {
	TMDBID      int
	MediaType   recommend.MediaType
	Title       string
	Status      recommend.WatchStatus
	UserRating  *float64
	VoteAverage float64
}

// UpsertWatchListEntry adds a title or updates its status and rating.
// added_at is kept from the first insert; updated_at is always now.
//
//nolint:gocritic // hugeParam: entry passed by value for immutability
func (db *DB) UpsertWatchListEntry(ctx context.Context, userID string, entry WatchListEntry) (err error) {
	if !entry.MediaType.Valid() {
		return fmt.Errorf("upsert watch list: %w: %q", recommend.ErrInvalidMediaType, entry.MediaType)
	}
	if err := db.EnsureUser(ctx, userID); err != nil {
		return err
	}

	defer track("upsert", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := db.now().UTC()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO watch_list (user_id, tmdb_id, media_type, title, status, user_rating, vote_average, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, tmdb_id, media_type) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			user_rating = excluded.user_rating,
			vote_average = excluded.vote_average,
			updated_at = excluded.updated_at`,
		userID, entry.TMDBID, string(entry.MediaType), entry.Title, string(entry.Status),
		nullFloat(entry.UserRating), entry.VoteAverage, now, now)
	if err != nil {
		return fmt.Errorf("upsert watch list: %w", err)
	}
	return nil
}

// CountWatched returns the number of watched or rewatched entries.
func (db *DB) CountWatched(ctx context.Context, userID string) (n int, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watch_list
		WHERE user_id = ? AND status IN ('watched', 'rewatched')`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count watched: %w", err)
	}
	return n, nil
}

// ListTitleKeys returns every title in the user's lists.
func (db *DB) ListTitleKeys(ctx context.Context, userID string) (keys recommend.KeySet, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT tmdb_id, media_type FROM watch_list WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query list titles: %w", err)
	}
	defer closeRows(rows)
	return scanKeySet(rows)
}

// TopRatedTitles returns watched titles rated at least minRating, highest
// rating first, then highest vote average.
func (db *DB) TopRatedTitles(ctx context.Context, userID string, minRating float64, limit int) (titles []recommend.RatedTitle, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT tmdb_id, media_type, title, user_rating, vote_average
		FROM watch_list
		WHERE user_id = ?
		  AND status IN ('watched', 'rewatched')
		  AND user_rating IS NOT NULL
		  AND user_rating >= ?
		ORDER BY user_rating DESC, vote_average DESC, tmdb_id ASC, media_type ASC
		LIMIT ?`, userID, minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("query top rated titles: %w", err)
	}
	defer closeRows(rows)
	return scanRatedTitles(rows)
}

// WatchHistory returns every watched or rewatched title, rated or not,
// ordered by TMDB id.
func (db *DB) WatchHistory(ctx context.Context, userID string) (titles []recommend.RatedTitle, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT tmdb_id, media_type, title, user_rating, vote_average
		FROM watch_list
		WHERE user_id = ? AND status IN ('watched', 'rewatched')
		ORDER BY tmdb_id, media_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer closeRows(rows)
	return scanRatedTitles(rows)
}

// CommunityRating returns the mean of positive user ratings for a title,
// rounded to one decimal, and the number of such ratings. The mean is nil
// when nobody rated the title.
func (db *DB) CommunityRating(ctx context.Context, key recommend.TitleKey) (avg *float64, count int, err error) {
	defer track("select", "watch_list", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var mean sql.NullFloat64
	err = db.conn.QueryRowContext(ctx, `
		SELECT AVG(user_rating), COUNT(*)
		FROM watch_list
		WHERE tmdb_id = ? AND media_type = ? AND user_rating > 0`,
		key.TMDBID, string(key.MediaType)).Scan(&mean, &count)
	if err != nil {
		return nil, 0, fmt.Errorf("query community rating: %w", err)
	}
	if !mean.Valid || count == 0 {
		return nil, 0, nil
	}
	rounded := recommend.RoundTenth(mean.Float64)
	return &rounded, count, nil
}

func scanRatedTitles(rows *sql.Rows) ([]recommend.RatedTitle, error) {
	var titles []recommend.RatedTitle
	for rows.Next() {
		var (
			t         recommend.RatedTitle
			mediaType string
			rating    sql.NullFloat64
		)
		if err := rows.Scan(&t.TMDBID, &mediaType, &t.Title, &rating, &t.VoteAverage); err != nil {
			return nil, fmt.Errorf("scan rated title: %w", err)
		}
		t.MediaType = recommend.MediaType(mediaType)
		if rating.Valid {
			r := rating.Float64
			t.UserRating = &r
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rated titles: %w", err)
	}
	return titles, nil
}

func scanKeySet(rows *sql.Rows) (recommend.KeySet, error) {
	keys := make(recommend.KeySet)
	for rows.Next() {
		var (
			id        int
			mediaType string
		)
		if err := rows.Scan(&id, &mediaType); err != nil {
			return nil, fmt.Errorf("scan title key: %w", err)
		}
		keys[recommend.TitleKey{TMDBID: id, MediaType: recommend.MediaType(mediaType)}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title keys: %w", err)
	}
	return keys, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
