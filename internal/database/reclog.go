// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinechance/recommender/internal/recommend"
)

// InsertLogEntries appends entries in one transaction.
func (db *DB) InsertLogEntries(ctx context.Context, entries []recommend.LogEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	defer track("insert", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin log insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendation_log (id, user_id, tmdb_id, media_type, title, algorithm, score, context, shown_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare log insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range entries {
		e := &entries[i]
		raw, encErr := encodeContext(e.Context)
		if encErr != nil {
			err = fmt.Errorf("log entry %s: %w", e.ID, encErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, e.ID, e.UserID, e.TMDBID, string(e.MediaType), e.Title,
			e.Algorithm, e.Score, raw, e.ShownAt.UTC()); err != nil {
			return fmt.Errorf("insert log entry %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit log insert: %w", err)
	}
	return nil
}

// RecentlyRecommended returns titles logged for the user at or after since.
func (db *DB) RecentlyRecommended(ctx context.Context, userID string, since time.Time) (keys recommend.KeySet, err error) {
	defer track("select", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT tmdb_id, media_type FROM recommendation_log
		WHERE user_id = ? AND shown_at >= ?`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent recommendations: %w", err)
	}
	defer closeRows(rows)
	return scanKeySet(rows)
}

// GetLogEntry returns the entry or recommend.ErrLogNotFound.
func (db *DB) GetLogEntry(ctx context.Context, id string) (entry *recommend.LogEntry, err error) {
	defer track("select", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		e         recommend.LogEntry
		mediaType string
		rawCtx    string
		action    sql.NullString
		actionAt  sql.NullTime
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, tmdb_id, media_type, title, algorithm, score, context, shown_at, action, action_at
		FROM recommendation_log WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.TMDBID, &mediaType, &e.Title, &e.Algorithm, &e.Score,
			&rawCtx, &e.ShownAt, &action, &actionAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query log entry: %w", err)
	}

	e.MediaType = recommend.MediaType(mediaType)
	if e.Context, err = decodeContext(rawCtx); err != nil {
		return nil, fmt.Errorf("log entry %s: %w", id, err)
	}
	if action.Valid {
		a := recommend.Action(action.String)
		e.Action = &a
	}
	if actionAt.Valid {
		at := actionAt.Time
		e.ActionAt = &at
	}
	return &e, nil
}

// SetLogAction records the action only if none is set and reports
// whether the row changed. Unknown ids return recommend.ErrLogNotFound.
func (db *DB) SetLogAction(ctx context.Context, id string, action recommend.Action, at time.Time) (updated bool, err error) {
	defer track("update", "recommendation_log", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE recommendation_log SET action = ?, action_at = ?
		WHERE id = ? AND action IS NULL`, string(action), at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("update log action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update log action: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendation_log WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check log entry: %w", err)
	}
	if exists == 0 {
		return false, recommend.ErrLogNotFound
	}
	return false, nil
}

func encodeContext(c map[string]any) (string, error) {
	if c == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return string(raw), nil
}

func decodeContext(raw string) (map[string]any, error) {
	c := make(map[string]any)
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return c, nil
}
