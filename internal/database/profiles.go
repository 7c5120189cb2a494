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

	"github.com/cinechance/recommender/internal/logging"
	"github.com/cinechance/recommender/internal/recommend"
)

// EnsureUser registers a user id. Existing users are left unchanged.
func (db *DB) EnsureUser(ctx context.Context, userID string) (err error) {
	defer track("insert", "users", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// ListUserIDs returns every user id in ascending order.
func (db *DB) ListUserIDs(ctx context.Context) (ids []string, err error) {
	defer track("select", "users", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return ids, nil
}

// GetTasteProfile returns the stored profile, or an empty one.
func (db *DB) GetTasteProfile(ctx context.Context, userID string) (profile *recommend.TasteProfile, err error) {
	defer track("select", "taste_profiles", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var raw string
	err = db.conn.QueryRowContext(ctx,
		`SELECT profile FROM taste_profiles WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return recommend.NewTasteProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query taste profile: %w", err)
	}
	return decodeProfile(raw)
}

// SaveTasteProfile overwrites the user's profile.
func (db *DB) SaveTasteProfile(ctx context.Context, userID string, profile *recommend.TasteProfile) (err error) {
	if err := db.EnsureUser(ctx, userID); err != nil {
		return err
	}

	defer track("upsert", "taste_profiles", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if profile == nil {
		profile = recommend.NewTasteProfile()
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode taste profile: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO taste_profiles (user_id, profile, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, string(raw), db.now().UTC())
	if err != nil {
		return fmt.Errorf("save taste profile: %w", err)
	}
	return nil
}

// ScanTasteProfiles calls fn for every stored profile in user id order.
// Users without a stored profile are skipped, as are rows that fail to
// decode.
func (db *DB) ScanTasteProfiles(ctx context.Context, fn func(userID string, profile *recommend.TasteProfile) error) (err error) {
	defer track("select", "taste_profiles", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, profile FROM taste_profiles ORDER BY user_id`)
	if err != nil {
		return fmt.Errorf("query taste profiles: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var userID, raw string
		if err = rows.Scan(&userID, &raw); err != nil {
			return fmt.Errorf("scan taste profile: %w", err)
		}
		profile, decodeErr := decodeProfile(raw)
		if decodeErr != nil {
			logging.Warn().Err(decodeErr).Str("user_id", userID).Msg("Skipping undecodable taste profile")
			continue
		}
		if err = fn(userID, profile); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("iterate taste profiles: %w", err)
	}
	return nil
}

func decodeProfile(raw string) (*recommend.TasteProfile, error) {
	profile := recommend.NewTasteProfile()
	if err := json.Unmarshal([]byte(raw), profile); err != nil {
		return nil, fmt.Errorf("decode taste profile: %w", err)
	}
	// Unmarshal replaces the maps with nil when the column holds null.
	if profile.Actors == nil {
		profile.Actors = make(map[int]float64)
	}
	if profile.Directors == nil {
		profile.Directors = make(map[int]float64)
	}
	if profile.Genres == nil {
		profile.Genres = make(map[int]float64)
	}
	return profile, nil
}
