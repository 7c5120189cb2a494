// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/config"
	"github.com/cinechance/recommender/internal/recommend"
)

const (
	keyPrefix     = "cinechance:session:"
	maxTxAttempts = 3
)

// NewRedisClient creates a client from configuration and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore keeps sessions as JSON documents with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session").Logger(),
		now:    time.Now,
	}
}

// sessionKey is cinechance:session:{userID}:{sessionID}.
func sessionKey(userID, sessionID string) string {
	return keyPrefix + scopedID(userID, sessionID)
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load returns the session, or an empty one if it is unknown or expired.
func (s *RedisStore) Load(ctx context.Context, userID, sessionID string) (*recommend.SessionState, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return recommend.NewSessionState(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s.decode(sessionID, raw)
}

// MarkShown adds titles and restarts the TTL. Concurrent writers to the
// same session are serialized with optimistic locking.
func (s *RedisStore) MarkShown(ctx context.Context, userID, sessionID string, keys []recommend.TitleKey) error {
	key := sessionKey(userID, sessionID)

	update := func(tx *redis.Tx) error {
		state := recommend.NewSessionState(sessionID)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if state, err = s.decode(sessionID, raw); err != nil {
				return err
			}
		}

		state.MarkShown(keys...)
		data, err := json.Marshal(toPayload(state, s.now().UTC()))
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, update, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	return fmt.Errorf("failed to save session: %w after %d attempts", redis.TxFailedErr, maxTxAttempts)
}

func (s *RedisStore) decode(sessionID string, raw []byte) (*recommend.SessionState, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	p.ID = sessionID
	state, dropped := toState(&p)
	if dropped > 0 {
		s.logger.Warn().Str("session_id", sessionID).Int("dropped", dropped).Msg("Ignored malformed title keys in session")
	}
	return state, nil
}
