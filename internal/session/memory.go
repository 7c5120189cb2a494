// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package session

import (
	"context"
	"sync"
	"time"

	"github.com/cinechance/recommender/internal/cache"
	"github.com/cinechance/recommender/internal/recommend"
)

// DefaultMemoryCapacity bounds the number of sessions kept in process.
const DefaultMemoryCapacity = 10000

// MemoryStore keeps sessions in a bounded TTL cache. Evicted or expired
// sessions read back as empty.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Bounded[recommend.KeySet]
}

// NewMemoryStore creates an in-process session store.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.NewBounded[recommend.KeySet](capacity, ttl)}
}

// Load returns a copy of the session's shown titles.
func (m *MemoryStore) Load(_ context.Context, userID, sessionID string) (*recommend.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := recommend.NewSessionState(sessionID)
	if shown, ok := m.cache.Get(scopedID(userID, sessionID)); ok {
		for k := range shown {
			state.Shown[k] = struct{}{}
		}
	}
	return state, nil
}

// MarkShown adds titles and restarts the session's TTL.
func (m *MemoryStore) MarkShown(_ context.Context, userID, sessionID string, keys []recommend.TitleKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := scopedID(userID, sessionID)
	shown, ok := m.cache.Get(id)
	if !ok {
		shown = make(recommend.KeySet, len(keys))
	}
	for _, k := range keys {
		shown[k] = struct{}{}
	}
	m.cache.Set(id, shown)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Cleanup drops expired sessions and returns how many were removed.
func (m *MemoryStore) Cleanup() int {
	return m.cache.CleanupExpired()
}
