// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package session stores the titles shown during a browsing session so a
// recommendation run never repeats them. RedisStore shares sessions across
// replicas; MemoryStore keeps them in process when Redis is not configured.
package session

import (
	"time"

	"github.com/cinechance/recommender/internal/recommend"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// scopedID namespaces a client-supplied session id under its user.
func scopedID(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// payload is the stored form of a session.
type payload struct {
	ID        string    `json:"id"`
	Shown     []string  `json:"shown"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toPayload(s *recommend.SessionState, now time.Time) payload {
	p := payload{ID: s.ID, Shown: make([]string, 0, len(s.Shown)), UpdatedAt: now}
	for k := range s.Shown {
		p.Shown = append(p.Shown, k.String())
	}
	return p
}

// toState converts a payload, dropping keys it cannot parse.
func toState(p *payload) (*recommend.SessionState, int) {
	s := recommend.NewSessionState(p.ID)
	dropped := 0
	for _, raw := range p.Shown {
		k, err := recommend.ParseTitleKey(raw)
		if err != nil {
			dropped++
			continue
		}
		s.Shown[k] = struct{}{}
	}
	return s, dropped
}
