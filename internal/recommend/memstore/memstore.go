// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package memstore provides an in-memory implementation of the
// recommendation store interfaces. It backs unit tests and local runs
// without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cinechance/recommender/internal/recommend"
)

// ListEntry is one title in a user's lists.
type ListEntry struct {
	TMDBID      int
	MediaType   recommend.MediaType
	Title       string
	Status      recommend.WatchStatus
	UserRating  *float64
	VoteAverage float64

	// UpdatedAt is when the status or rating last changed.
	UpdatedAt time.Time
}

// Key returns the entry's title key.
func (e *ListEntry) Key() recommend.TitleKey {
	return recommend.TitleKey{TMDBID: e.TMDBID, MediaType: e.MediaType}
}

func (e *ListEntry) watched() bool {
	return e.Status == recommend.StatusWatched || e.Status == recommend.StatusRewatched
}

// Store implements ProfileStore, WatchListStore, LogStore, OutcomeStore
// and SessionStore. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	users    map[string]struct{}
	profiles map[string]*recommend.TasteProfile
	lists    map[string]map[recommend.TitleKey]ListEntry
	logs     []recommend.LogEntry
	logIndex map[string]int
	sessions map[string]recommend.KeySet
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]struct{}),
		profiles: make(map[string]*recommend.TasteProfile),
		lists:    make(map[string]map[recommend.TitleKey]ListEntry),
		logIndex: make(map[string]int),
		sessions: make(map[string]recommend.KeySet),
	}
}

// AddUser registers a user with no lists or profile.
func (s *Store) AddUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
}

// PutListEntry adds or replaces a title in the user's lists.
//
//nolint:gocritic // hugeParam: entry copied into the store
func (s *Store) PutListEntry(userID string, entry ListEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	if s.lists[userID] == nil {
		s.lists[userID] = make(map[recommend.TitleKey]ListEntry)
	}
	s.lists[userID][entry.Key()] = entry
}

// LogEntries returns a copy of every log entry in insertion order.
func (s *Store) LogEntries() []recommend.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]recommend.LogEntry(nil), s.logs...)
}

// GetTasteProfile returns a copy of the stored profile, or an empty one.
func (s *Store) GetTasteProfile(_ context.Context, userID string) (*recommend.TasteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.profiles[userID]), nil
}

// SaveTasteProfile overwrites the user's profile.
func (s *Store) SaveTasteProfile(_ context.Context, userID string, profile *recommend.TasteProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	s.profiles[userID] = cloneProfile(profile)
	return nil
}

// ListUserIDs returns all user ids sorted.
func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CountWatched counts watched and rewatched entries.
func (s *Store) CountWatched(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countWatchedLocked(userID), nil
}

func (s *Store) countWatchedLocked(userID string) int {
	n := 0
	for _, e := range s.lists[userID] {
		if e.watched() {
			n++
		}
	}
	return n
}

// ListTitleKeys returns every title in the user's lists.
func (s *Store) ListTitleKeys(_ context.Context, userID string) (recommend.KeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(recommend.KeySet, len(s.lists[userID]))
	for k := range s.lists[userID] {
		keys[k] = struct{}{}
	}
	return keys, nil
}

// TopRatedTitles returns watched titles rated at least minRating, highest
// rating first, then highest vote average, then lowest TMDB id.
func (s *Store) TopRatedTitles(_ context.Context, userID string, minRating float64, limit int) ([]recommend.RatedTitle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []recommend.RatedTitle
	for _, e := range s.lists[userID] {
		if !e.watched() || e.UserRating == nil || *e.UserRating < minRating {
			continue
		}
		r := *e.UserRating
		out = append(out, recommend.RatedTitle{
			TMDBID:      e.TMDBID,
			MediaType:   e.MediaType,
			Title:       e.Title,
			UserRating:  &r,
			VoteAverage: e.VoteAverage,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if *a.UserRating != *b.UserRating {
			return *a.UserRating > *b.UserRating
		}
		if a.VoteAverage != b.VoteAverage {
			return a.VoteAverage > b.VoteAverage
		}
		if a.TMDBID != b.TMDBID {
			return a.TMDBID < b.TMDBID
		}
		return a.MediaType < b.MediaType
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WatchHistory returns every watched or rewatched title ordered by TMDB id.
func (s *Store) WatchHistory(_ context.Context, userID string) ([]recommend.RatedTitle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []recommend.RatedTitle
	for _, e := range s.lists[userID] {
		if !e.watched() {
			continue
		}
		t := recommend.RatedTitle{
			TMDBID:      e.TMDBID,
			MediaType:   e.MediaType,
			Title:       e.Title,
			VoteAverage: e.VoteAverage,
		}
		if e.UserRating != nil {
			r := *e.UserRating
			t.UserRating = &r
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TMDBID != out[j].TMDBID {
			return out[i].TMDBID < out[j].TMDBID
		}
		return out[i].MediaType < out[j].MediaType
	})
	return out, nil
}

// InsertLogEntries appends entries.
func (s *Store) InsertLogEntries(_ context.Context, entries []recommend.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		s.logIndex[entries[i].ID] = len(s.logs)
		s.logs = append(s.logs, entries[i])
	}
	return nil
}

// RecentlyRecommended returns titles logged for the user at or after since.
func (s *Store) RecentlyRecommended(_ context.Context, userID string, since time.Time) (recommend.KeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(recommend.KeySet)
	for i := range s.logs {
		e := &s.logs[i]
		if e.UserID == userID && !e.ShownAt.Before(since) {
			keys[e.Key()] = struct{}{}
		}
	}
	return keys, nil
}

// GetLogEntry returns a copy of the entry or recommend.ErrLogNotFound.
func (s *Store) GetLogEntry(_ context.Context, id string) (*recommend.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.logIndex[id]
	if !ok {
		return nil, recommend.ErrLogNotFound
	}
	entry := s.logs[at]
	return &entry, nil
}

// SetLogAction records the action if none is set.
func (s *Store) SetLogAction(_ context.Context, id string, action recommend.Action, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.logIndex[id]
	if !ok {
		return false, recommend.ErrLogNotFound
	}
	e := &s.logs[idx]
	if e.Action != nil {
		return false, nil
	}
	e.Action = &action
	e.ActionAt = &at
	return true, nil
}

// OutcomeCounts buckets log entries by UTC day. Empty userID or
// algorithm matches all.
func (s *Store) OutcomeCounts(_ context.Context, userID, algorithm string, since time.Time) ([]recommend.DayCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[time.Time]*recommend.DayCounts)
	for i := range s.logs {
		e := &s.logs[i]
		if !s.matchLocked(e, userID, algorithm, since) {
			continue
		}
		day := e.ShownAt.UTC().Truncate(24 * time.Hour)
		b := buckets[day]
		if b == nil {
			b = &recommend.DayCounts{Date: day}
			buckets[day] = b
		}
		b.Total++
		added, rated := s.followUpLocked(e)
		if added {
			b.Added++
		}
		if rated {
			b.Rated++
		}
	}

	out := make([]recommend.DayCounts, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// AlgorithmCounts returns shown/accepted counts per algorithm.
func (s *Store) AlgorithmCounts(_ context.Context, userID string, since time.Time) ([]recommend.AlgorithmCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAlgorithm := make(map[string]*recommend.AlgorithmCounts)
	for i := range s.logs {
		e := &s.logs[i]
		if !s.matchLocked(e, userID, "", since) {
			continue
		}
		c := byAlgorithm[e.Algorithm]
		if c == nil {
			c = &recommend.AlgorithmCounts{Algorithm: e.Algorithm}
			byAlgorithm[e.Algorithm] = c
		}
		c.Shown++
		added, rated := s.followUpLocked(e)
		if (e.Action != nil && *e.Action == recommend.ActionAcceptedYes) || added || rated {
			c.Accepted++
		}
	}

	out := make([]recommend.AlgorithmCounts, 0, len(byAlgorithm))
	for _, c := range byAlgorithm {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out, nil
}

// UserWatchCounts returns every user's watched count.
func (s *Store) UserWatchCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(s.users))
	for id := range s.users {
		counts[id] = s.countWatchedLocked(id)
	}
	return counts, nil
}

func (s *Store) matchLocked(e *recommend.LogEntry, userID, algorithm string, since time.Time) bool {
	if userID != "" && e.UserID != userID {
		return false
	}
	if algorithm != "" && e.Algorithm != algorithm {
		return false
	}
	return !e.ShownAt.Before(since)
}

// followUpLocked reports whether the logged title was put on the want
// list, or watched or rated, after it was shown.
func (s *Store) followUpLocked(e *recommend.LogEntry) (added, rated bool) {
	entry, ok := s.lists[e.UserID][e.Key()]
	if !ok || !entry.UpdatedAt.After(e.ShownAt) {
		return false, false
	}
	if entry.Status == recommend.StatusWant {
		return true, false
	}
	return false, entry.watched() || entry.UserRating != nil
}

// Load returns the session's shown titles.
func (s *Store) Load(_ context.Context, userID, sessionID string) (*recommend.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := recommend.NewSessionState(sessionID)
	for k := range s.sessions[userID+":"+sessionID] {
		state.Shown[k] = struct{}{}
	}
	return state, nil
}

// MarkShown adds titles to the session.
func (s *Store) MarkShown(_ context.Context, userID, sessionID string, keys []recommend.TitleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := userID + ":" + sessionID
	shown := s.sessions[id]
	if shown == nil {
		shown = make(recommend.KeySet, len(keys))
		s.sessions[id] = shown
	}
	for _, k := range keys {
		shown[k] = struct{}{}
	}
	return nil
}

func cloneProfile(p *recommend.TasteProfile) *recommend.TasteProfile {
	out := recommend.NewTasteProfile()
	if p == nil {
		return out
	}
	for k, v := range p.Actors {
		out.Actors[k] = v
	}
	for k, v := range p.Directors {
		out.Directors[k] = v
	}
	for k, v := range p.Genres {
		out.Genres[k] = v
	}
	return out
}
