// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"errors"
	"sync"
	"time"
)

// mockStore implements every store interface for testing.
type mockStore struct {
	mu sync.Mutex

	watched  map[string]int
	profiles map[string]*TasteProfile
	owned    map[string]KeySet
	logs     []LogEntry
	sessions map[string]KeySet

	dayCounts   []DayCounts
	algCounts   []AlgorithmCounts
	watchCounts map[string]int

	countErr   error
	profileErr error
	recentErr  error
	insertErr  error
	sessionErr error
	markErr    error
	outcomeErr error

	// raceAction, when set, is written by SetLogAction before reporting
	// that no row was updated.
	raceAction *Action

	insertCalls int
	since       time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		watched:  make(map[string]int),
		profiles: make(map[string]*TasteProfile),
		owned:    make(map[string]KeySet),
		sessions: make(map[string]KeySet),
	}
}

func (m *mockStore) GetTasteProfile(ctx context.Context, userID string) (*TasteProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return NewTasteProfile(), nil
}

func (m *mockStore) SaveTasteProfile(ctx context.Context, userID string, profile *TasteProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = profile
	return nil
}

func (m *mockStore) ListUserIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockStore) CountWatched(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.watched[userID], nil
}

func (m *mockStore) ListTitleKeys(ctx context.Context, userID string) (KeySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owned[userID] == nil {
		return KeySet{}, nil
	}
	return m.owned[userID], nil
}

func (m *mockStore) TopRatedTitles(ctx context.Context, userID string, minRating float64, limit int) ([]RatedTitle, error) {
	return nil, nil
}

func (m *mockStore) InsertLogEntries(ctx context.Context, entries []LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.logs = append(m.logs, entries...)
	return nil
}

func (m *mockStore) RecentlyRecommended(ctx context.Context, userID string, since time.Time) (KeySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	m.since = since
	keys := KeySet{}
	for i := range m.logs {
		if m.logs[i].UserID == userID && !m.logs[i].ShownAt.Before(since) {
			keys[m.logs[i].Key()] = struct{}{}
		}
	}
	return keys, nil
}

func (m *mockStore) GetLogEntry(ctx context.Context, id string) (*LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID == id {
			e := m.logs[i]
			return &e, nil
		}
	}
	return nil, ErrLogNotFound
}

func (m *mockStore) SetLogAction(ctx context.Context, id string, action Action, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID != id {
			continue
		}
		if m.raceAction != nil {
			m.logs[i].Action = m.raceAction
			return false, nil
		}
		if m.logs[i].Action != nil {
			return false, nil
		}
		m.logs[i].Action = &action
		m.logs[i].ActionAt = &at
		return true, nil
	}
	return false, ErrLogNotFound
}

func (m *mockStore) OutcomeCounts(ctx context.Context, userID, algorithm string, since time.Time) ([]DayCounts, error) {
	if m.outcomeErr != nil {
		return nil, m.outcomeErr
	}
	return append([]DayCounts(nil), m.dayCounts...), nil
}

func (m *mockStore) AlgorithmCounts(ctx context.Context, userID string, since time.Time) ([]AlgorithmCounts, error) {
	if m.outcomeErr != nil {
		return nil, m.outcomeErr
	}
	return append([]AlgorithmCounts(nil), m.algCounts...), nil
}

func (m *mockStore) UserWatchCounts(ctx context.Context) (map[string]int, error) {
	if m.outcomeErr != nil {
		return nil, m.outcomeErr
	}
	return m.watchCounts, nil
}

func sessionMapKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

func (m *mockStore) Load(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	s := NewSessionState(sessionID)
	for k := range m.sessions[sessionMapKey(userID, sessionID)] {
		s.Shown[k] = struct{}{}
	}
	return s, nil
}

func (m *mockStore) MarkShown(ctx context.Context, userID, sessionID string, keys []TitleKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	id := sessionMapKey(userID, sessionID)
	if m.sessions[id] == nil {
		m.sessions[id] = KeySet{}
	}
	for _, k := range keys {
		m.sessions[id][k] = struct{}{}
	}
	return nil
}

func (m *mockStore) deps() Dependencies {
	return Dependencies{Profiles: m, Lists: m, Logs: m, Sessions: m}
}

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	name       string
	candidates []CandidateMovie
	err        error
	block      bool
}

func (g *mockGenerator) Name() string { return g.name }

func (g *mockGenerator) Generate(ctx context.Context, userID string, profile *TasteProfile) ([]CandidateMovie, error) {
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.candidates, nil
}

var errNoRating = errors.New("no rating")

// mockRatings implements RatingLookup for testing.
type mockRatings struct {
	ratings map[TitleKey]float64
}

func (r *mockRatings) CineChanceRating(ctx context.Context, key TitleKey) (*float64, error) {
	v, ok := r.ratings[key]
	if !ok {
		return nil, errNoRating
	}
	return &v, nil
}

// mockEnricher fills release years from a table.
type mockEnricher struct {
	years map[int]int
	calls int
	seen  []int
}

func (e *mockEnricher) Enrich(ctx context.Context, candidates []ScoredCandidate) {
	e.calls++
	for i := range candidates {
		e.seen = append(e.seen, candidates[i].TMDBID)
		candidates[i].ReleaseYear = e.years[candidates[i].TMDBID]
	}
}

func movie(id int, similarity float64, cooccurrence int, sources ...string) CandidateMovie {
	return CandidateMovie{
		TMDBID:              id,
		MediaType:           MediaMovie,
		Title:               "Title",
		ExternalVoteAverage: 7,
		SimilarityScore:     similarity,
		CooccurrenceCount:   cooccurrence,
		SourceUserIDs:       sources,
	}
}
