// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func scoredPool(keys ...TitleKey) []ScoredCandidate {
	pool := make([]ScoredCandidate, len(keys))
	for i, k := range keys {
		pool[i] = ScoredCandidate{
			CandidateMovie: CandidateMovie{TMDBID: k.TMDBID, MediaType: k.MediaType, ExternalVoteAverage: 7},
			Score:          float64(100 - i),
		}
	}
	return pool
}

func TestFilterPipeline_FilterKeys(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.logs = []LogEntry{
		{ID: "recent", UserID: "u1", TMDBID: 1, MediaType: MediaMovie, ShownAt: now.Add(-2 * 24 * time.Hour)},
		{ID: "old", UserID: "u1", TMDBID: 2, MediaType: MediaMovie, ShownAt: now.Add(-8 * 24 * time.Hour)},
		{ID: "other", UserID: "u2", TMDBID: 3, MediaType: MediaMovie, ShownAt: now},
	}
	store.owned["u1"] = KeySet{{TMDBID: 4, MediaType: MediaMovie}: {}}

	p := NewFilterPipeline(store, store, 7)
	p.now = func() time.Time { return now }

	session := NewSessionState("s1")
	session.MarkShown(TitleKey{TMDBID: 5, MediaType: MediaMovie})

	pool := scoredPool(
		TitleKey{1, MediaMovie}, // cooldown
		TitleKey{2, MediaMovie}, // cooldown expired
		TitleKey{3, MediaMovie}, // logged for another user
		TitleKey{4, MediaMovie}, // in own list
		TitleKey{5, MediaMovie}, // shown in session
		TitleKey{1, MediaTV},    // same id, other media type
	)

	kept, stats, err := p.FilterKeys(context.Background(), pool, "u1", session)
	if err != nil {
		t.Fatalf("FilterKeys() error = %v", err)
	}

	want := []TitleKey{{2, MediaMovie}, {3, MediaMovie}, {1, MediaTV}}
	if len(kept) != len(want) {
		t.Fatalf("kept %d candidates, want %d", len(kept), len(want))
	}
	for i, k := range want {
		if kept[i].Key() != k {
			t.Errorf("kept[%d] = %v, want %v", i, kept[i].Key(), k)
		}
	}
	if stats != (FilterStats{Cooldown: 1, OwnList: 1, Session: 1}) {
		t.Errorf("stats = %+v", stats)
	}
	if !store.since.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Errorf("cooldown since = %v, want 7 days before now", store.since)
	}
}

func TestApplyPreferences(t *testing.T) {
	t.Parallel()

	pool := []ScoredCandidate{
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaMovie, ExternalVoteAverage: 8, ReleaseYear: 2001, GenreIDs: []int{18}}},
		{CandidateMovie: CandidateMovie{TMDBID: 2, MediaType: MediaTV, ExternalVoteAverage: 8, ReleaseYear: 2001, GenreIDs: []int{18}}},
		{CandidateMovie: CandidateMovie{TMDBID: 3, MediaType: MediaMovie, ExternalVoteAverage: 5, ReleaseYear: 2001, GenreIDs: []int{18}}},
		{CandidateMovie: CandidateMovie{TMDBID: 4, MediaType: MediaMovie, ExternalVoteAverage: 8, ReleaseYear: 1980, GenreIDs: []int{18}}},
		{CandidateMovie: CandidateMovie{TMDBID: 5, MediaType: MediaMovie, ExternalVoteAverage: 8, ReleaseYear: 2001, GenreIDs: []int{35}}},
		{CandidateMovie: CandidateMovie{TMDBID: 6, MediaType: MediaMovie, ExternalVoteAverage: 8}},
	}
	prefs := Filters{
		Types:     []MediaType{MediaMovie},
		MinRating: 6,
		YearFrom:  1990,
		YearTo:    2010,
		Genres:    []int{18, 80},
	}

	stats := FilterStats{Cooldown: 1}
	kept := ApplyPreferences(pool, prefs, &stats)
	if len(kept) != 2 || kept[0].TMDBID != 1 || kept[1].TMDBID != 6 {
		t.Errorf("kept = %+v, want titles 1 and 6 (unknown year and genres pass)", kept)
	}
	if stats != (FilterStats{Cooldown: 1, Preference: 4}) {
		t.Errorf("stats = %+v, want 4 preference rejections added", stats)
	}
}

func TestFilterPipeline_StoreError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.recentErr = errors.New("db down")
	p := NewFilterPipeline(store, store, 7)

	_, _, err := p.FilterKeys(context.Background(), scoredPool(TitleKey{1, MediaMovie}), "u1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFilters_NeedsEnrichment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		f    Filters
		want bool
	}{
		{Filters{}, false},
		{Filters{Types: []MediaType{MediaTV}, MinRating: 7}, false},
		{Filters{YearFrom: 2000}, true},
		{Filters{YearTo: 2000}, true},
		{Filters{Genres: []int{18}}, true},
	}
	for _, tt := range tests {
		if got := tt.f.NeedsEnrichment(); got != tt.want {
			t.Errorf("%+v.NeedsEnrichment() = %v, want %v", tt.f, got, tt.want)
		}
	}
}
