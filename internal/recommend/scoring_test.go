// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"math"
	"testing"
)

func TestRatingSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    CandidateMovie
		want float64
	}{
		{"source rating", CandidateMovie{UserRatingOfSource: ptr(8), ExternalVoteAverage: 5}, 0.8},
		{"falls back to half vote average", CandidateMovie{ExternalVoteAverage: 8}, 0.4},
		{"clamped above", CandidateMovie{UserRatingOfSource: ptr(12)}, 1},
		{"nothing known", CandidateMovie{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RatingSignal(&tt.c); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RatingSignal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	candidates := []CandidateMovie{
		{TMDBID: 1, MediaType: MediaMovie, SimilarityScore: 1, UserRatingOfSource: ptr(10), CooccurrenceCount: 4},
		{TMDBID: 2, MediaType: MediaMovie, SimilarityScore: 0.5, UserRatingOfSource: ptr(5), CooccurrenceCount: 2},
	}
	scored := Score(candidates, "person_twins_v1", DefaultScoreWeights())

	if len(scored) != 2 {
		t.Fatalf("len = %d, want 2", len(scored))
	}
	if math.Abs(scored[0].RawScore-1) > 1e-12 {
		t.Errorf("top raw score = %v, want 1", scored[0].RawScore)
	}
	// 0.5*0.5 + 0.3*0.5 + 0.2*0.5
	if math.Abs(scored[1].RawScore-0.5) > 1e-12 {
		t.Errorf("second raw score = %v, want 0.5", scored[1].RawScore)
	}
	for _, s := range scored {
		if s.Algorithm != "person_twins_v1" {
			t.Errorf("Algorithm = %q", s.Algorithm)
		}
		if s.RawScore < 0 || s.RawScore > 1 {
			t.Errorf("raw score %v out of [0,1]", s.RawScore)
		}
	}
}

func TestScore_ZeroCooccurrence(t *testing.T) {
	t.Parallel()

	scored := Score([]CandidateMovie{{TMDBID: 1, SimilarityScore: 0.4}}, "x", DefaultScoreWeights())
	if math.IsNaN(scored[0].RawScore) {
		t.Fatal("raw score must not be NaN when no co-occurrence is recorded")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("spread maps to 0..100", func(t *testing.T) {
		t.Parallel()
		pool := []ScoredCandidate{{RawScore: 0.2}, {RawScore: 0.6}, {RawScore: 0.4}}
		Normalize(pool)
		want := []float64{0, 100, 50}
		for i := range pool {
			if math.Abs(pool[i].Score-want[i]) > 1e-9 {
				t.Errorf("pool[%d].Score = %v, want %v", i, pool[i].Score, want[i])
			}
		}
	})

	t.Run("equal raw scores map to 50", func(t *testing.T) {
		t.Parallel()
		pool := []ScoredCandidate{{RawScore: 0.7}, {RawScore: 0.7}}
		Normalize(pool)
		for i := range pool {
			if pool[i].Score != NormalizedMidpoint {
				t.Errorf("pool[%d].Score = %v, want 50", i, pool[i].Score)
			}
		}
	})

	t.Run("single candidate maps to 50", func(t *testing.T) {
		t.Parallel()
		pool := []ScoredCandidate{{RawScore: 0.9}}
		Normalize(pool)
		if pool[0].Score != NormalizedMidpoint {
			t.Errorf("Score = %v, want 50", pool[0].Score)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		t.Parallel()
		Normalize(nil)
	})
}

func TestSortByScore(t *testing.T) {
	t.Parallel()

	pool := []ScoredCandidate{
		{CandidateMovie: CandidateMovie{TMDBID: 3, MediaType: MediaMovie}, Score: 50},
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaTV}, Score: 50},
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaMovie}, Score: 50},
		{CandidateMovie: CandidateMovie{TMDBID: 9, MediaType: MediaMovie}, Score: 90},
	}
	SortByScore(pool)

	want := []TitleKey{{9, MediaMovie}, {1, MediaMovie}, {1, MediaTV}, {3, MediaMovie}}
	for i, k := range want {
		if pool[i].Key() != k {
			t.Errorf("pool[%d] = %v, want %v", i, pool[i].Key(), k)
		}
	}
}

func TestMergeByKey(t *testing.T) {
	t.Parallel()

	a := []ScoredCandidate{
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaMovie}, Algorithm: "a", Score: 40},
		{CandidateMovie: CandidateMovie{TMDBID: 2, MediaType: MediaMovie}, Algorithm: "a", Score: 80},
	}
	b := []ScoredCandidate{
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaMovie}, Algorithm: "b", Score: 60},
		{CandidateMovie: CandidateMovie{TMDBID: 2, MediaType: MediaMovie}, Algorithm: "b", Score: 80},
		{CandidateMovie: CandidateMovie{TMDBID: 1, MediaType: MediaTV}, Algorithm: "b", Score: 10},
	}

	merged := MergeByKey(a, b)
	if len(merged) != 3 {
		t.Fatalf("len = %d, want 3", len(merged))
	}
	if merged[0].Algorithm != "b" || merged[0].Score != 60 {
		t.Errorf("title 1 should take the higher score from b, got %s/%v", merged[0].Algorithm, merged[0].Score)
	}
	if merged[1].Algorithm != "a" {
		t.Errorf("tie should keep the first pool, got %s", merged[1].Algorithm)
	}
	if merged[2].MediaType != MediaTV {
		t.Errorf("movie and tv with the same id are distinct titles")
	}
}
