// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"math"
	"sort"
)

// Normalized score bounds. A pool whose raw scores are all equal maps to
// NormalizedMidpoint.
const (
	NormalizedMin      = 0.0
	NormalizedMax      = 100.0
	NormalizedMidpoint = 50.0
)

// RatingSignal returns the candidate's rating rescaled to [0,1]. The
// source twin's rating is used when present; otherwise half the external
// vote average stands in for it.
func RatingSignal(c *CandidateMovie) float64 {
	rating := c.ExternalVoteAverage / 2
	if c.UserRatingOfSource != nil {
		rating = *c.UserRatingOfSource
	}
	return clamp01(rating / 10)
}

// Score computes the raw score of every candidate in a single generator's
// pool. Co-occurrence is relative to the largest count in the pool.
func Score(candidates []CandidateMovie, algorithm string, w ScoreWeights) []ScoredCandidate {
	maxCooccurrence := 1
	for i := range candidates {
		if candidates[i].CooccurrenceCount > maxCooccurrence {
			maxCooccurrence = candidates[i].CooccurrenceCount
		}
	}

	scored := make([]ScoredCandidate, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		similarity := clamp01(c.SimilarityScore)
		cooccurrence := clamp01(float64(c.CooccurrenceCount) / float64(maxCooccurrence))

		scored[i] = ScoredCandidate{
			CandidateMovie: *c,
			Algorithm:      algorithm,
			RawScore: w.Similarity*similarity +
				w.Rating*RatingSignal(c) +
				w.Cooccurrence*cooccurrence,
		}
	}
	return scored
}

// Normalize rescales raw scores linearly so the pool minimum maps to 0
// and the maximum to 100. If every raw score is equal, all map to 50.
func Normalize(scored []ScoredCandidate) {
	if len(scored) == 0 {
		return
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range scored {
		lo = math.Min(lo, scored[i].RawScore)
		hi = math.Max(hi, scored[i].RawScore)
	}

	spread := hi - lo
	for i := range scored {
		if spread == 0 {
			scored[i].Score = NormalizedMidpoint
			continue
		}
		s := (scored[i].RawScore - lo) / spread * NormalizedMax
		scored[i].Score = math.Max(NormalizedMin, math.Min(NormalizedMax, s))
	}
}

// SortByScore orders candidates by descending score. Ties are broken by
// TMDB id then media type so that the order is stable across runs.
func SortByScore(scored []ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := &scored[i], &scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TMDBID != b.TMDBID {
			return a.TMDBID < b.TMDBID
		}
		return a.MediaType < b.MediaType
	})
}

// MergeByKey combines pools from several generators, keeping the highest
// scoring entry per title. Input order decides ties.
func MergeByKey(pools ...[]ScoredCandidate) []ScoredCandidate {
	index := make(map[TitleKey]int)
	var merged []ScoredCandidate

	for _, pool := range pools {
		for i := range pool {
			key := pool[i].Key()
			if at, ok := index[key]; ok {
				if pool[i].Score > merged[at].Score {
					merged[at] = pool[i]
				}
				continue
			}
			index[key] = len(merged)
			merged = append(merged, pool[i])
		}
	}
	return merged
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
