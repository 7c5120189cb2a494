// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"math"
	"slices"
)

// Overlap returns the weighted Jaccard similarity of two affinity maps:
// the sum of per-key minimum weights divided by the sum of per-key
// maximum weights, over keys with positive weight in either map.
//
// The result is in [0,1], symmetric, 1 for identical non-empty maps and 0
// when no positive-weight key is shared. Two empty maps have overlap 0.
func Overlap(a, b map[int]float64) float64 {
	keys := make([]int, 0, len(a)+len(b))
	for k, w := range a {
		if w > 0 {
			keys = append(keys, k)
		}
	}
	for k, w := range b {
		if w > 0 && !(a[k] > 0) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0
	}
	// Summing in key order keeps Overlap(a,b) and Overlap(b,a) bit-identical.
	slices.Sort(keys)

	var minSum, maxSum float64
	for _, k := range keys {
		wa, wb := math.Max(a[k], 0), math.Max(b[k], 0)
		minSum += math.Min(wa, wb)
		maxSum += math.Max(wa, wb)
	}
	return math.Min(minSum/maxSum, 1)
}

// PersonSimilarity is the mean of actor overlap and director overlap.
func PersonSimilarity(a, b *TasteProfile) float64 {
	if a == nil || b == nil {
		return 0
	}
	return (Overlap(a.Actors, b.Actors) + Overlap(a.Directors, b.Directors)) / 2
}

// GenreSimilarity is the genre overlap of two profiles.
func GenreSimilarity(a, b *TasteProfile) float64 {
	if a == nil || b == nil {
		return 0
	}
	return Overlap(a.Genres, b.Genres)
}
