// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package algorithms provides candidate generators for the recommendation
// engine.
//
// # Taste twins
//
// A taste twin is another user whose taste profile is similar enough to
// the target user's. The twin generators scan the user population,
// keep users at or above a similarity threshold, and collect the titles
// those twins rated highly. Titles surfaced by several twins are merged
// into one candidate whose similarity is the mean over contributing twins.
//
// Two variants are provided:
//
//   - person_twins_v1: similarity is the mean of actor and director overlap
//   - genre_twins_v1: similarity is genre overlap
//
// Per-twin title fetches run concurrently; the merge runs afterwards in
// descending twin similarity so that results are deterministic.
package algorithms
