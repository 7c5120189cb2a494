// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package recommend implements the personalized recommendation pipeline.
//
// # Pipeline
//
// A run for one user proceeds as:
//
//	cold-start guard -> generators -> score/normalize -> merge
//	  -> filter (cooldown, own lists, session, preferences)
//	  -> sort -> truncate -> log -> result
//
// Generators (see the algorithms subpackage) produce candidate titles from
// the user's taste twins. Scoring combines twin similarity, rating and
// co-occurrence into a raw score, then rescales each generator's pool onto
// [0,100]. The filter removes anything the user already has, anything shown
// within the cooldown window, and anything already shown in the current
// session.
//
// # Failure semantics
//
// Engine.Run never returns an error. Cold start, empty pools, store
// failures and deadline expiry all produce an empty Result; the cause is
// logged. A single failing generator contributes no candidates and the run
// continues with the rest.
//
// # Outcomes
//
// OutcomeTracker aggregates recommendation log entries and the user's
// later list changes into acceptance statistics, per-algorithm
// performance, and user segments.
//
// # Rating blend
//
// BlendRating merges an external aggregate rating with the platform's
// community rating. It is a pure function used wherever a display score
// is needed.
package recommend
