// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"time"
)

// The interfaces below are implemented by the database package. Keeping
// them here lets the pipeline be tested with in-memory fakes.

// ProfileStore reads and writes taste profiles.
type ProfileStore interface {
	// GetTasteProfile returns the user's profile. A user without a stored
	// profile gets an empty profile and no error.
	GetTasteProfile(ctx context.Context, userID string) (*TasteProfile, error)

	// SaveTasteProfile overwrites the user's profile.
	SaveTasteProfile(ctx context.Context, userID string, profile *TasteProfile) error

	// ListUserIDs returns every known user id in a stable order.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// WatchListStore reads users' personal lists.
type WatchListStore interface {
	// CountWatched returns the number of watched or rewatched entries.
	CountWatched(ctx context.Context, userID string) (int, error)

	// ListTitleKeys returns every title in the user's lists, any status.
	ListTitleKeys(ctx context.Context, userID string) (KeySet, error)

	// TopRatedTitles returns watched or rewatched titles rated at least
	// minRating, ordered by rating then external vote average, descending.
	TopRatedTitles(ctx context.Context, userID string, minRating float64, limit int) ([]RatedTitle, error)
}

// LogStore persists recommendation log entries.
type LogStore interface {
	// InsertLogEntries appends entries. Entry ids are assigned by the caller.
	InsertLogEntries(ctx context.Context, entries []LogEntry) error

	// RecentlyRecommended returns titles logged for the user at or after since.
	RecentlyRecommended(ctx context.Context, userID string, since time.Time) (KeySet, error)

	// GetLogEntry returns ErrLogNotFound for unknown ids.
	GetLogEntry(ctx context.Context, id string) (*LogEntry, error)

	// SetLogAction sets the action if none is recorded yet and reports
	// whether a row was updated.
	SetLogAction(ctx context.Context, id string, action Action, at time.Time) (bool, error)
}

// OutcomeStore aggregates recommendation outcomes. An empty userID means
// all users; an empty algorithm means all algorithms; a zero since means
// no lower bound.
type OutcomeStore interface {
	OutcomeCounts(ctx context.Context, userID, algorithm string, since time.Time) ([]DayCounts, error)
	AlgorithmCounts(ctx context.Context, userID string, since time.Time) ([]AlgorithmCounts, error)

	// UserWatchCounts returns the watched count of every user, including zeros.
	UserWatchCounts(ctx context.Context) (map[string]int, error)
}

// SessionStore keeps per-session shown titles. Sessions are scoped to
// their user: the same session id under another user is a different
// session.
type SessionStore interface {
	// Load returns the session, or an empty one for an unknown id.
	Load(ctx context.Context, userID, sessionID string) (*SessionState, error)

	// MarkShown adds keys to the session and extends its lifetime.
	MarkShown(ctx context.Context, userID, sessionID string, keys []TitleKey) error
}

// Enricher fills release year and genres on candidates. Unknown values
// are left at zero.
type Enricher interface {
	Enrich(ctx context.Context, candidates []ScoredCandidate)
}

// RatingLookup returns the blended display rating for a title, or nil
// when none is available.
type RatingLookup interface {
	CineChanceRating(ctx context.Context, key TitleKey) (*float64, error)
}

// Generator produces a candidate pool for a user.
type Generator interface {
	Name() string
	Generate(ctx context.Context, userID string, profile *TasteProfile) ([]CandidateMovie, error)
}
