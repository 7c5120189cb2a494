// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Filters are user-chosen restrictions on a recommendation request.
// Zero values disable the corresponding rule.
type Filters struct {
	Types     []MediaType `json:"types,omitempty"`
	MinRating float64     `json:"minRating,omitempty"`
	YearFrom  int         `json:"yearFrom,omitempty"`
	YearTo    int         `json:"yearTo,omitempty"`
	Genres    []int       `json:"genres,omitempty"`
}

// NeedsEnrichment reports whether the filters depend on release year or
// genres, which candidates do not carry until enriched.
func (f *Filters) NeedsEnrichment() bool {
	return f.YearFrom > 0 || f.YearTo > 0 || len(f.Genres) > 0
}

// allows reports whether c passes the preference rules. Unknown year or
// genres pass.
func (f *Filters) allows(c *CandidateMovie) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, c.MediaType) {
		return false
	}
	if f.MinRating > 0 && c.ExternalVoteAverage < f.MinRating {
		return false
	}
	if c.ReleaseYear > 0 {
		if f.YearFrom > 0 && c.ReleaseYear < f.YearFrom {
			return false
		}
		if f.YearTo > 0 && c.ReleaseYear > f.YearTo {
			return false
		}
	}
	if len(f.Genres) > 0 && len(c.GenreIDs) > 0 {
		shared := false
		for _, g := range c.GenreIDs {
			if slices.Contains(f.Genres, g) {
				shared = true
				break
			}
		}
		if !shared {
			return false
		}
	}
	return true
}

// FilterStats counts candidates removed by each rule. A candidate
// excluded by several rules is counted once, under the first matching rule.
type FilterStats struct {
	Cooldown   int
	OwnList    int
	Session    int
	Preference int
}

// FilterPipeline removes candidates the user should not see.
type FilterPipeline struct {
	logs         LogStore
	lists        WatchListStore
	cooldownDays int
	now          func() time.Time
}

// NewFilterPipeline creates a filter with the given cooldown window.
func NewFilterPipeline(logs LogStore, lists WatchListStore, cooldownDays int) *FilterPipeline {
	return &FilterPipeline{
		logs:         logs,
		lists:        lists,
		cooldownDays: cooldownDays,
		now:          time.Now,
	}
}

// FilterKeys drops candidates that were logged for the user within the
// cooldown window, that are in any of the user's lists, or that were
// shown earlier in the session. These rules need only the title key, so
// they run before enrichment; ApplyPreferences runs after it. The input
// order is preserved. An empty result is not an error.
func (p *FilterPipeline) FilterKeys(ctx context.Context, candidates []ScoredCandidate, userID string, session *SessionState) ([]ScoredCandidate, FilterStats, error) {
	var stats FilterStats
	if len(candidates) == 0 {
		return candidates, stats, nil
	}

	since := p.now().Add(-time.Duration(p.cooldownDays) * 24 * time.Hour)
	recent, err := p.logs.RecentlyRecommended(ctx, userID, since)
	if err != nil {
		return nil, stats, fmt.Errorf("load cooldown set: %w", err)
	}

	owned, err := p.lists.ListTitleKeys(ctx, userID)
	if err != nil {
		return nil, stats, fmt.Errorf("load user lists: %w", err)
	}

	kept := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		key := c.Key()
		switch {
		case recent.Has(key):
			stats.Cooldown++
		case owned.Has(key):
			stats.OwnList++
		case session.WasShown(key):
			stats.Session++
		default:
			kept = append(kept, *c)
		}
	}
	return kept, stats, nil
}

// ApplyPreferences keeps the candidates allowed by prefs, in order, and
// adds the rejected count to stats.Preference.
func ApplyPreferences(candidates []ScoredCandidate, prefs Filters, stats *FilterStats) []ScoredCandidate {
	kept := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		if !prefs.allows(&candidates[i].CandidateMovie) {
			stats.Preference++
			continue
		}
		kept = append(kept, candidates[i])
	}
	return kept
}
