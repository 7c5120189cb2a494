// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package metadata

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cinechance/recommender/internal/recommend"
)

// Enricher fills release year and genres on candidates from a Source.
// Lookups that fail leave the fields unknown.
type Enricher struct {
	source      Source
	concurrency int
	logger      zerolog.Logger
}

// NewEnricher creates an enricher with bounded lookup concurrency.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEnricher(source Source, concurrency int, logger zerolog.Logger) *Enricher {
	if concurrency < 1 {
		concurrency = 8
	}
	return &Enricher{
		source:      source,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich updates candidates in place.
func (e *Enricher) Enrich(ctx context.Context, candidates []recommend.ScoredCandidate) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i := range candidates {
		c := &candidates[i]
		if c.ReleaseYear > 0 && len(c.GenreIDs) > 0 {
			continue
		}
		g.Go(func() error {
			d, err := e.source.GetDetails(ctx, c.MediaType, c.TMDBID)
			if err != nil {
				e.logger.Debug().Err(err).Str("title", c.Key().String()).Msg("Enrichment lookup failed")
				return nil
			}
			if c.ReleaseYear == 0 {
				c.ReleaseYear = d.ReleaseYear
			}
			if len(c.GenreIDs) == 0 {
				c.GenreIDs = append([]int(nil), d.GenreIDs...)
			}
			if c.ExternalVoteAverage == 0 {
				c.ExternalVoteAverage = d.VoteAverage
			}
			return nil
		})
	}
	_ = g.Wait()
}
