// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package ratings computes the blended CineChance rating for a title from
// the community average and the TMDB vote average.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/metadata"
	"github.com/cinechance/recommender/internal/recommend"
)

// CommunityStore returns the average of positive user ratings for a title
// and how many ratings contributed.
type CommunityStore interface {
	CommunityRating(ctx context.Context, key recommend.TitleKey) (*float64, int, error)
}

// Rating is the breakdown served by the ratings endpoint.
type Rating struct {
	TMDBID           int                 `json:"tmdbId"`
	MediaType        recommend.MediaType `json:"mediaType"`
	CommunityRating  *float64            `json:"communityRating"`
	CommunityVotes   int                 `json:"communityVotes"`
	ExternalRating   *float64            `json:"externalRating"`
	ExternalVotes    int                 `json:"externalVotes"`
	CineChanceRating *float64            `json:"cineChanceRating"`
}

// Service looks up and blends ratings.
type Service struct {
	community CommunityStore
	source    metadata.Source
	blend     recommend.BlendConfig
	logger    zerolog.Logger
}

// NewService creates a rating service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(community CommunityStore, source metadata.Source, blend recommend.BlendConfig, logger zerolog.Logger) *Service {
	return &Service{
		community: community,
		source:    source,
		blend:     blend,
		logger:    logger.With().Str("component", "ratings").Logger(),
	}
}

// Lookup returns the rating breakdown for a title. A title TMDB does not
// know falls back to the community average alone.
func (s *Service) Lookup(ctx context.Context, key recommend.TitleKey) (*Rating, error) {
	if !key.MediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", recommend.ErrInvalidMediaType, key.MediaType)
	}

	avg, votes, err := s.community.CommunityRating(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("community rating for %s: %w", key, err)
	}
	r := &Rating{
		TMDBID:          key.TMDBID,
		MediaType:       key.MediaType,
		CommunityRating: avg,
		CommunityVotes:  votes,
	}

	details, err := s.source.GetDetails(ctx, key.MediaType, key.TMDBID)
	switch {
	case err == nil:
		ext := details.VoteAverage
		r.ExternalRating = &ext
		r.ExternalVotes = details.VoteCount
		blended := recommend.BlendRating(ext, details.VoteCount, avg, votes, s.blend)
		r.CineChanceRating = &blended
	case errors.Is(err, metadata.ErrNotFound), errors.Is(err, metadata.ErrCircuitOpen):
		s.logger.Debug().Err(err).Str("title", key.String()).Msg("External rating unavailable")
		if avg != nil && *avg > 0 {
			v := *avg
			r.CineChanceRating = &v
		}
	default:
		return nil, fmt.Errorf("external rating for %s: %w", key, err)
	}
	return r, nil
}

// CineChanceRating returns only the blended rating, nil when neither source
// has data.
func (s *Service) CineChanceRating(ctx context.Context, key recommend.TitleKey) (*float64, error) {
	r, err := s.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	return r.CineChanceRating, nil
}

var _ recommend.RatingLookup = (*Service)(nil)
