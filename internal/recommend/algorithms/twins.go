// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package algorithms

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cinechance/recommender/internal/recommend"
)

// Generator names recorded on log entries.
const (
	PersonTwinsName = "person_twins_v1"
	GenreTwinsName  = "genre_twins_v1"
)

// SimilarityFunc scores two taste profiles in [0,1].
type SimilarityFunc func(a, b *recommend.TasteProfile) float64

// ProfileScanner is an optional bulk interface for profile stores. When
// the store implements it, twin search reads all profiles in one pass
// instead of one query per user.
type ProfileScanner interface {
	ScanTasteProfiles(ctx context.Context, fn func(userID string, profile *recommend.TasteProfile) error) error
}

// TwinConfig contains parameters for a twin generator.
type TwinConfig struct {
	// MinUserHistory is the watched count below which the generator
	// returns nothing (cold start).
	MinUserHistory int

	// SimilarityThreshold is the inclusive minimum similarity for a twin.
	SimilarityThreshold float64

	// MaxTwins caps the number of twins, most similar first.
	MaxTwins int

	// TitlesPerTwin caps the titles taken from each twin.
	TitlesPerTwin int

	// MinTwinRating is the lowest twin rating (0-10) for a title to count.
	MinTwinRating float64

	// FetchConcurrency bounds parallel per-twin title fetches.
	FetchConcurrency int
}

// DefaultPersonTwinsConfig returns the default person twins parameters.
func DefaultPersonTwinsConfig() TwinConfig {
	return TwinConfig{
		MinUserHistory:      10,
		SimilarityThreshold: 0.5,
		MaxTwins:            15,
		TitlesPerTwin:       10,
		MinTwinRating:       7,
		FetchConcurrency:    5,
	}
}

// DefaultGenreTwinsConfig returns the default genre twins parameters.
// Genre profiles overlap more readily than person profiles, so the
// threshold is higher.
func DefaultGenreTwinsConfig() TwinConfig {
	cfg := DefaultPersonTwinsConfig()
	cfg.SimilarityThreshold = 0.6
	return cfg
}

// Validate checks the configuration.
func (c TwinConfig) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1], got %f", c.SimilarityThreshold)
	}
	if c.MaxTwins < 1 || c.TitlesPerTwin < 1 {
		return fmt.Errorf("max_twins and titles_per_twin must be positive, got %d and %d", c.MaxTwins, c.TitlesPerTwin)
	}
	if c.MinUserHistory < 0 {
		return fmt.Errorf("min_user_history must be non-negative, got %d", c.MinUserHistory)
	}
	return nil
}

// Twin is a similar user.
type Twin struct {
	UserID     string
	Similarity float64
}

// TwinGenerator generates candidates from the top-rated titles of taste twins.
type TwinGenerator struct {
	name       string
	similarity SimilarityFunc
	hasSignal  func(*recommend.TasteProfile) bool
	profiles   recommend.ProfileStore
	lists      recommend.WatchListStore
	cfg        TwinConfig
	logger     zerolog.Logger
}

// NewPersonTwins creates the person twins generator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPersonTwins(profiles recommend.ProfileStore, lists recommend.WatchListStore, cfg TwinConfig, logger zerolog.Logger) (*TwinGenerator, error) {
	return newTwinGenerator(PersonTwinsName, recommend.PersonSimilarity,
		(*recommend.TasteProfile).HasPersons, profiles, lists, cfg, logger)
}

// NewGenreTwins creates the genre twins generator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGenreTwins(profiles recommend.ProfileStore, lists recommend.WatchListStore, cfg TwinConfig, logger zerolog.Logger) (*TwinGenerator, error) {
	return newTwinGenerator(GenreTwinsName, recommend.GenreSimilarity,
		(*recommend.TasteProfile).HasGenres, profiles, lists, cfg, logger)
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newTwinGenerator(name string, sim SimilarityFunc, hasSignal func(*recommend.TasteProfile) bool,
	profiles recommend.ProfileStore, lists recommend.WatchListStore, cfg TwinConfig, logger zerolog.Logger) (*TwinGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	return &TwinGenerator{
		name:       name,
		similarity: sim,
		hasSignal:  hasSignal,
		profiles:   profiles,
		lists:      lists,
		cfg:        cfg,
		logger:     logger.With().Str("algorithm", name).Logger(),
	}, nil
}

// Name returns the generator name.
func (g *TwinGenerator) Name() string {
	return g.name
}

// Generate returns the merged candidate pool from the user's twins.
// Cold-start users and users whose profile carries no signal for this
// generator get an empty pool and no error.
func (g *TwinGenerator) Generate(ctx context.Context, userID string, profile *recommend.TasteProfile) ([]recommend.CandidateMovie, error) {
	watched, err := g.lists.CountWatched(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count watched: %w", err)
	}
	if watched < g.cfg.MinUserHistory {
		return nil, nil
	}
	if profile == nil || !g.hasSignal(profile) {
		return nil, nil
	}

	twins, err := g.FindTwins(ctx, userID, profile)
	if err != nil {
		return nil, err
	}
	if len(twins) == 0 {
		g.logger.Debug().Str("user_id", userID).Msg("No taste twins above threshold")
		return nil, nil
	}

	titles, err := g.fetchTwinTitles(ctx, twins)
	if err != nil {
		return nil, err
	}

	candidates := MergeTwinTitles(twins, titles)
	g.logger.Debug().
		Str("user_id", userID).
		Int("twins", len(twins)).
		Int("candidates", len(candidates)).
		Msg("Generated twin candidates")
	return candidates, nil
}

// FindTwins scans every other user and returns those whose similarity
// meets the threshold, most similar first, capped at MaxTwins. Ties are
// ordered by user id. Users whose profile cannot be read are skipped.
func (g *TwinGenerator) FindTwins(ctx context.Context, userID string, profile *recommend.TasteProfile) ([]Twin, error) {
	var twins []Twin
	consider := func(otherID string, other *recommend.TasteProfile) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if otherID == userID || other == nil {
			return nil
		}
		if sim := g.similarity(profile, other); sim >= g.cfg.SimilarityThreshold {
			twins = append(twins, Twin{UserID: otherID, Similarity: sim})
		}
		return nil
	}

	if scanner, ok := g.profiles.(ProfileScanner); ok {
		if err := scanner.ScanTasteProfiles(ctx, consider); err != nil {
			return nil, fmt.Errorf("scan taste profiles: %w", err)
		}
	} else {
		userIDs, err := g.profiles.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, otherID := range userIDs {
			if otherID == userID {
				continue
			}
			other, err := g.profiles.GetTasteProfile(ctx, otherID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				g.logger.Warn().Err(err).Str("user_id", otherID).Msg("skipping user with unreadable taste profile")
				continue
			}
			if err := consider(otherID, other); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(twins, func(i, j int) bool {
		if twins[i].Similarity != twins[j].Similarity {
			return twins[i].Similarity > twins[j].Similarity
		}
		return twins[i].UserID < twins[j].UserID
	})
	if len(twins) > g.cfg.MaxTwins {
		twins = twins[:g.cfg.MaxTwins]
	}
	return twins, nil
}

// fetchTwinTitles loads each twin's top-rated titles concurrently.
// results[i] belongs to twins[i].
func (g *TwinGenerator) fetchTwinTitles(ctx context.Context, twins []Twin) ([][]recommend.RatedTitle, error) {
	results := make([][]recommend.RatedTitle, len(twins))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.FetchConcurrency)
	for i, twin := range twins {
		eg.Go(func() error {
			titles, err := g.lists.TopRatedTitles(egCtx, twin.UserID, g.cfg.MinTwinRating, g.cfg.TitlesPerTwin)
			if err != nil {
				return fmt.Errorf("top rated titles of %s: %w", twin.UserID, err)
			}
			results[i] = titles
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MergeTwinTitles merges per-twin title lists into candidates. twins must
// be in descending similarity order and titles[i] must belong to twins[i].
// The first occurrence of a title seeds the candidate; later occurrences
// from other twins increment the co-occurrence count, append the twin to
// the sources, and fold the twin's similarity into a running mean.
func MergeTwinTitles(twins []Twin, titles [][]recommend.RatedTitle) []recommend.CandidateMovie {
	index := make(map[recommend.TitleKey]int)
	var out []recommend.CandidateMovie

	for i, twin := range twins {
		if i >= len(titles) {
			break
		}
		seen := make(map[recommend.TitleKey]struct{}, len(titles[i]))
		for _, t := range titles[i] {
			key := recommend.TitleKey{TMDBID: t.TMDBID, MediaType: t.MediaType}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if at, ok := index[key]; ok {
				c := &out[at]
				c.CooccurrenceCount++
				c.SourceUserIDs = append(c.SourceUserIDs, twin.UserID)
				c.SimilarityScore += (twin.Similarity - c.SimilarityScore) / float64(c.CooccurrenceCount)
				continue
			}

			title := t.Title
			if title == "" {
				title = fmt.Sprintf("Movie %d", t.TMDBID)
			}
			var rating *float64
			if t.UserRating != nil {
				r := *t.UserRating
				rating = &r
			}

			index[key] = len(out)
			out = append(out, recommend.CandidateMovie{
				TMDBID:              t.TMDBID,
				MediaType:           t.MediaType,
				Title:               title,
				UserRatingOfSource:  rating,
				ExternalVoteAverage: t.VoteAverage,
				SimilarityScore:     twin.Similarity,
				CooccurrenceCount:   1,
				SourceUserIDs:       []string{twin.UserID},
			})
		}
	}
	return out
}
