// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package tasteprofile rebuilds user taste profiles from watch history and
// title credits.
//
// Every watched or rewatched title contributes rating/10 (0.5 when unrated)
// to each of its top billed actors, each director and each genre. A rebuild
// replaces the stored profile.
package tasteprofile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cinechance/recommender/internal/metadata"
	"github.com/cinechance/recommender/internal/metrics"
	"github.com/cinechance/recommender/internal/recommend"
)

// HistoryStore returns a user's watched and rewatched titles.
type HistoryStore interface {
	WatchHistory(ctx context.Context, userID string) ([]recommend.RatedTitle, error)
}

// Config controls profile building.
type Config struct {
	// TopCast is how many billed actors of a title count.
	TopCast int

	// UnratedWeight is the contribution of a title without a user rating.
	UnratedWeight float64

	// FetchConcurrency bounds parallel metadata lookups per user.
	FetchConcurrency int

	// UserConcurrency bounds parallel users during RefreshAll.
	UserConcurrency int
}

// DefaultConfig returns the default builder configuration.
func DefaultConfig() Config {
	return Config{
		TopCast:          10,
		UnratedWeight:    0.5,
		FetchConcurrency: 4,
		UserConcurrency:  2,
	}
}

// RefreshStats summarizes a RefreshAll pass.
type RefreshStats struct {
	Users    int
	Failed   int
	Duration time.Duration
}

// Builder builds and stores taste profiles.
type Builder struct {
	history  HistoryStore
	profiles recommend.ProfileStore
	source   metadata.Source
	cfg      Config
	logger   zerolog.Logger
}

// NewBuilder creates a profile builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(history HistoryStore, profiles recommend.ProfileStore, source metadata.Source, cfg Config, logger zerolog.Logger) *Builder {
	def := DefaultConfig()
	if cfg.TopCast <= 0 {
		cfg.TopCast = def.TopCast
	}
	if cfg.UnratedWeight <= 0 {
		cfg.UnratedWeight = def.UnratedWeight
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = def.FetchConcurrency
	}
	if cfg.UserConcurrency <= 0 {
		cfg.UserConcurrency = def.UserConcurrency
	}
	return &Builder{
		history:  history,
		profiles: profiles,
		source:   source,
		cfg:      cfg,
		logger:   logger.With().Str("component", "tasteprofile").Logger(),
	}
}

// Build recomputes and saves the profile of one user. Titles whose
// metadata cannot be fetched are skipped.
func (b *Builder) Build(ctx context.Context, userID string) (profile *recommend.TasteProfile, err error) {
	defer func() { metrics.RecordProfileRefresh(err) }()

	titles, err := b.history.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watch history for %s: %w", userID, err)
	}

	details := make([]*metadata.Details, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.FetchConcurrency)
	for i, t := range titles {
		g.Go(func() error {
			d, err := b.source.GetDetails(gctx, t.MediaType, t.TMDBID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.logger.Debug().Err(err).Str("user_id", userID).Int("tmdb_id", t.TMDBID).Msg("Skipping title without metadata")
				return nil
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", userID, err)
	}

	profile = recommend.NewTasteProfile()
	for i, t := range titles {
		if details[i] != nil {
			b.accumulate(profile, details[i], b.weight(t))
		}
	}

	if err := b.profiles.SaveTasteProfile(ctx, userID, profile); err != nil {
		return nil, fmt.Errorf("save taste profile for %s: %w", userID, err)
	}
	return profile, nil
}

func (b *Builder) weight(t recommend.RatedTitle) float64 {
	if t.UserRating == nil || *t.UserRating <= 0 {
		return b.cfg.UnratedWeight
	}
	return *t.UserRating / 10
}

func (b *Builder) accumulate(p *recommend.TasteProfile, d *metadata.Details, w float64) {
	for i, actor := range d.Cast {
		if i == b.cfg.TopCast {
			break
		}
		p.Actors[actor.ID] += w
	}
	for _, director := range d.Directors {
		p.Directors[director.ID] += w
	}
	for _, genre := range d.GenreIDs {
		p.Genres[genre] += w
	}
}

// RefreshAll rebuilds every user's profile. A failing user is logged and
// counted; only a canceled context or a failing user listing aborts.
func (b *Builder) RefreshAll(ctx context.Context) (RefreshStats, error) {
	start := time.Now()
	users, err := b.profiles.ListUserIDs(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("list users: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.UserConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			if _, err := b.Build(gctx, userID); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failed.Add(1)
				b.logger.Warn().Err(err).Str("user_id", userID).Msg("Taste profile rebuild failed")
			}
			return nil
		})
	}
	err = g.Wait()

	stats := RefreshStats{Users: len(users), Failed: int(failed.Load()), Duration: time.Since(start)}
	if err != nil {
		return stats, fmt.Errorf("refresh taste profiles: %w", err)
	}
	b.logger.Info().
		Int("users", stats.Users).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Taste profiles refreshed")
	return stats, nil
}
