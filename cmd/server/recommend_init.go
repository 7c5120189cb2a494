// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/cache"
	"github.com/cinechance/recommender/internal/config"
	"github.com/cinechance/recommender/internal/database"
	"github.com/cinechance/recommender/internal/metadata"
	"github.com/cinechance/recommender/internal/ratings"
	"github.com/cinechance/recommender/internal/recommend"
	"github.com/cinechance/recommender/internal/recommend/algorithms"
	"github.com/cinechance/recommender/internal/session"
	"github.com/cinechance/recommender/internal/supervisor/services"
	"github.com/cinechance/recommender/internal/tasteprofile"
)

// enrichConcurrency bounds metadata lookups while filtering one run.
const enrichConcurrency = 8

// RecommendComponents holds the wired recommendation pipeline.
type RecommendComponents struct {
	Engine   *recommend.Engine
	Outcomes *recommend.OutcomeTracker
	Ratings  *ratings.Service
	Metadata *metadata.Client
	Profiles *tasteprofile.Builder
}

// sessionStore is the chosen session backend. Redis stores also answer
// health checks; the in-process store needs a periodic sweep.
type sessionStore struct {
	recommend.SessionStore
	pinger interface {
		Ping(ctx context.Context) error
	}
	cleaner services.SessionCleaner
}

// initSessions returns a Redis store when REDIS_ADDR is set and an
// in-process store otherwise.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func initSessions(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (sessionStore, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info().Msg("Using in-process session store (REDIS_ADDR not set)")
		store := session.NewMemoryStore(session.DefaultMemoryCapacity, cfg.Redis.SessionTTL)
		return sessionStore{SessionStore: store, cleaner: store}, func() {}, nil
	}

	client, err := session.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return sessionStore{}, nil, err
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis session store")

	store := session.NewRedisStore(client, cfg.Redis.SessionTTL, logger)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing redis client")
		}
	}
	return sessionStore{SessionStore: store, pinger: store}, closeFn, nil
}

// initRecommend wires the metadata client, rating blender, engine,
// twin generators, outcome tracker and profile builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func initRecommend(cfg *config.Config, db *database.DB, sessions recommend.SessionStore, logger zerolog.Logger) (*RecommendComponents, error) {
	engineCfg := buildEngineConfig(&cfg.Recommend)

	details := cache.NewBounded[*metadata.Details](cfg.Metadata.CacheCapacity, cfg.Metadata.CacheTTL)
	client := metadata.NewClient(&cfg.Metadata, details, logger)
	if cfg.Metadata.APIKey == "" {
		logger.Warn().Msg("TMDB_API_KEY is not set; metadata lookups will fail and ratings fall back to community data")
	}

	engine, err := recommend.NewEngine(engineCfg, recommend.Dependencies{
		Profiles: db,
		Lists:    db,
		Logs:     db,
		Sessions: sessions,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommendation engine: %w", err)
	}

	person, err := algorithms.NewPersonTwins(db, db, personTwinsConfig(&cfg.Recommend), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create person twins generator: %w", err)
	}
	engine.RegisterGenerator(person)

	if cfg.Recommend.GenreTwinsEnabled {
		genre, err := algorithms.NewGenreTwins(db, db, genreTwinsConfig(&cfg.Recommend), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create genre twins generator: %w", err)
		}
		engine.RegisterGenerator(genre)
	}

	ratingSvc := ratings.NewService(db, client, engineCfg.Blend, logger)
	engine.SetEnricher(metadata.NewEnricher(client, enrichConcurrency, logger))
	engine.SetRatingLookup(ratingSvc)

	logger.Info().
		Strs("generators", engine.Generators()).
		Int("cooldown_days", engineCfg.CooldownDays).
		Int("max_recommendations", engineCfg.MaxRecommendations).
		Msg("Recommendation engine initialized")

	return &RecommendComponents{
		Engine:   engine,
		Outcomes: recommend.NewOutcomeTracker(db, db, engineCfg.Segments, logger),
		Ratings:  ratingSvc,
		Metadata: client,
		Profiles: tasteprofile.NewBuilder(db, db, client, tasteprofile.DefaultConfig(), logger),
	}, nil
}

// buildEngineConfig maps the recommend settings onto the pipeline config.
func buildEngineConfig(rc *config.RecommendConfig) *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.CooldownDays = rc.CooldownDays
	cfg.MinUserHistory = rc.MinUserHistory
	cfg.MaxRecommendations = rc.MaxRecommendations
	cfg.RunTimeout = rc.RunTimeout
	cfg.Weights = recommend.ScoreWeights{
		Similarity:   rc.SimilarityWeight,
		Rating:       rc.RatingWeight,
		Cooccurrence: rc.CooccurrenceWeight,
	}
	cfg.Blend = recommend.BlendConfig{
		TransitionVotes: rc.BlendTransitionVotes,
		WeightFloor:     rc.BlendWeightFloor,
		WeightCeiling:   rc.BlendWeightCeiling,
		PriorStrength:   rc.BlendPriorStrength,
	}
	cfg.Segments = recommend.SegmentConfig{
		ColdStartThreshold: rc.ColdStartThreshold,
		HeavyUserThreshold: rc.HeavyUserThreshold,
	}
	return cfg
}

func personTwinsConfig(rc *config.RecommendConfig) algorithms.TwinConfig {
	tc := algorithms.DefaultPersonTwinsConfig()
	applyTwinSettings(&tc, rc)
	tc.SimilarityThreshold = rc.PersonSimilarityThreshold
	return tc
}

func genreTwinsConfig(rc *config.RecommendConfig) algorithms.TwinConfig {
	tc := algorithms.DefaultGenreTwinsConfig()
	applyTwinSettings(&tc, rc)
	tc.SimilarityThreshold = rc.GenreSimilarityThreshold
	return tc
}

func applyTwinSettings(tc *algorithms.TwinConfig, rc *config.RecommendConfig) {
	tc.MinUserHistory = rc.MinUserHistory
	tc.MaxTwins = rc.MaxTwins
	tc.TitlesPerTwin = rc.TitlesPerTwin
	tc.MinTwinRating = rc.MinTwinRating
}
