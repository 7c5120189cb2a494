// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the recommendation pipeline.
type Config struct {
	// CooldownDays suppresses titles logged for the user within this window.
	CooldownDays int `json:"cooldown_days"`

	// MinUserHistory is the watched/rewatched count below which a user is
	// treated as cold start.
	MinUserHistory int `json:"min_user_history"`

	// MaxRecommendations caps the items returned by one run.
	MaxRecommendations int `json:"max_recommendations"`

	// MaxSources caps the provenance user ids stored per log entry.
	MaxSources int `json:"max_sources"`

	// RunTimeout is the overall deadline for a run.
	RunTimeout time.Duration `json:"run_timeout"`

	Weights  ScoreWeights  `json:"weights"`
	Blend    BlendConfig   `json:"blend"`
	Segments SegmentConfig `json:"segments"`
}

// ScoreWeights weights the three scoring signals. They must sum to 1.0.
type ScoreWeights struct {
	Similarity   float64 `json:"similarity"`
	Rating       float64 `json:"rating"`
	Cooccurrence float64 `json:"cooccurrence"`
}

// BlendConfig parameterizes BlendRating.
type BlendConfig struct {
	// TransitionVotes is the community vote count at which the weight
	// switches from Bayesian shrinkage to vote share.
	TransitionVotes int     `json:"transition_votes"`
	WeightFloor     float64 `json:"weight_floor"`
	WeightCeiling   float64 `json:"weight_ceiling"`
	PriorStrength   float64 `json:"prior_strength"`
}

// SegmentConfig holds the user segmentation thresholds.
type SegmentConfig struct {
	ColdStartThreshold int `json:"cold_start_threshold"`
	HeavyUserThreshold int `json:"heavy_user_threshold"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		CooldownDays:       7,
		MinUserHistory:     10,
		MaxRecommendations: 12,
		MaxSources:         3,
		RunTimeout:         10 * time.Second,
		Weights:            DefaultScoreWeights(),
		Blend:              DefaultBlendConfig(),
		Segments: SegmentConfig{
			ColdStartThreshold: 10,
			HeavyUserThreshold: 500,
		},
	}
}

// DefaultScoreWeights returns 0.5 similarity, 0.3 rating, 0.2 co-occurrence.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Similarity: 0.5, Rating: 0.3, Cooccurrence: 0.2}
}

// DefaultBlendConfig returns the standard blend parameters.
func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		TransitionVotes: 50,
		WeightFloor:     0.15,
		WeightCeiling:   0.80,
		PriorStrength:   2,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.CooldownDays < 0 {
		return fmt.Errorf("cooldown_days must be non-negative, got %d", c.CooldownDays)
	}
	if c.MinUserHistory < 0 {
		return fmt.Errorf("min_user_history must be non-negative, got %d", c.MinUserHistory)
	}
	if c.MaxRecommendations < 1 {
		return fmt.Errorf("max_recommendations must be positive, got %d", c.MaxRecommendations)
	}
	if c.MaxSources < 1 {
		return fmt.Errorf("max_sources must be positive, got %d", c.MaxSources)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", c.RunTimeout)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Blend.Validate(); err != nil {
		return err
	}
	if c.Segments.ColdStartThreshold < 0 || c.Segments.HeavyUserThreshold <= c.Segments.ColdStartThreshold {
		return fmt.Errorf("segments: heavy_user_threshold (%d) must exceed cold_start_threshold (%d)",
			c.Segments.HeavyUserThreshold, c.Segments.ColdStartThreshold)
	}
	return nil
}

// Validate checks that weights are non-negative and sum to 1.0.
func (w ScoreWeights) Validate() error {
	if w.Similarity < 0 || w.Rating < 0 || w.Cooccurrence < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", w)
	}
	if sum := w.Similarity + w.Rating + w.Cooccurrence; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Validate checks the blend parameters.
func (b BlendConfig) Validate() error {
	if b.TransitionVotes < 1 {
		return fmt.Errorf("blend.transition_votes must be positive, got %d", b.TransitionVotes)
	}
	if b.WeightFloor < 0 || b.WeightCeiling > 1 || b.WeightFloor >= b.WeightCeiling {
		return fmt.Errorf("blend weights must satisfy 0 <= floor < ceiling <= 1, got [%f, %f]",
			b.WeightFloor, b.WeightCeiling)
	}
	if b.PriorStrength <= 0 {
		return fmt.Errorf("blend.prior_strength must be positive, got %f", b.PriorStrength)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
