// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// minJWTSecretLength is the shortest accepted HMAC signing secret.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateMetadata(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

// validateMetadata validates the TMDB client settings. An empty API key
// is allowed and disables metadata enrichment.
func (c *Config) validateMetadata() error {
	m := c.Metadata
	if m.APIKey == "" {
		return nil
	}
	u, err := url.Parse(m.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TMDB_BASE_URL must be an absolute http(s) URL")
	}
	if m.CacheCapacity <= 0 {
		return fmt.Errorf("TMDB_CACHE_CAPACITY must be positive")
	}
	if m.CacheTTL <= 0 {
		return fmt.Errorf("TMDB_CACHE_TTL must be positive")
	}
	if m.RequestsPerSecond <= 0 || m.Burst <= 0 {
		return fmt.Errorf("TMDB_REQUESTS_PER_SECOND and TMDB_BURST must be positive")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend

	if r.CooldownDays < 0 {
		return fmt.Errorf("RECOMMEND_COOLDOWN_DAYS must not be negative")
	}
	if r.MinUserHistory < 0 {
		return fmt.Errorf("RECOMMEND_MIN_USER_HISTORY must not be negative")
	}
	if r.PersonSimilarityThreshold < 0 || r.PersonSimilarityThreshold > 1 {
		return fmt.Errorf("RECOMMEND_PERSON_SIMILARITY_THRESHOLD must be in [0,1]")
	}
	if r.GenreSimilarityThreshold < 0 || r.GenreSimilarityThreshold > 1 {
		return fmt.Errorf("RECOMMEND_GENRE_SIMILARITY_THRESHOLD must be in [0,1]")
	}
	if r.MaxTwins <= 0 || r.TitlesPerTwin <= 0 || r.MaxRecommendations <= 0 {
		return fmt.Errorf("RECOMMEND_MAX_TWINS, RECOMMEND_TITLES_PER_TWIN and RECOMMEND_MAX_RECOMMENDATIONS must be positive")
	}
	if r.MinTwinRating < 0 || r.MinTwinRating > 10 {
		return fmt.Errorf("RECOMMEND_MIN_TWIN_RATING must be in [0,10]")
	}

	if r.SimilarityWeight < 0 || r.RatingWeight < 0 || r.CooccurrenceWeight < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	sum := r.SimilarityWeight + r.RatingWeight + r.CooccurrenceWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}

	if r.ColdStartThreshold < 0 || r.HeavyUserThreshold <= r.ColdStartThreshold {
		return fmt.Errorf("RECOMMEND_HEAVY_USER_THRESHOLD (%d) must exceed RECOMMEND_COLD_START_THRESHOLD (%d)",
			r.HeavyUserThreshold, r.ColdStartThreshold)
	}

	if r.BlendTransitionVotes <= 0 {
		return fmt.Errorf("RECOMMEND_BLEND_TRANSITION_VOTES must be positive")
	}
	if r.BlendWeightFloor < 0 || r.BlendWeightCeiling > 1 || r.BlendWeightFloor >= r.BlendWeightCeiling {
		return fmt.Errorf("blend weight floor (%.2f) must be below ceiling (%.2f) within [0,1]",
			r.BlendWeightFloor, r.BlendWeightCeiling)
	}
	if r.BlendPriorStrength <= 0 {
		return fmt.Errorf("RECOMMEND_BLEND_PRIOR_STRENGTH must be positive")
	}

	if r.RunTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_RUN_TIMEOUT must be positive")
	}
	if r.ProfileRefreshInterval < 0 {
		return fmt.Errorf("RECOMMEND_PROFILE_REFRESH_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
