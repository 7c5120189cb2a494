// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package config loads and validates service configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables. See LoadWithKoanf for the precedence rules.
package config

import "time"

// Config holds all service configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
}

// RedisConfig holds the Redis connection used for recommendation sessions.
// When Addr is empty sessions are kept in process memory.
type RedisConfig struct {
	Addr       string        `koanf:"addr"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// SecurityConfig holds authentication and request limiting settings
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// MetadataConfig configures the TMDB metadata client.
type MetadataConfig struct {
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Language string        `koanf:"language"`
	Timeout  time.Duration `koanf:"timeout"`

	// CacheCapacity bounds the number of cached lookups; the oldest entry
	// is evicted when full.
	CacheCapacity int           `koanf:"cache_capacity"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`

	// RequestsPerSecond limits outbound calls to the provider.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// RecommendConfig holds the recommendation pipeline knobs.
type RecommendConfig struct {
	// CooldownDays suppresses titles shown to a user within this many days.
	// Default: 7
	CooldownDays int `koanf:"cooldown_days"`

	// MinUserHistory is the watched count below which a user is cold start.
	// Default: 10
	MinUserHistory int `koanf:"min_user_history"`

	PersonSimilarityThreshold float64 `koanf:"person_similarity_threshold"`
	GenreSimilarityThreshold  float64 `koanf:"genre_similarity_threshold"`
	MaxTwins                  int     `koanf:"max_twins"`
	TitlesPerTwin             int     `koanf:"titles_per_twin"`
	MinTwinRating             float64 `koanf:"min_twin_rating"`
	MaxRecommendations        int     `koanf:"max_recommendations"`
	GenreTwinsEnabled         bool    `koanf:"genre_twins_enabled"`

	// Scoring weights must sum to 1.0.
	SimilarityWeight   float64 `koanf:"similarity_weight"`
	RatingWeight       float64 `koanf:"rating_weight"`
	CooccurrenceWeight float64 `koanf:"cooccurrence_weight"`

	// Outcome segmentation thresholds.
	ColdStartThreshold int `koanf:"cold_start_threshold"`
	HeavyUserThreshold int `koanf:"heavy_user_threshold"`

	// Rating blend parameters.
	BlendTransitionVotes int     `koanf:"blend_transition_votes"`
	BlendWeightFloor     float64 `koanf:"blend_weight_floor"`
	BlendWeightCeiling   float64 `koanf:"blend_weight_ceiling"`
	BlendPriorStrength   float64 `koanf:"blend_prior_strength"`

	// RunTimeout is the overall deadline for one recommendation run.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// ProfileRefreshInterval controls how often taste profiles are rebuilt.
	// Zero disables the background refresh.
	ProfileRefreshInterval  time.Duration `koanf:"profile_refresh_interval"`
	ProfileRefreshOnStartup bool          `koanf:"profile_refresh_on_startup"`
}
