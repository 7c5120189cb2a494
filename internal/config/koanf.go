// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinechance/config.yaml",
	"/etc/cinechance/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/cinechance.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Redis: RedisConfig{
			Addr:       "", // in-process sessions unless configured
			DB:         0,
			SessionTTL: 2 * time.Hour,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metadata: MetadataConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			APIKey:            "",
			Language:          "en-US",
			Timeout:           10 * time.Second,
			CacheCapacity:     1000,
			CacheTTL:          30 * time.Minute,
			RequestsPerSecond: 20,
			Burst:             10,
		},
		Recommend: RecommendConfig{
			CooldownDays:              7,
			MinUserHistory:            10,
			PersonSimilarityThreshold: 0.5,
			GenreSimilarityThreshold:  0.6,
			MaxTwins:                  15,
			TitlesPerTwin:             10,
			MinTwinRating:             7,
			MaxRecommendations:        12,
			GenreTwinsEnabled:         true,
			SimilarityWeight:          0.5,
			RatingWeight:              0.3,
			CooccurrenceWeight:        0.2,
			ColdStartThreshold:        10,
			HeavyUserThreshold:        500,
			BlendTransitionVotes:      50,
			BlendWeightFloor:          0.15,
			BlendWeightCeiling:        0.80,
			BlendPriorStrength:        2,
			RunTimeout:                10 * time.Second,
			ProfileRefreshInterval:    6 * time.Hour,
			ProfileRefreshOnStartup:   true,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults. The result is validated before it
// is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load is an alias for LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Redis
	"redis_addr":        "redis.addr",
	"redis_password":    "redis.password",
	"redis_db":          "redis.db",
	"redis_session_ttl": "redis.session_ttl",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Metadata provider
	"tmdb_base_url":            "metadata.base_url",
	"tmdb_api_key":             "metadata.api_key",
	"tmdb_language":            "metadata.language",
	"tmdb_timeout":             "metadata.timeout",
	"tmdb_cache_capacity":      "metadata.cache_capacity",
	"tmdb_cache_ttl":           "metadata.cache_ttl",
	"tmdb_requests_per_second": "metadata.requests_per_second",
	"tmdb_burst":               "metadata.burst",

	// Recommendation pipeline
	"recommend_cooldown_days":               "recommend.cooldown_days",
	"recommend_min_user_history":            "recommend.min_user_history",
	"recommend_person_similarity_threshold": "recommend.person_similarity_threshold",
	"recommend_genre_similarity_threshold":  "recommend.genre_similarity_threshold",
	"recommend_max_twins":                   "recommend.max_twins",
	"recommend_titles_per_twin":             "recommend.titles_per_twin",
	"recommend_min_twin_rating":             "recommend.min_twin_rating",
	"recommend_max_recommendations":         "recommend.max_recommendations",
	"recommend_genre_twins_enabled":         "recommend.genre_twins_enabled",
	"recommend_similarity_weight":           "recommend.similarity_weight",
	"recommend_rating_weight":               "recommend.rating_weight",
	"recommend_cooccurrence_weight":         "recommend.cooccurrence_weight",
	"recommend_cold_start_threshold":        "recommend.cold_start_threshold",
	"recommend_heavy_user_threshold":        "recommend.heavy_user_threshold",
	"recommend_blend_transition_votes":      "recommend.blend_transition_votes",
	"recommend_blend_weight_floor":          "recommend.blend_weight_floor",
	"recommend_blend_weight_ceiling":        "recommend.blend_weight_ceiling",
	"recommend_blend_prior_strength":        "recommend.blend_prior_strength",
	"recommend_run_timeout":                 "recommend.run_timeout",
	"recommend_profile_refresh_interval":    "recommend.profile_refresh_interval",
	"recommend_profile_refresh_on_startup":  "recommend.profile_refresh_on_startup",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - TMDB_API_KEY -> metadata.api_key
//   - RECOMMEND_COOLDOWN_DAYS -> recommend.cooldown_days
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
