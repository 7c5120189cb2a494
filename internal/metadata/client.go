// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cinechance/recommender/internal/cache"
	"github.com/cinechance/recommender/internal/config"
	"github.com/cinechance/recommender/internal/metrics"
	"github.com/cinechance/recommender/internal/recommend"
)

const breakerName = "tmdb-api"

// Client is a TMDB API client with caching, rate limiting and a circuit
// breaker. It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client

	cache   *cache.Bounded[*Details]
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*Details]
	logger  zerolog.Logger

	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a TMDB client. The cache is shared by the caller; its
// capacity and TTL come from the metadata configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(cfg *config.MetadataConfig, details *cache.Bounded[*Details], logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if details == nil {
		details = cache.NewBounded[*Details](cfg.CacheCapacity, cfg.CacheTTL)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		client:         &http.Client{Timeout: timeout},
		cache:          details,
		limiter:        rate.NewLimiter(limit, burst),
		logger:         logger.With().Str("component", "metadata").Logger(),
		maxRetries:     2,
		retryBaseDelay: 500 * time.Millisecond,
	}
	c.cb = newBreaker(c.logger)
	return c
}

// newBreaker opens after a 60% failure rate over at least 10 requests.
// Missing titles count as successes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker[*Details] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*Details](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func cacheKey(mediaType recommend.MediaType, tmdbID int) string {
	return string(mediaType) + ":" + strconv.Itoa(tmdbID)
}

// GetDetails returns details with credits for a title.
func (c *Client) GetDetails(ctx context.Context, mediaType recommend.MediaType, tmdbID int) (*Details, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", recommend.ErrInvalidMediaType, mediaType)
	}
	key := cacheKey(mediaType, tmdbID)
	if d, ok := c.cache.Get(key); ok {
		metrics.RecordMetadataCache(true)
		return d, nil
	}
	metrics.RecordMetadataCache(false)

	d, err := c.cb.Execute(func() (*Details, error) {
		return c.fetchDetails(ctx, mediaType, tmdbID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.MetadataRequests.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		return nil, err
	}

	c.cache.Set(key, d)
	return d, nil
}

// Stats returns the details cache counters.
func (c *Client) Stats() cache.Stats {
	return c.cache.Stats()
}

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

func (c *Client) fetchDetails(ctx context.Context, mediaType recommend.MediaType, tmdbID int) (*Details, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("append_to_response", "credits")
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/%s/%d?%s", c.baseURL, mediaType, tmdbID, q.Encode())

	resp, err := c.doRequestWithRetry(ctx, reqURL)
	if err != nil {
		metrics.MetadataRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.MetadataRequests.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%s %d: %w", mediaType, tmdbID, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		metrics.MetadataRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw tmdbTitle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.MetadataRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode tmdb response: %w", err)
	}
	metrics.MetadataRequests.WithLabelValues("ok").Inc()

	if raw.ID == 0 {
		raw.ID = tmdbID
	}
	return raw.toDetails(mediaType), nil
}

// doRequestWithRetry performs a GET, retrying HTTP 429 with exponential
// backoff or the server's Retry-After.
func (c *Client) doRequestWithRetry(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		c.logger.Debug().Dur("delay", delay).Int("attempt", attempt+1).Msg("TMDB rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
