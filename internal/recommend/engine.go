// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/metrics"
)

// DefaultSource is recorded in log context when a request names no surface.
const DefaultSource = "recommendations_page"

// Run outcomes reported to metrics.
const (
	outcomeServed    = "served"
	outcomeEmpty     = "empty"
	outcomeColdStart = "cold_start"
	outcomeFailed    = "failed"
)

// Dependencies are the stores an Engine reads and writes.
type Dependencies struct {
	Profiles ProfileStore
	Lists    WatchListStore
	Logs     LogStore
	Sessions SessionStore
}

func (d Dependencies) validate() error {
	if d.Profiles == nil || d.Lists == nil || d.Logs == nil || d.Sessions == nil {
		return errors.New("profiles, lists, logs and sessions stores are required")
	}
	return nil
}

// RunRequest describes one recommendation request.
type RunRequest struct {
	UserID    string
	SessionID string
	Source    string
	Filters   Filters
}

// Engine orchestrates candidate generation, scoring, filtering and
// logging. It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	deps   Dependencies
	filter *FilterPipeline

	generators []Generator
	enricher   Enricher
	ratings    RatingLookup
	mu         sync.RWMutex

	now   func() time.Time
	newID func() string
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Dependencies, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
		deps:   deps,
		filter: NewFilterPipeline(deps.Logs, deps.Lists, cfg.CooldownDays),
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// RegisterGenerator adds a candidate generator. Generators run in
// registration order for merge purposes.
func (e *Engine) RegisterGenerator(g Generator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generators = append(e.generators, g)
	e.logger.Info().Str("algorithm", g.Name()).Msg("Registered candidate generator")
}

// SetEnricher sets the component that fills release year and genres.
func (e *Engine) SetEnricher(en Enricher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enricher = en
}

// SetRatingLookup sets the source of display ratings attached to items.
func (e *Engine) SetRatingLookup(r RatingLookup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ratings = r
}

// Generators returns the names of registered generators.
func (e *Engine) Generators() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.generators))
	for i, g := range e.generators {
		names[i] = g.Name()
	}
	return names
}

// Run produces recommendations for a user. It never fails: cold start,
// an empty pool, any store error and deadline expiry all yield an empty
// result with zeroed metrics.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Run(ctx context.Context, req RunRequest) Result {
	start := e.now()
	logger := e.logger.With().
		Str("user_id", req.UserID).
		Str("session_id", req.SessionID).
		Str("operation", "recommend").
		Logger()

	ctx, cancel := context.WithTimeout(ctx, e.config.RunTimeout)
	defer cancel()

	result, outcome, err := e.run(ctx, req, &logger)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", e.now().Sub(start)).Msg("Recommendation run failed, returning empty result")
		metrics.RecordRecommendationRun(outcomeFailed, e.now().Sub(start), 0, 0, 0)
		return emptyResult()
	}

	metrics.RecordRecommendationRun(outcome, e.now().Sub(start),
		result.Metrics.CandidatesPoolSize, result.Metrics.AfterFilters, len(result.Items))
	logger.Debug().
		Str("outcome", outcome).
		Int("pool", result.Metrics.CandidatesPoolSize).
		Int("after_filters", result.Metrics.AfterFilters).
		Int("served", len(result.Items)).
		Msg("Recommendation run complete")
	return result
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) run(ctx context.Context, req RunRequest, logger *zerolog.Logger) (Result, string, error) {
	watched, err := e.deps.Lists.CountWatched(ctx, req.UserID)
	if err != nil {
		return Result{}, "", fmt.Errorf("count watched: %w", err)
	}
	if watched < e.config.MinUserHistory {
		logger.Debug().Int("watched", watched).Msg("Cold start, skipping recommendation run")
		return emptyResult(), outcomeColdStart, nil
	}

	profile, err := e.deps.Profiles.GetTasteProfile(ctx, req.UserID)
	if err != nil {
		return Result{}, "", fmt.Errorf("load taste profile: %w", err)
	}

	pool := MergeByKey(e.runGenerators(ctx, req.UserID, profile, logger)...)
	if err := ctx.Err(); err != nil {
		return Result{}, "", fmt.Errorf("candidate generation: %w", err)
	}
	poolSize := len(pool)
	if poolSize == 0 {
		return emptyResult(), outcomeEmpty, nil
	}

	session, err := e.loadSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return Result{}, "", err
	}

	kept, stats, err := e.filter.FilterKeys(ctx, pool, req.UserID, session)
	if err != nil {
		return Result{}, "", err
	}
	if enricher := e.getEnricher(); enricher != nil && len(kept) > 0 && req.Filters.NeedsEnrichment() {
		enricher.Enrich(ctx, kept)
	}
	kept = ApplyPreferences(kept, req.Filters, &stats)
	logger.Debug().
		Int("cooldown", stats.Cooldown).
		Int("own_list", stats.OwnList).
		Int("session", stats.Session).
		Int("preference", stats.Preference).
		Msg("Filtered candidates")

	afterFilters := len(kept)
	if afterFilters == 0 {
		return Result{Items: []Item{}, Metrics: Metrics{CandidatesPoolSize: poolSize}}, outcomeEmpty, nil
	}

	SortByScore(kept)
	if len(kept) > e.config.MaxRecommendations {
		kept = kept[:e.config.MaxRecommendations]
	}

	// A run that hit its deadline must not persist a partial pool.
	if err := ctx.Err(); err != nil {
		return Result{}, "", fmt.Errorf("before logging: %w", err)
	}

	items, entries := e.buildEntries(req, kept, poolSize)
	if err := e.deps.Logs.InsertLogEntries(ctx, entries); err != nil {
		return Result{}, "", fmt.Errorf("write recommendation log: %w", err)
	}

	if req.SessionID != "" {
		keys := make([]TitleKey, len(kept))
		for i := range kept {
			keys[i] = kept[i].Key()
		}
		if err := e.deps.Sessions.MarkShown(ctx, req.UserID, req.SessionID, keys); err != nil {
			logger.Warn().Err(err).Msg("Failed to record shown titles in session")
		}
	}

	e.attachRatings(ctx, items, logger)

	var total float64
	for i := range items {
		total += items[i].Score
	}

	return Result{
		Items: items,
		Metrics: Metrics{
			CandidatesPoolSize: poolSize,
			AfterFilters:       afterFilters,
			AvgScore:           total / float64(len(items)),
		},
	}, outcomeServed, nil
}

// loadSession returns an empty session when no id is given.
func (e *Engine) loadSession(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	if sessionID == "" {
		return NewSessionState(""), nil
	}
	session, err := e.deps.Sessions.Load(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// genResult holds one generator's scored pool.
type genResult struct {
	name string
	pool []ScoredCandidate
	err  error
}

// runGenerators runs all generators in parallel and returns their scored,
// normalized pools in registration order. Failed generators contribute
// nothing.
func (e *Engine) runGenerators(ctx context.Context, userID string, profile *TasteProfile, logger *zerolog.Logger) [][]ScoredCandidate {
	e.mu.RLock()
	generators := append([]Generator(nil), e.generators...)
	e.mu.RUnlock()

	results := make([]genResult, len(generators))
	var wg sync.WaitGroup
	for i, g := range generators {
		wg.Add(1)
		go func(idx int, g Generator) {
			defer wg.Done()
			results[idx] = e.runGenerator(ctx, userID, profile, g)
		}(i, g)
	}
	wg.Wait()

	pools := make([][]ScoredCandidate, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			logger.Warn().Err(r.err).Str("algorithm", r.name).Msg("Candidate generator failed, continuing without it")
			continue
		}
		pools = append(pools, r.pool)
	}
	return pools
}

func (e *Engine) runGenerator(ctx context.Context, userID string, profile *TasteProfile, g Generator) genResult {
	start := time.Now()
	candidates, err := g.Generate(ctx, userID, profile)
	metrics.RecordGenerator(g.Name(), time.Since(start), err)
	if err != nil {
		return genResult{name: g.Name(), err: err}
	}

	scored := Score(candidates, g.Name(), e.config.Weights)
	Normalize(scored)
	return genResult{name: g.Name(), pool: scored}
}

// buildEntries creates the returned items and their log entries.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) buildEntries(req RunRequest, kept []ScoredCandidate, poolSize int) ([]Item, []LogEntry) {
	source := req.Source
	if source == "" {
		source = DefaultSource
	}
	shownAt := e.now().UTC()

	items := make([]Item, len(kept))
	entries := make([]LogEntry, len(kept))
	for i := range kept {
		c := &kept[i]
		sources := c.SourceUserIDs
		if len(sources) > e.config.MaxSources {
			sources = sources[:e.config.MaxSources]
		}
		sources = append([]string(nil), sources...)

		id := e.newID()
		items[i] = Item{
			LogID:     id,
			TMDBID:    c.TMDBID,
			MediaType: c.MediaType,
			Title:     c.Title,
			Score:     c.Score,
			Algorithm: c.Algorithm,
			Sources:   sources,
		}
		entries[i] = LogEntry{
			ID:        id,
			UserID:    req.UserID,
			TMDBID:    c.TMDBID,
			MediaType: c.MediaType,
			Title:     c.Title,
			Algorithm: c.Algorithm,
			Score:     c.Score,
			Context: map[string]any{
				ContextSource:          source,
				ContextPosition:        i + 1,
				ContextCandidatesCount: poolSize,
				ContextSources:         sources,
			},
			ShownAt: shownAt,
		}
	}
	return items, entries
}

// attachRatings adds display ratings when a lookup is configured. Lookup
// failures leave the rating unset.
func (e *Engine) attachRatings(ctx context.Context, items []Item, logger *zerolog.Logger) {
	e.mu.RLock()
	ratings := e.ratings
	e.mu.RUnlock()
	if ratings == nil {
		return
	}

	for i := range items {
		key := TitleKey{TMDBID: items[i].TMDBID, MediaType: items[i].MediaType}
		rating, err := ratings.CineChanceRating(ctx, key)
		if err != nil {
			logger.Debug().Err(err).Str("title", key.String()).Msg("No display rating for title")
			continue
		}
		items[i].CineChanceRating = rating
	}
}

func (e *Engine) getEnricher() Enricher {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enricher
}

// GetConfig returns a copy of the engine configuration.
func (e *Engine) GetConfig() *Config {
	return e.config.Clone()
}
