// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/metrics"
)

// DayCounts are raw outcome counts for one calendar day (UTC).
// Added counts titles later put on the want list; Rated counts titles
// later watched or rated.
type DayCounts struct {
	Date  time.Time
	Total int
	Added int
	Rated int
}

// DayStats is a day bucket with its acceptance rate.
type DayStats struct {
	Date           string  `json:"date"`
	Total          int     `json:"total"`
	Added          int     `json:"added"`
	Rated          int     `json:"rated"`
	AcceptanceRate float64 `json:"acceptanceRate"`
}

// AlgorithmCounts are shown/accepted counts for one algorithm.
type AlgorithmCounts struct {
	Algorithm string `json:"algorithm"`
	Shown     int    `json:"shown"`
	Accepted  int    `json:"accepted"`
}

// AlgorithmPerformance lists per-algorithm counts ordered by algorithm name.
type AlgorithmPerformance struct {
	ByAlgorithm []AlgorithmCounts `json:"byAlgorithm"`
}

// UserSegments partitions users by watched count.
type UserSegments struct {
	TotalUsers         int `json:"totalUsers"`
	ColdStart          int `json:"coldStart"`
	ActiveUsers        int `json:"activeUsers"`
	HeavyUsers         int `json:"heavyUsers"`
	ColdStartThreshold int `json:"coldStartThreshold"`
	HeavyUserThreshold int `json:"heavyUserThreshold"`
}

// Overview summarizes outcomes over a window.
type Overview struct {
	TotalShown       int     `json:"totalShown"`
	TotalAddedToWant int     `json:"totalAddedToWant"`
	TotalWatched     int     `json:"totalWatched"`
	AcceptanceRate   float64 `json:"acceptanceRate"`
	WantRate         float64 `json:"wantRate"`
	WatchRate        float64 `json:"watchRate"`
}

// AlgorithmSummary is the dashboard view of one algorithm.
type AlgorithmSummary struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failure     int     `json:"failure"`
	SuccessRate float64 `json:"successRate"`
}

// DashboardStats is the payload of the stats endpoint.
type DashboardStats struct {
	Overview             Overview                    `json:"overview"`
	AlgorithmPerformance map[string]AlgorithmSummary `json:"algorithmPerformance"`
	UserSegments         UserSegments                `json:"userSegments"`
}

// StatsWindow is a look-back period in days. Zero means all time.
type StatsWindow int

// Supported windows.
const (
	WindowAll   StatsWindow = 0
	WindowWeek  StatsWindow = 7
	WindowMonth StatsWindow = 30
)

// ParseStatsWindow accepts "7", "30" or "all". An empty string means all.
func ParseStatsWindow(s string) (StatsWindow, error) {
	switch s {
	case "7":
		return WindowWeek, nil
	case "30":
		return WindowMonth, nil
	case "all", "":
		return WindowAll, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected 7, 30 or all)", ErrInvalidWindow, s)
	}
}

// since returns the window's lower bound relative to now, or the zero
// time for all time.
func (w StatsWindow) since(now time.Time) time.Time {
	if w <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -int(w))
}

// Rate returns part/total, or 0 when total is zero.
func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// OutcomeTracker aggregates recommendation outcomes and records user
// responses.
type OutcomeTracker struct {
	store    OutcomeStore
	logs     LogStore
	segments SegmentConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOutcomeTracker creates an outcome tracker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOutcomeTracker(store OutcomeStore, logs LogStore, segments SegmentConfig, logger zerolog.Logger) *OutcomeTracker {
	return &OutcomeTracker{
		store:    store,
		logs:     logs,
		segments: segments,
		logger:   logger.With().Str("component", "outcomes").Logger(),
		now:      time.Now,
	}
}

// GetOutcomeStats returns per-day outcome buckets for the last days days
// (all time when days <= 0), oldest first.
func (t *OutcomeTracker) GetOutcomeStats(ctx context.Context, userID, algorithm string, days int) ([]DayStats, error) {
	counts, err := t.store.OutcomeCounts(ctx, userID, algorithm, StatsWindow(days).since(t.now()))
	if err != nil {
		return nil, fmt.Errorf("outcome counts: %w", err)
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].Date.Before(counts[j].Date) })

	stats := make([]DayStats, len(counts))
	for i, c := range counts {
		stats[i] = DayStats{
			Date:           c.Date.UTC().Format("2006-01-02"),
			Total:          c.Total,
			Added:          c.Added,
			Rated:          c.Rated,
			AcceptanceRate: Rate(c.Added+c.Rated, c.Total),
		}
	}
	return stats, nil
}

// GetAlgorithmPerformance returns shown/accepted counts per algorithm for
// entries shown at or after since (all time for the zero time).
func (t *OutcomeTracker) GetAlgorithmPerformance(ctx context.Context, userID string, since time.Time) (AlgorithmPerformance, error) {
	counts, err := t.store.AlgorithmCounts(ctx, userID, since)
	if err != nil {
		return AlgorithmPerformance{}, fmt.Errorf("algorithm counts: %w", err)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Algorithm < counts[j].Algorithm })
	if counts == nil {
		counts = []AlgorithmCounts{}
	}
	return AlgorithmPerformance{ByAlgorithm: counts}, nil
}

// GetUserSegments partitions all users into cold start (< cold start
// threshold watched), heavy (>= heavy threshold) and active (the rest).
func (t *OutcomeTracker) GetUserSegments(ctx context.Context) (UserSegments, error) {
	watchCounts, err := t.store.UserWatchCounts(ctx)
	if err != nil {
		return UserSegments{}, fmt.Errorf("user watch counts: %w", err)
	}
	return Segment(watchCounts, t.segments), nil
}

// Segment partitions users by watched count.
func Segment(watchCounts map[string]int, cfg SegmentConfig) UserSegments {
	seg := UserSegments{
		TotalUsers:         len(watchCounts),
		ColdStartThreshold: cfg.ColdStartThreshold,
		HeavyUserThreshold: cfg.HeavyUserThreshold,
	}
	for _, n := range watchCounts {
		switch {
		case n < cfg.ColdStartThreshold:
			seg.ColdStart++
		case n >= cfg.HeavyUserThreshold:
			seg.HeavyUsers++
		default:
			seg.ActiveUsers++
		}
	}
	return seg
}

// Dashboard builds the stats payload for a window. An empty userID
// aggregates over all users.
func (t *OutcomeTracker) Dashboard(ctx context.Context, userID string, window StatsWindow) (*DashboardStats, error) {
	days, err := t.GetOutcomeStats(ctx, userID, "", int(window))
	if err != nil {
		return nil, err
	}

	var overview Overview
	for _, d := range days {
		overview.TotalShown += d.Total
		overview.TotalAddedToWant += d.Added
		overview.TotalWatched += d.Rated
	}
	overview.AcceptanceRate = Rate(overview.TotalAddedToWant+overview.TotalWatched, overview.TotalShown)
	overview.WantRate = Rate(overview.TotalAddedToWant, overview.TotalShown)
	overview.WatchRate = Rate(overview.TotalWatched, overview.TotalShown)

	perf, err := t.GetAlgorithmPerformance(ctx, userID, window.since(t.now()))
	if err != nil {
		return nil, err
	}
	byAlgorithm := make(map[string]AlgorithmSummary, len(perf.ByAlgorithm))
	for _, a := range perf.ByAlgorithm {
		byAlgorithm[a.Algorithm] = AlgorithmSummary{
			Total:       a.Shown,
			Success:     a.Accepted,
			Failure:     a.Shown - a.Accepted,
			SuccessRate: Rate(a.Accepted, a.Shown),
		}
	}

	segments, err := t.GetUserSegments(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Overview:             overview,
		AlgorithmPerformance: byAlgorithm,
		UserSegments:         segments,
	}, nil
}

// RecordAction sets the response on a log entry owned by userID.
// Reapplying the recorded action succeeds without change; a different
// action returns ErrActionAlreadyRecorded. Entries of other users are
// reported as ErrLogNotFound.
func (t *OutcomeTracker) RecordAction(ctx context.Context, logID, userID string, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	entry, err := t.logs.GetLogEntry(ctx, logID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return ErrLogNotFound
	}
	if entry.Action != nil {
		return compareRecorded(*entry.Action, action)
	}

	updated, err := t.logs.SetLogAction(ctx, logID, action, t.now().UTC())
	if err != nil {
		return fmt.Errorf("set log action: %w", err)
	}
	if !updated {
		// Another request answered first.
		entry, err = t.logs.GetLogEntry(ctx, logID)
		if err != nil {
			return err
		}
		if entry.Action == nil {
			return fmt.Errorf("set log action: no row updated for %s", logID)
		}
		return compareRecorded(*entry.Action, action)
	}

	metrics.RecordAction(string(action))
	t.logger.Debug().Str("log_id", logID).Str("user_id", userID).Str("action", string(action)).Msg("Recorded recommendation action")
	return nil
}

func compareRecorded(recorded, requested Action) error {
	if recorded == requested {
		return nil
	}
	return ErrActionAlreadyRecorded
}
