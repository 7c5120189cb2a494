// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/recommend"
	"github.com/cinechance/recommender/internal/recommend/algorithms"
	"github.com/cinechance/recommender/internal/recommend/memstore"
)

func rating(v float64) *float64 { return &v }

func profile(actors ...int) *recommend.TasteProfile {
	p := recommend.NewTasteProfile()
	for _, a := range actors {
		p.Actors[a] = 1
	}
	p.Directors[1] = 1
	return p
}

// newPipeline seeds "me" with enough history to leave cold start and a
// twin who rated titles 100 and 101 highly, then wires an engine and an
// outcome tracker over the same store.
func newPipeline(t *testing.T) (*memstore.Store, *recommend.Engine, *recommend.OutcomeTracker) {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()

	for i := 0; i < 12; i++ {
		s.PutListEntry("me", memstore.ListEntry{
			TMDBID:    900000 + i,
			MediaType: recommend.MediaMovie,
			Status:    recommend.StatusWatched,
			UpdatedAt: time.Now().Add(-time.Hour),
		})
	}
	for _, userID := range []string{"me", "twin"} {
		if err := s.SaveTasteProfile(ctx, userID, profile(1, 2, 3)); err != nil {
			t.Fatalf("SaveTasteProfile(%s) error = %v", userID, err)
		}
	}
	for id, r := range map[int]float64{100: 9, 101: 8} {
		s.PutListEntry("twin", memstore.ListEntry{
			TMDBID:      id,
			MediaType:   recommend.MediaMovie,
			Status:      recommend.StatusWatched,
			UserRating:  rating(r),
			VoteAverage: 7.5,
			UpdatedAt:   time.Now().Add(-time.Hour),
		})
	}

	cfg := recommend.DefaultConfig()
	engine, err := recommend.NewEngine(cfg, recommend.Dependencies{Profiles: s, Lists: s, Logs: s, Sessions: s}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	twins, err := algorithms.NewPersonTwins(s, s, algorithms.DefaultPersonTwinsConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPersonTwins() error = %v", err)
	}
	engine.RegisterGenerator(twins)

	return s, engine, recommend.NewOutcomeTracker(s, s, cfg.Segments, zerolog.Nop())
}

func TestPipeline_RunLogsAndRemembersSession(t *testing.T) {
	t.Parallel()

	s, engine, _ := newPipeline(t)
	ctx := context.Background()

	first := engine.Run(ctx, recommend.RunRequest{UserID: "me", SessionID: "tab-1"})
	if len(first.Items) != 2 {
		t.Fatalf("first run served %d items, want 2: %+v", len(first.Items), first.Items)
	}
	for _, item := range first.Items {
		if item.Algorithm != algorithms.PersonTwinsName {
			t.Errorf("Algorithm = %q", item.Algorithm)
		}
		entry, err := s.GetLogEntry(ctx, item.LogID)
		if err != nil {
			t.Fatalf("GetLogEntry(%s) error = %v", item.LogID, err)
		}
		if entry.UserID != "me" || entry.TMDBID != item.TMDBID {
			t.Errorf("log entry = %+v, want me/%d", entry, item.TMDBID)
		}
	}
	if got := len(s.LogEntries()); got != 2 {
		t.Errorf("logged %d entries, want 2", got)
	}

	shown, err := s.Load(ctx, "me", "tab-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(shown.Shown) != 2 {
		t.Errorf("session holds %d titles, want 2", len(shown.Shown))
	}
	if other, _ := s.Load(ctx, "twin", "tab-1"); len(other.Shown) != 0 {
		t.Error("the session id under another user must be empty")
	}

	second := engine.Run(ctx, recommend.RunRequest{UserID: "me", SessionID: "tab-1"})
	if len(second.Items) != 0 {
		t.Errorf("second run served %+v, want nothing within the cooldown", second.Items)
	}
	if second.Metrics.CandidatesPoolSize != 2 {
		t.Errorf("CandidatesPoolSize = %d, want 2", second.Metrics.CandidatesPoolSize)
	}

	if cold := engine.Run(ctx, recommend.RunRequest{UserID: "twin"}); len(cold.Items) != 0 {
		t.Errorf("cold start user served %+v", cold.Items)
	}
}

func TestPipeline_ActionsAndDashboard(t *testing.T) {
	t.Parallel()

	s, engine, tracker := newPipeline(t)
	ctx := context.Background()

	res := engine.Run(ctx, recommend.RunRequest{UserID: "me"})
	if len(res.Items) != 2 {
		t.Fatalf("served %d items, want 2", len(res.Items))
	}
	accepted, added := res.Items[0], res.Items[1]

	if err := tracker.RecordAction(ctx, accepted.LogID, "me", recommend.ActionAcceptedYes); err != nil {
		t.Fatalf("RecordAction() error = %v", err)
	}
	if err := tracker.RecordAction(ctx, accepted.LogID, "me", recommend.ActionAcceptedYes); err != nil {
		t.Errorf("repeating the recorded action: error = %v, want nil", err)
	}
	if err := tracker.RecordAction(ctx, accepted.LogID, "me", recommend.ActionAcceptedNo); !errors.Is(err, recommend.ErrActionAlreadyRecorded) {
		t.Errorf("changing the action: error = %v, want ErrActionAlreadyRecorded", err)
	}
	if err := tracker.RecordAction(ctx, added.LogID, "twin", recommend.ActionAcceptedNo); !errors.Is(err, recommend.ErrLogNotFound) {
		t.Errorf("another user's entry: error = %v, want ErrLogNotFound", err)
	}
	if err := tracker.RecordAction(ctx, "00000000-0000-0000-0000-000000000000", "me", recommend.ActionAcceptedNo); !errors.Is(err, recommend.ErrLogNotFound) {
		t.Errorf("unknown entry: error = %v, want ErrLogNotFound", err)
	}

	entry, err := s.GetLogEntry(ctx, accepted.LogID)
	if err != nil {
		t.Fatalf("GetLogEntry() error = %v", err)
	}
	if entry.Action == nil || *entry.Action != recommend.ActionAcceptedYes || entry.ActionAt == nil {
		t.Errorf("entry action = %v at %v", entry.Action, entry.ActionAt)
	}

	// The second title lands on the want list after it was shown.
	s.PutListEntry("me", memstore.ListEntry{
		TMDBID:    added.TMDBID,
		MediaType: added.MediaType,
		Status:    recommend.StatusWant,
		UpdatedAt: time.Now().Add(time.Minute),
	})

	stats, err := tracker.Dashboard(ctx, "", recommend.WindowWeek)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if stats.Overview.TotalShown != 2 || stats.Overview.TotalAddedToWant != 1 || stats.Overview.TotalWatched != 0 {
		t.Errorf("Overview = %+v", stats.Overview)
	}
	if stats.Overview.WantRate != 0.5 {
		t.Errorf("WantRate = %v, want 0.5", stats.Overview.WantRate)
	}
	twins := stats.AlgorithmPerformance[algorithms.PersonTwinsName]
	if twins.Total != 2 || twins.Success != 2 || twins.SuccessRate != 1 {
		t.Errorf("%s = %+v, want 2 shown and 2 accepted", algorithms.PersonTwinsName, twins)
	}
	if stats.UserSegments.TotalUsers != 2 || stats.UserSegments.ColdStart != 1 || stats.UserSegments.ActiveUsers != 1 {
		t.Errorf("UserSegments = %+v", stats.UserSegments)
	}

	mine, err := tracker.GetOutcomeStats(ctx, "twin", "", 7)
	if err != nil {
		t.Fatalf("GetOutcomeStats() error = %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("twin has %d outcome days, want none", len(mine))
	}
}
