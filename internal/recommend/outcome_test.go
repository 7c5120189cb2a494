// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(store *mockStore) *OutcomeTracker {
	tr := NewOutcomeTracker(store, store, DefaultConfig().Segments, zerolog.Nop())
	tr.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return tr
}

func TestRate(t *testing.T) {
	t.Parallel()

	if got := Rate(5, 0); got != 0 {
		t.Errorf("Rate(5, 0) = %v, want 0", got)
	}
	if got := Rate(1, 4); got != 0.25 {
		t.Errorf("Rate(1, 4) = %v, want 0.25", got)
	}
}

func TestParseStatsWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    StatsWindow
		wantErr bool
	}{
		{"7", WindowWeek, false},
		{"30", WindowMonth, false},
		{"all", WindowAll, false},
		{"", WindowAll, false},
		{"14", 0, true},
		{"week", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseStatsWindow(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatsWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("error %v should wrap ErrInvalidWindow", err)
		}
		if got != tt.want {
			t.Errorf("ParseStatsWindow(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSegment(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"a": 0, "b": 9, "c": 10, "d": 499, "e": 500, "f": 2000}
	got := Segment(counts, SegmentConfig{ColdStartThreshold: 10, HeavyUserThreshold: 500})

	want := UserSegments{
		TotalUsers:         6,
		ColdStart:          2,
		ActiveUsers:        2,
		HeavyUsers:         2,
		ColdStartThreshold: 10,
		HeavyUserThreshold: 500,
	}
	if got != want {
		t.Errorf("Segment() = %+v, want %+v", got, want)
	}
}

func TestOutcomeTracker_GetOutcomeStats(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.dayCounts = []DayCounts{
		{Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Total: 4, Added: 1, Rated: 1},
		{Date: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), Total: 0},
	}
	tr := newTestTracker(store)

	stats, err := tr.GetOutcomeStats(context.Background(), "u1", "", 7)
	if err != nil {
		t.Fatalf("GetOutcomeStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len = %d, want 2", len(stats))
	}
	if stats[0].Date != "2026-03-08" || stats[0].AcceptanceRate != 0 {
		t.Errorf("stats[0] = %+v, want oldest day with zero rate", stats[0])
	}
	if stats[1].AcceptanceRate != 0.5 {
		t.Errorf("stats[1].AcceptanceRate = %v, want 0.5", stats[1].AcceptanceRate)
	}
}

func TestOutcomeTracker_Dashboard(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.dayCounts = []DayCounts{
		{Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Total: 6, Added: 2, Rated: 1},
		{Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Total: 4, Added: 1, Rated: 0},
	}
	store.algCounts = []AlgorithmCounts{
		{Algorithm: "person_twins_v1", Shown: 8, Accepted: 2},
		{Algorithm: "genre_twins_v1", Shown: 0, Accepted: 0},
	}
	store.watchCounts = map[string]int{"u1": 25, "u2": 3}
	tr := newTestTracker(store)

	d, err := tr.Dashboard(context.Background(), "", WindowMonth)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if d.Overview.TotalShown != 10 || d.Overview.TotalAddedToWant != 3 || d.Overview.TotalWatched != 1 {
		t.Errorf("Overview = %+v", d.Overview)
	}
	if math.Abs(d.Overview.AcceptanceRate-0.4) > 1e-12 {
		t.Errorf("AcceptanceRate = %v, want 0.4", d.Overview.AcceptanceRate)
	}
	if math.Abs(d.Overview.WantRate-0.3) > 1e-12 || math.Abs(d.Overview.WatchRate-0.1) > 1e-12 {
		t.Errorf("WantRate/WatchRate = %v/%v", d.Overview.WantRate, d.Overview.WatchRate)
	}

	pt := d.AlgorithmPerformance["person_twins_v1"]
	if pt != (AlgorithmSummary{Total: 8, Success: 2, Failure: 6, SuccessRate: 0.25}) {
		t.Errorf("person_twins_v1 = %+v", pt)
	}
	if gt := d.AlgorithmPerformance["genre_twins_v1"]; gt.SuccessRate != 0 {
		t.Errorf("zero-shown algorithm must have zero rate, got %v", gt.SuccessRate)
	}
	if d.UserSegments.TotalUsers != 2 || d.UserSegments.ColdStart != 1 || d.UserSegments.ActiveUsers != 1 {
		t.Errorf("UserSegments = %+v", d.UserSegments)
	}
}

func TestOutcomeTracker_Dashboard_Empty(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(newMockStore())
	d, err := tr.Dashboard(context.Background(), "", WindowAll)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.Overview != (Overview{}) {
		t.Errorf("Overview = %+v, want zeros", d.Overview)
	}
	if d.AlgorithmPerformance == nil {
		t.Error("AlgorithmPerformance must be an empty map, not nil")
	}
}

func TestOutcomeTracker_Dashboard_StoreError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.outcomeErr = errors.New("db")
	if _, err := newTestTracker(store).Dashboard(context.Background(), "", WindowAll); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutcomeTracker_RecordAction(t *testing.T) {
	t.Parallel()

	yes := ActionAcceptedYes
	no := ActionAcceptedNo

	tests := []struct {
		name    string
		entry   LogEntry
		race    *Action
		logID   string
		userID  string
		action  Action
		wantErr error
		want    *Action
	}{
		{
			name:   "records action",
			entry:  LogEntry{ID: "l1", UserID: "u1"},
			logID:  "l1",
			userID: "u1",
			action: ActionAcceptedYes,
			want:   &yes,
		},
		{
			name:    "unknown log",
			entry:   LogEntry{ID: "l1", UserID: "u1"},
			logID:   "missing",
			userID:  "u1",
			action:  ActionAcceptedYes,
			wantErr: ErrLogNotFound,
		},
		{
			name:    "other user's log",
			entry:   LogEntry{ID: "l1", UserID: "u2"},
			logID:   "l1",
			userID:  "u1",
			action:  ActionAcceptedYes,
			wantErr: ErrLogNotFound,
		},
		{
			name:    "invalid action",
			entry:   LogEntry{ID: "l1", UserID: "u1"},
			logID:   "l1",
			userID:  "u1",
			action:  Action("maybe"),
			wantErr: ErrInvalidAction,
		},
		{
			name:   "same action again is a no-op",
			entry:  LogEntry{ID: "l1", UserID: "u1", Action: &no},
			logID:  "l1",
			userID: "u1",
			action: ActionAcceptedNo,
			want:   &no,
		},
		{
			name:    "different action conflicts",
			entry:   LogEntry{ID: "l1", UserID: "u1", Action: &no},
			logID:   "l1",
			userID:  "u1",
			action:  ActionAcceptedYes,
			wantErr: ErrActionAlreadyRecorded,
			want:    &no,
		},
		{
			name:    "lost race to a different action",
			entry:   LogEntry{ID: "l1", UserID: "u1"},
			race:    &no,
			logID:   "l1",
			userID:  "u1",
			action:  ActionAcceptedYes,
			wantErr: ErrActionAlreadyRecorded,
			want:    &no,
		},
		{
			name:   "lost race to the same action",
			entry:  LogEntry{ID: "l1", UserID: "u1"},
			race:   &yes,
			logID:  "l1",
			userID: "u1",
			action: ActionAcceptedYes,
			want:   &yes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMockStore()
			store.logs = []LogEntry{tt.entry}
			store.raceAction = tt.race
			tr := newTestTracker(store)

			err := tr.RecordAction(context.Background(), tt.logID, tt.userID, tt.action)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RecordAction() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("RecordAction() error = %v", err)
			}

			got := store.logs[0].Action
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("action = %v, want none", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("action = %v, want %v", got, *tt.want)
			}
		})
	}
}
