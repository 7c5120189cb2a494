// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package database

import (
	"context"
	"testing"
	"time"

	"github.com/cinechance/recommender/internal/config"
	"github.com/cinechance/recommender/internal/recommend"
)

// testDBSemaphore allows one live DuckDB instance at a time. Concurrent
// CGO connections from parallel tests can hang under CI pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database held for the whole test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func rating(v float64) *float64 { return &v }

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	for _, table := range []string{"users", "watch_list", "recommendation_log", "taste_profiles"} {
		var n int
		err := db.Conn().QueryRow(
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
		if err != nil || n != 1 {
			t.Errorf("table %s missing (n=%d, err=%v)", table, n, err)
		}
	}
}

func TestTasteProfiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.GetTasteProfile(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetTasteProfile() error = %v", err)
	}
	if empty.HasPersons() || empty.HasGenres() || empty.Actors == nil {
		t.Errorf("missing profile should be empty with allocated maps, got %+v", empty)
	}

	p := recommend.NewTasteProfile()
	p.Actors[287] = 1.7
	p.Directors[7467] = 0.9
	p.Genres[18] = 2.5
	if err := db.SaveTasteProfile(ctx, "u2", p); err != nil {
		t.Fatalf("SaveTasteProfile() error = %v", err)
	}
	if err := db.SaveTasteProfile(ctx, "u1", recommend.NewTasteProfile()); err != nil {
		t.Fatalf("SaveTasteProfile() error = %v", err)
	}

	got, err := db.GetTasteProfile(ctx, "u2")
	if err != nil {
		t.Fatalf("GetTasteProfile() error = %v", err)
	}
	if got.Actors[287] != 1.7 || got.Directors[7467] != 0.9 || got.Genres[18] != 2.5 {
		t.Errorf("profile round trip = %+v", got)
	}

	p.Genres[18] = 3
	if err := db.SaveTasteProfile(ctx, "u2", p); err != nil {
		t.Fatalf("overwrite error = %v", err)
	}
	got, _ = db.GetTasteProfile(ctx, "u2")
	if got.Genres[18] != 3 {
		t.Errorf("overwrite not applied: %v", got.Genres)
	}

	ids, err := db.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListUserIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("ListUserIDs() = %v", ids)
	}

	var scanned []string
	err = db.ScanTasteProfiles(ctx, func(userID string, profile *recommend.TasteProfile) error {
		scanned = append(scanned, userID)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanTasteProfiles() error = %v", err)
	}
	if len(scanned) != 2 || scanned[0] != "u1" {
		t.Errorf("scanned = %v", scanned)
	}
}

func TestWatchList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entries := []WatchListEntry{
		{TMDBID: 1, MediaType: recommend.MediaMovie, Title: "A", Status: recommend.StatusWatched, UserRating: rating(9), VoteAverage: 7},
		{TMDBID: 2, MediaType: recommend.MediaMovie, Title: "B", Status: recommend.StatusRewatched, UserRating: rating(9), VoteAverage: 8},
		{TMDBID: 3, MediaType: recommend.MediaTV, Title: "C", Status: recommend.StatusWatched, UserRating: rating(6)},
		{TMDBID: 4, MediaType: recommend.MediaMovie, Title: "D", Status: recommend.StatusWant},
		{TMDBID: 5, MediaType: recommend.MediaMovie, Title: "E", Status: recommend.StatusWatched},
		{TMDBID: 6, MediaType: recommend.MediaMovie, Title: "F", Status: recommend.StatusDropped, UserRating: rating(10)},
	}
	for _, e := range entries {
		if err := db.UpsertWatchListEntry(ctx, "u1", e); err != nil {
			t.Fatalf("UpsertWatchListEntry(%d) error = %v", e.TMDBID, err)
		}
	}

	n, err := db.CountWatched(ctx, "u1")
	if err != nil || n != 4 {
		t.Errorf("CountWatched() = %d, %v; want 4", n, err)
	}

	keys, err := db.ListTitleKeys(ctx, "u1")
	if err != nil || len(keys) != 6 {
		t.Errorf("ListTitleKeys() = %d keys, %v; want 6", len(keys), err)
	}
	if !keys.Has(recommend.TitleKey{TMDBID: 3, MediaType: recommend.MediaTV}) {
		t.Error("tv entry missing from key set")
	}

	top, err := db.TopRatedTitles(ctx, "u1", 7, 10)
	if err != nil {
		t.Fatalf("TopRatedTitles() error = %v", err)
	}
	if len(top) != 2 || top[0].TMDBID != 2 || top[1].TMDBID != 1 {
		t.Errorf("TopRatedTitles() = %+v, want 2 then 1 (vote average tie-break)", top)
	}

	limited, _ := db.TopRatedTitles(ctx, "u1", 0, 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d", len(limited))
	}

	history, err := db.WatchHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchHistory() error = %v", err)
	}
	if len(history) != 4 || history[3].UserRating != nil {
		t.Errorf("WatchHistory() = %+v, want 4 watched titles with title 5 unrated", history)
	}

	if err := db.UpsertWatchListEntry(ctx, "u1", WatchListEntry{TMDBID: 4, MediaType: recommend.MediaMovie, Status: recommend.StatusWatched, UserRating: rating(8)}); err != nil {
		t.Fatalf("update error = %v", err)
	}
	if n, _ := db.CountWatched(ctx, "u1"); n != 5 {
		t.Errorf("CountWatched() after update = %d, want 5", n)
	}

	err = db.UpsertWatchListEntry(ctx, "u1", WatchListEntry{TMDBID: 7, MediaType: "anime", Status: recommend.StatusWant})
	if err == nil {
		t.Error("expected invalid media type error")
	}
}

func TestCommunityRating(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	key := recommend.TitleKey{TMDBID: 550, MediaType: recommend.MediaMovie}

	avg, count, err := db.CommunityRating(ctx, key)
	if err != nil || avg != nil || count != 0 {
		t.Fatalf("unrated title = %v, %d, %v; want nil, 0", avg, count, err)
	}

	for user, r := range map[string]*float64{"a": rating(8), "b": rating(9), "c": rating(8), "d": rating(0), "e": nil} {
		if err := db.UpsertWatchListEntry(ctx, user, WatchListEntry{
			TMDBID: 550, MediaType: recommend.MediaMovie, Status: recommend.StatusWatched, UserRating: r,
		}); err != nil {
			t.Fatalf("upsert %s: %v", user, err)
		}
	}

	avg, count, err = db.CommunityRating(ctx, key)
	if err != nil {
		t.Fatalf("CommunityRating() error = %v", err)
	}
	if count != 3 || avg == nil || *avg != 8.3 {
		t.Errorf("CommunityRating() = %v, %d; want 8.3 over 3 positive ratings", avg, count)
	}
}

func logEntry(id, userID string, tmdbID int, algorithm string, shownAt time.Time) recommend.LogEntry {
	return recommend.LogEntry{
		ID:        id,
		UserID:    userID,
		TMDBID:    tmdbID,
		MediaType: recommend.MediaMovie,
		Title:     "T",
		Algorithm: algorithm,
		Score:     75,
		Context: map[string]any{
			recommend.ContextSource:   "recommendations_page",
			recommend.ContextPosition: 1,
			recommend.ContextSources:  []string{"x", "y"},
		},
		ShownAt: shownAt,
	}
}

func TestRecommendationLog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := db.InsertLogEntries(ctx, []recommend.LogEntry{
		logEntry("l1", "u1", 10, "person_twins_v1", now.Add(-2*24*time.Hour)),
		logEntry("l2", "u1", 11, "person_twins_v1", now.Add(-10*24*time.Hour)),
		logEntry("l3", "u2", 12, "genre_twins_v1", now),
	})
	if err != nil {
		t.Fatalf("InsertLogEntries() error = %v", err)
	}

	recent, err := db.RecentlyRecommended(ctx, "u1", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("RecentlyRecommended() error = %v", err)
	}
	if len(recent) != 1 || !recent.Has(recommend.TitleKey{TMDBID: 10, MediaType: recommend.MediaMovie}) {
		t.Errorf("RecentlyRecommended() = %v, want only title 10", recent)
	}

	e, err := db.GetLogEntry(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLogEntry() error = %v", err)
	}
	if e.UserID != "u1" || e.Algorithm != "person_twins_v1" || e.Action != nil {
		t.Errorf("GetLogEntry() = %+v", e)
	}
	if e.Context[recommend.ContextSource] != "recommendations_page" {
		t.Errorf("context source = %v", e.Context[recommend.ContextSource])
	}
	if pos, ok := e.Context[recommend.ContextPosition].(float64); !ok || pos != 1 {
		t.Errorf("context position = %#v", e.Context[recommend.ContextPosition])
	}

	if _, err := db.GetLogEntry(ctx, "missing"); err != recommend.ErrLogNotFound {
		t.Errorf("GetLogEntry(missing) error = %v, want ErrLogNotFound", err)
	}

	updated, err := db.SetLogAction(ctx, "l1", recommend.ActionAcceptedYes, now)
	if err != nil || !updated {
		t.Fatalf("SetLogAction() = %v, %v; want updated", updated, err)
	}
	updated, err = db.SetLogAction(ctx, "l1", recommend.ActionAcceptedNo, now)
	if err != nil || updated {
		t.Errorf("second SetLogAction() = %v, %v; want no update", updated, err)
	}
	e, _ = db.GetLogEntry(ctx, "l1")
	if e.Action == nil || *e.Action != recommend.ActionAcceptedYes || e.ActionAt == nil {
		t.Errorf("action not persisted: %+v", e)
	}

	if _, err := db.SetLogAction(ctx, "missing", recommend.ActionAcceptedYes, now); err != recommend.ErrLogNotFound {
		t.Errorf("SetLogAction(missing) error = %v, want ErrLogNotFound", err)
	}

	if err := db.InsertLogEntries(ctx, nil); err != nil {
		t.Errorf("empty insert error = %v", err)
	}
}

func TestOutcomeQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	shown := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	err := db.InsertLogEntries(ctx, []recommend.LogEntry{
		logEntry("l1", "u1", 10, "person_twins_v1", shown),
		logEntry("l2", "u1", 11, "person_twins_v1", shown),
		logEntry("l3", "u1", 12, "person_twins_v1", shown),
		logEntry("l4", "u1", 13, "genre_twins_v1", shown),
	})
	if err != nil {
		t.Fatalf("InsertLogEntries() error = %v", err)
	}

	// After the recommendations: 10 wanted, 11 watched and rated.
	mustUpsert(t, db, "u1", WatchListEntry{TMDBID: 10, MediaType: recommend.MediaMovie, Status: recommend.StatusWant})
	mustUpsert(t, db, "u1", WatchListEntry{TMDBID: 11, MediaType: recommend.MediaMovie, Status: recommend.StatusWatched, UserRating: rating(8)})
	if _, err := db.SetLogAction(ctx, "l4", recommend.ActionAcceptedYes, time.Now()); err != nil {
		t.Fatalf("SetLogAction() error = %v", err)
	}
	if err := db.EnsureUser(ctx, "u2"); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	days, err := db.OutcomeCounts(ctx, "", "", time.Time{})
	if err != nil {
		t.Fatalf("OutcomeCounts() error = %v", err)
	}
	if len(days) < 1 {
		t.Fatal("OutcomeCounts() returned no buckets")
	}
	var total, added, rated int
	for _, d := range days {
		total += d.Total
		added += d.Added
		rated += d.Rated
	}
	if total != 4 || added != 1 || rated != 1 {
		t.Errorf("totals = %d/%d/%d, want 4/1/1", total, added, rated)
	}

	byAlg, err := db.OutcomeCounts(ctx, "u1", "genre_twins_v1", time.Time{})
	if err != nil {
		t.Fatalf("OutcomeCounts(filtered) error = %v", err)
	}
	if len(byAlg) != 1 || byAlg[0].Total != 1 {
		t.Errorf("filtered buckets = %+v", byAlg)
	}

	future, _ := db.OutcomeCounts(ctx, "", "", time.Now().Add(time.Hour))
	if len(future) != 0 {
		t.Errorf("buckets after the window start = %+v, want none", future)
	}

	algs, err := db.AlgorithmCounts(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("AlgorithmCounts() error = %v", err)
	}
	want := []recommend.AlgorithmCounts{
		{Algorithm: "genre_twins_v1", Shown: 1, Accepted: 1},
		{Algorithm: "person_twins_v1", Shown: 3, Accepted: 2},
	}
	if len(algs) != len(want) {
		t.Fatalf("AlgorithmCounts() = %+v", algs)
	}
	for i := range want {
		if algs[i] != want[i] {
			t.Errorf("algs[%d] = %+v, want %+v", i, algs[i], want[i])
		}
	}

	counts, err := db.UserWatchCounts(ctx)
	if err != nil {
		t.Fatalf("UserWatchCounts() error = %v", err)
	}
	if counts["u1"] != 1 || counts["u2"] != 0 || len(counts) != 2 {
		t.Errorf("UserWatchCounts() = %v", counts)
	}
}

func TestOutcomeQueries_IgnoresEarlierListChanges(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustUpsert(t, db, "u1", WatchListEntry{TMDBID: 10, MediaType: recommend.MediaMovie, Status: recommend.StatusWant})
	if err := db.InsertLogEntries(ctx, []recommend.LogEntry{
		logEntry("l1", "u1", 10, "person_twins_v1", time.Now().UTC().Add(time.Minute)),
	}); err != nil {
		t.Fatalf("InsertLogEntries() error = %v", err)
	}

	algs, err := db.AlgorithmCounts(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("AlgorithmCounts() error = %v", err)
	}
	if len(algs) != 1 || algs[0].Accepted != 0 {
		t.Errorf("AlgorithmCounts() = %+v, want a list change before showing not to count", algs)
	}
}

func mustUpsert(t *testing.T, db *DB, userID string, e WatchListEntry) {
	t.Helper()
	if err := db.UpsertWatchListEntry(context.Background(), userID, e); err != nil {
		t.Fatalf("UpsertWatchListEntry() error = %v", err)
	}
}
