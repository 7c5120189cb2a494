// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinechance/recommender/internal/metadata"
	"github.com/cinechance/recommender/internal/recommend"
)

type fakeCommunity struct {
	avg   *float64
	votes int
	err   error
}

func (f *fakeCommunity) CommunityRating(ctx context.Context, key recommend.TitleKey) (*float64, int, error) {
	return f.avg, f.votes, f.err
}

type fakeSource struct {
	details *metadata.Details
	err     error
}

func (f *fakeSource) GetDetails(ctx context.Context, mediaType recommend.MediaType, tmdbID int) (*metadata.Details, error) {
	return f.details, f.err
}

func ptr(v float64) *float64 { return &v }

func TestService_Lookup(t *testing.T) {
	t.Parallel()

	movie := recommend.TitleKey{TMDBID: 550, MediaType: recommend.MediaMovie}
	upstream := errors.New("connection reset")

	tests := []struct {
		name       string
		community  *fakeCommunity
		source     *fakeSource
		wantRating *float64
		wantExt    *float64
		wantErr    bool
	}{
		{
			name:       "blends both sources",
			community:  &fakeCommunity{avg: ptr(9), votes: 3},
			source:     &fakeSource{details: &metadata.Details{VoteAverage: 7, VoteCount: 1000}},
			wantRating: ptr(8.2), // w = 3/5 = 0.6
			wantExt:    ptr(7),
		},
		{
			name:       "no community data returns external rating",
			community:  &fakeCommunity{},
			source:     &fakeSource{details: &metadata.Details{VoteAverage: 6.44, VoteCount: 50}},
			wantRating: ptr(6.4),
			wantExt:    ptr(6.44),
		},
		{
			name:       "unknown title falls back to community",
			community:  &fakeCommunity{avg: ptr(8.3), votes: 3},
			source:     &fakeSource{err: metadata.ErrNotFound},
			wantRating: ptr(8.3),
		},
		{
			name:      "open circuit without community data",
			community: &fakeCommunity{},
			source:    &fakeSource{err: metadata.ErrCircuitOpen},
		},
		{
			name:      "upstream failure",
			community: &fakeCommunity{},
			source:    &fakeSource{err: upstream},
			wantErr:   true,
		},
		{
			name:      "store failure",
			community: &fakeCommunity{err: errors.New("db closed")},
			source:    &fakeSource{details: &metadata.Details{}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewService(tt.community, tt.source, recommend.DefaultBlendConfig(), zerolog.Nop())
			got, err := svc.Lookup(context.Background(), movie)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !equalPtr(got.CineChanceRating, tt.wantRating) {
				t.Errorf("CineChanceRating = %v, want %v", deref(got.CineChanceRating), deref(tt.wantRating))
			}
			if !equalPtr(got.ExternalRating, tt.wantExt) {
				t.Errorf("ExternalRating = %v, want %v", deref(got.ExternalRating), deref(tt.wantExt))
			}
			if got.TMDBID != 550 || got.MediaType != recommend.MediaMovie {
				t.Errorf("key = %d/%s", got.TMDBID, got.MediaType)
			}
		})
	}
}

func TestService_InvalidMediaType(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeCommunity{}, &fakeSource{}, recommend.DefaultBlendConfig(), zerolog.Nop())
	_, err := svc.CineChanceRating(context.Background(), recommend.TitleKey{TMDBID: 1, MediaType: "book"})
	if !errors.Is(err, recommend.ErrInvalidMediaType) {
		t.Errorf("error = %v, want ErrInvalidMediaType", err)
	}
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
