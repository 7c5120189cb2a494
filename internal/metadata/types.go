// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package metadata fetches title details from TMDB.
//
// The client caches details per title, limits its outbound request rate,
// and stops calling TMDB while its circuit breaker is open. Callers that
// can work without metadata treat ErrCircuitOpen like any other miss.
package metadata

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/cinechance/recommender/internal/recommend"
)

var (
	// ErrNotFound is returned when TMDB has no such title.
	ErrNotFound = errors.New("title not found")

	// ErrCircuitOpen is returned while the provider is considered down.
	ErrCircuitOpen = errors.New("metadata provider unavailable")
)

// Person is a cast or crew member.
type Person struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Details describes a title. Cast is in billing order.
type Details struct {
	TMDBID      int                 `json:"tmdbId"`
	MediaType   recommend.MediaType `json:"mediaType"`
	Title       string              `json:"title"`
	ReleaseYear int                 `json:"releaseYear,omitempty"`
	GenreIDs    []int               `json:"genreIds"`
	VoteAverage float64             `json:"voteAverage"`
	VoteCount   int                 `json:"voteCount"`
	Cast        []Person            `json:"cast"`
	Directors   []Person            `json:"directors"`
}

// Source provides title details.
type Source interface {
	GetDetails(ctx context.Context, mediaType recommend.MediaType, tmdbID int) (*Details, error)
}

// tmdbTitle is the subset of the TMDB movie and tv detail responses we
// read. Movies use title/release_date, shows use name/first_air_date.
type tmdbTitle struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Genres       []struct {
		ID int `json:"id"`
	} `json:"genres"`
	CreatedBy []Person `json:"created_by"`
	Credits   struct {
		Cast []tmdbCast `json:"cast"`
		Crew []tmdbCrew `json:"crew"`
	} `json:"credits"`
}

type tmdbCast struct {
	Person
	Order int `json:"order"`
}

type tmdbCrew struct {
	Person
	Job string `json:"job"`
}

func (t *tmdbTitle) toDetails(mediaType recommend.MediaType) *Details {
	d := &Details{
		TMDBID:      t.ID,
		MediaType:   mediaType,
		Title:       t.Title,
		VoteAverage: t.VoteAverage,
		VoteCount:   t.VoteCount,
		GenreIDs:    make([]int, 0, len(t.Genres)),
		Cast:        make([]Person, 0, len(t.Credits.Cast)),
		Directors:   []Person{},
	}
	date := t.ReleaseDate
	if mediaType == recommend.MediaTV {
		d.Title = t.Name
		date = t.FirstAirDate
	}
	d.ReleaseYear = parseYear(date)

	for _, g := range t.Genres {
		d.GenreIDs = append(d.GenreIDs, g.ID)
	}

	// TMDB returns cast sorted by order, but not contractually.
	cast := slices.Clone(t.Credits.Cast)
	slices.SortStableFunc(cast, func(a, b tmdbCast) int { return cmp.Compare(a.Order, b.Order) })
	for _, c := range cast {
		d.Cast = append(d.Cast, c.Person)
	}

	seen := make(map[int]struct{})
	for _, c := range t.Credits.Crew {
		if c.Job != "Director" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		d.Directors = append(d.Directors, c.Person)
	}
	// Shows rarely credit a series-level director; creators stand in.
	if len(d.Directors) == 0 && mediaType == recommend.MediaTV {
		d.Directors = append(d.Directors, t.CreatedBy...)
	}
	return d
}

func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
