// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors returned by stores and the outcome tracker.
var (
	ErrLogNotFound           = errors.New("recommendation log entry not found")
	ErrActionAlreadyRecorded = errors.New("a different action was already recorded")
	ErrInvalidAction         = errors.New("invalid action")
	ErrInvalidMediaType      = errors.New("invalid media type")
	ErrInvalidWindow         = errors.New("invalid stats window")
)

// MediaType distinguishes movies from TV shows. TMDB ids are only unique
// within a media type.
type MediaType string

// Supported media types.
const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether m is a supported media type.
func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// ParseMediaType parses a media type string.
func ParseMediaType(s string) (MediaType, error) {
	m := MediaType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
	}
	return m, nil
}

// TitleKey identifies a title across the pipeline.
type TitleKey struct {
	TMDBID    int
	MediaType MediaType
}

// String renders the key as "{tmdbId}_{mediaType}".
func (k TitleKey) String() string {
	return strconv.Itoa(k.TMDBID) + "_" + string(k.MediaType)
}

// ParseTitleKey parses the String form of a TitleKey.
func ParseTitleKey(s string) (TitleKey, error) {
	idx := strings.LastIndexByte(s, '_')
	if idx <= 0 {
		return TitleKey{}, fmt.Errorf("malformed title key %q", s)
	}
	id, err := strconv.Atoi(s[:idx])
	if err != nil {
		return TitleKey{}, fmt.Errorf("malformed title key %q: %w", s, err)
	}
	mt, err := ParseMediaType(s[idx+1:])
	if err != nil {
		return TitleKey{}, err
	}
	return TitleKey{TMDBID: id, MediaType: mt}, nil
}

// KeySet is a set of title keys.
type KeySet map[TitleKey]struct{}

// Has reports whether k is in the set. A nil set is empty.
func (s KeySet) Has(k TitleKey) bool {
	_, ok := s[k]
	return ok
}

// WatchStatus is the status of a personal list entry.
type WatchStatus string

// List statuses. Watched and Rewatched count toward watch history.
const (
	StatusWant      WatchStatus = "want"
	StatusWatched   WatchStatus = "watched"
	StatusRewatched WatchStatus = "rewatched"
	StatusDropped   WatchStatus = "dropped"
)

// TasteProfile holds per-user affinity weights keyed by TMDB person or
// genre id. Absent keys mean zero affinity; weights are non-negative.
type TasteProfile struct {
	Actors    map[int]float64 `json:"actors"`
	Directors map[int]float64 `json:"directors"`
	Genres    map[int]float64 `json:"genres"`
}

// NewTasteProfile returns an empty profile with initialized maps.
func NewTasteProfile() *TasteProfile {
	return &TasteProfile{
		Actors:    make(map[int]float64),
		Directors: make(map[int]float64),
		Genres:    make(map[int]float64),
	}
}

// HasPersons reports whether any actor or director has positive weight.
func (p *TasteProfile) HasPersons() bool {
	return p != nil && (hasPositive(p.Actors) || hasPositive(p.Directors))
}

// HasGenres reports whether any genre has positive weight.
func (p *TasteProfile) HasGenres() bool {
	return p != nil && hasPositive(p.Genres)
}

func hasPositive(m map[int]float64) bool {
	for _, w := range m {
		if w > 0 {
			return true
		}
	}
	return false
}

// RatedTitle is a title from a user's watch history with that user's rating.
type RatedTitle struct {
	TMDBID      int
	MediaType   MediaType
	Title       string
	UserRating  *float64
	VoteAverage float64
}

// CandidateMovie is a title under consideration for one request. It is
// never persisted; only the surfaced subset is logged.
type CandidateMovie struct {
	TMDBID              int
	MediaType           MediaType
	Title               string
	UserRatingOfSource  *float64
	ExternalVoteAverage float64

	// SimilarityScore is the mean similarity of the twins that surfaced
	// this title, in [0,1].
	SimilarityScore float64

	// CooccurrenceCount is the number of distinct twins that surfaced it.
	CooccurrenceCount int

	// SourceUserIDs lists contributing twins in merge order.
	SourceUserIDs []string

	// ReleaseYear and GenreIDs are filled by enrichment; zero values mean unknown.
	ReleaseYear int
	GenreIDs    []int
}

// Key returns the candidate's title key.
func (c *CandidateMovie) Key() TitleKey {
	return TitleKey{TMDBID: c.TMDBID, MediaType: c.MediaType}
}

// ScoredCandidate is a candidate with its producing algorithm and scores.
type ScoredCandidate struct {
	CandidateMovie
	Algorithm string
	RawScore  float64
	Score     float64
}

// Item is one surfaced recommendation.
type Item struct {
	LogID            string    `json:"logId"`
	TMDBID           int       `json:"tmdbId"`
	MediaType        MediaType `json:"mediaType"`
	Title            string    `json:"title"`
	Score            float64   `json:"score"`
	Algorithm        string    `json:"algorithm"`
	Sources          []string  `json:"sources"`
	CineChanceRating *float64  `json:"cineChanceRating,omitempty"`
}

// Metrics summarizes a run.
type Metrics struct {
	CandidatesPoolSize int     `json:"candidatesPoolSize"`
	AfterFilters       int     `json:"afterFilters"`
	AvgScore           float64 `json:"avgScore"`
}

// Result is the output of a recommendation run.
type Result struct {
	Items   []Item  `json:"items"`
	Metrics Metrics `json:"metrics"`
}

// emptyResult is the result for cold start, empty pools and failures.
func emptyResult() Result {
	return Result{Items: []Item{}}
}

// Action is a user's response to a recommendation.
type Action string

// Supported actions.
const (
	ActionAcceptedYes Action = "accepted_yes"
	ActionAcceptedNo  Action = "accepted_no"
)

// Valid reports whether a is a supported action.
func (a Action) Valid() bool {
	return a == ActionAcceptedYes || a == ActionAcceptedNo
}

// LogEntry is a persisted record of one surfaced recommendation. Action
// is set at most once after creation.
type LogEntry struct {
	ID        string
	UserID    string
	TMDBID    int
	MediaType MediaType
	Title     string
	Algorithm string
	Score     float64

	// Context is a free-form bag. Known keys are source, position,
	// candidatesCount and sources; other keys pass through unchanged.
	Context map[string]any

	ShownAt  time.Time
	Action   *Action
	ActionAt *time.Time
}

// Key returns the entry's title key.
func (e *LogEntry) Key() TitleKey {
	return TitleKey{TMDBID: e.TMDBID, MediaType: e.MediaType}
}

// Context keys read by the pipeline.
const (
	ContextSource          = "source"
	ContextPosition        = "position"
	ContextCandidatesCount = "candidatesCount"
	ContextSources         = "sources"
)

// SessionState tracks titles shown during one recommendation session.
type SessionState struct {
	ID    string
	Shown KeySet
}

// NewSessionState returns an empty session.
func NewSessionState(id string) *SessionState {
	return &SessionState{ID: id, Shown: make(KeySet)}
}

// WasShown reports whether k was already shown in this session.
func (s *SessionState) WasShown(k TitleKey) bool {
	return s != nil && s.Shown.Has(k)
}

// MarkShown records keys as shown.
func (s *SessionState) MarkShown(keys ...TitleKey) {
	if s.Shown == nil {
		s.Shown = make(KeySet, len(keys))
	}
	for _, k := range keys {
		s.Shown[k] = struct{}{}
	}
}
