// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cinechance/recommender/internal/auth"
	"github.com/cinechance/recommender/internal/logging"
	"github.com/cinechance/recommender/internal/models"
	"github.com/cinechance/recommender/internal/recommend"
)

// SessionHeader carries the client's recommendation session id.
const SessionHeader = "X-Session-ID"

const (
	maxSessionIDLength = 128
	maxActionBodyBytes = 4 << 10

	statsFailureMessage = "Failed to fetch recommendation stats"
)

// recommendationsRequest holds the validated query of GET /recommendations.
type recommendationsRequest struct {
	Types     []string `json:"types" validate:"omitempty,unique,dive,mediatype"`
	MinRating float64  `json:"minRating" validate:"gte=0,lte=10"`
	YearFrom  int      `json:"yearFrom" validate:"omitempty,gte=1900,maxyear=5"`
	YearTo    int      `json:"yearTo" validate:"omitempty,gte=1900,maxyear=5"`
	Genres    []int    `json:"genres" validate:"max=10,dive,gt=0"`
	Source    string   `json:"source" validate:"omitempty,max=64,printascii"`
}

func (req *recommendationsRequest) filters() recommend.Filters {
	f := recommend.Filters{
		MinRating: req.MinRating,
		YearFrom:  req.YearFrom,
		YearTo:    req.YearTo,
		Genres:    req.Genres,
	}
	for _, t := range req.Types {
		f.Types = append(f.Types, recommend.MediaType(t))
	}
	return f
}

// statsRequest holds the validated query of GET /recommendations/stats.
type statsRequest struct {
	Window string `json:"window" validate:"omitempty,statswindow"`
}

// actionRequest is the body of POST /recommendations/{logId}/action.
type actionRequest struct {
	Action string `json:"action" validate:"required,oneof=accepted_yes accepted_no"`
}

// actionResponse confirms a recorded action.
type actionResponse struct {
	LogID  string           `json:"logId"`
	Action recommend.Action `json:"action"`
}

// parseRecommendationsRequest reads and validates the filter query.
func parseRecommendationsRequest(r *http.Request) (*recommendationsRequest, *models.APIError) {
	q := r.URL.Query()
	req := &recommendationsRequest{
		Types:  parseCommaSeparated(q.Get("types")),
		Source: q.Get("source"),
	}

	var apiErr *models.APIError
	if req.MinRating, apiErr = parseOptionalFloat(r, "minRating"); apiErr != nil {
		return nil, apiErr
	}
	if req.YearFrom, apiErr = parseOptionalInt(r, "yearFrom"); apiErr != nil {
		return nil, apiErr
	}
	if req.YearTo, apiErr = parseOptionalInt(r, "yearTo"); apiErr != nil {
		return nil, apiErr
	}
	genres, err := parseCommaSeparatedInts(q.Get("genres"))
	if err != nil {
		return nil, invalidParam("genres", "genres must be a comma-separated list of ids")
	}
	req.Genres = genres

	if apiErr := validateRequest(req); apiErr != nil {
		return nil, apiErr
	}
	if req.YearFrom > 0 && req.YearTo > 0 && req.YearFrom > req.YearTo {
		return nil, invalidParam("yearFrom", "yearFrom must not be after yearTo")
	}
	return req, nil
}

// sessionID returns the caller's session id, generating one when absent.
func sessionID(r *http.Request) (string, bool) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		return uuid.NewString(), true
	}
	if len(id) > maxSessionIDLength {
		return "", false
	}
	return id, true
}

// GetRecommendations handles GET /api/v1/recommendations.
// The pipeline never fails; errors inside it produce an empty result.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, models.CodeUnauthorized, "Authentication required", nil)
		return
	}

	req, apiErr := parseRecommendationsRequest(r)
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	sid, ok := sessionID(r)
	if !ok {
		respondValidation(w, r, invalidParam(SessionHeader, SessionHeader+" must be at most 128 characters"))
		return
	}
	w.Header().Set(SessionHeader, sid)

	result := h.engine.Run(r.Context(), recommend.RunRequest{
		UserID:    userID,
		SessionID: sid,
		Source:    req.Source,
		Filters:   req.filters(),
	})
	if result.Items == nil {
		result.Items = []recommend.Item{}
	}

	respondJSON(w, r, http.StatusOK, models.NewSuccess(result, start))
}

// RecommendationStats handles GET /api/v1/recommendations/stats.
// The dashboard aggregates over all users.
func (h *Handler) RecommendationStats(w http.ResponseWriter, r *http.Request) {
	req := &statsRequest{Window: r.URL.Query().Get("window")}
	if apiErr := validateRequest(req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	window, err := recommend.ParseStatsWindow(req.Window)
	if err != nil {
		respondValidation(w, r, invalidParam("window", "window must be one of: 7, 30, all"))
		return
	}

	stats, err := h.outcomes.Dashboard(r.Context(), "", window)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("operation", "recommendation_stats").Msg("Failed to build recommendation stats")
		writeJSON(w, http.StatusInternalServerError, models.LegacyError{Success: false, Error: statsFailureMessage})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// RecordAction handles POST /api/v1/recommendations/{logId}/action.
func (h *Handler) RecordAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, models.CodeUnauthorized, "Authentication required", nil)
		return
	}

	logID := chi.URLParam(r, "logId")
	if _, err := uuid.Parse(logID); err != nil {
		respondValidation(w, r, invalidParam("logId", "logId must be a UUID"))
		return
	}

	var body actionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		respondValidation(w, r, invalidParam("body", "Request body must be a JSON object with an action"))
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	action := recommend.Action(body.Action)
	err := h.outcomes.RecordAction(r.Context(), logID, userID, action)
	switch {
	case err == nil:
		respondJSON(w, r, http.StatusOK, models.NewSuccess(actionResponse{LogID: logID, Action: action}, start))
	case errors.Is(err, recommend.ErrLogNotFound):
		respondError(w, r, http.StatusNotFound, models.CodeNotFound, "Recommendation not found", nil)
	case errors.Is(err, recommend.ErrActionAlreadyRecorded):
		respondError(w, r, http.StatusConflict, models.CodeConflict, "A different action was already recorded", nil)
	case errors.Is(err, recommend.ErrInvalidAction):
		respondValidation(w, r, invalidParam("action", "action must be one of: accepted_yes, accepted_no"))
	default:
		respondError(w, r, http.StatusInternalServerError, models.CodeInternal, "Failed to record action", err)
	}
}
