// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cinechance/recommender/internal/models"
	"github.com/cinechance/recommender/internal/recommend"
)

// GetRating handles GET /api/v1/ratings/{mediaType}/{tmdbId}.
func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	mediaType := recommend.MediaType(chi.URLParam(r, "mediaType"))
	if !mediaType.Valid() {
		respondValidation(w, r, invalidParam("mediaType", "mediaType must be movie or tv"))
		return
	}
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbId"))
	if err != nil || tmdbID <= 0 {
		respondValidation(w, r, invalidParam("tmdbId", "tmdbId must be a positive integer"))
		return
	}

	rating, err := h.ratings.Lookup(r.Context(), recommend.TitleKey{TMDBID: tmdbID, MediaType: mediaType})
	switch {
	case err == nil:
		respondJSON(w, r, http.StatusOK, models.NewSuccess(rating, start))
	case errors.Is(err, recommend.ErrInvalidMediaType):
		respondValidation(w, r, invalidParam("mediaType", "mediaType must be movie or tv"))
	default:
		respondError(w, r, http.StatusServiceUnavailable, models.CodeUnavailable, "Rating lookup failed", err)
	}
}
