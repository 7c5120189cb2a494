// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cinechance/recommender/internal/logging"
	"github.com/cinechance/recommender/internal/models"
	"github.com/cinechance/recommender/internal/validation"
)

// sanitizeLogValue replaces control characters so request input cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON marshals v with goccy/go-json and writes it with status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondJSON sends an enveloped JSON response.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	if r != nil && response.Metadata.RequestID == "" {
		response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())
	}
	writeJSON(w, status, response)
}

// respondError sends an error response. Server-side causes are logged,
// never returned to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", code).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	respondJSON(w, r, status, models.NewError(code, message, nil))
}

// respondValidation sends a 400 VALIDATION_ERROR response.
func respondValidation(w http.ResponseWriter, r *http.Request, apiErr *models.APIError) {
	resp := models.NewError(apiErr.Code, apiErr.Message, apiErr.Details)
	respondJSON(w, r, http.StatusBadRequest, resp)
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// invalidParam builds a VALIDATION_ERROR for an unparsable parameter.
func invalidParam(field, message string) *models.APIError {
	return &models.APIError{
		Code:    models.CodeValidation,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseCommaSeparatedInts parses a comma-separated list of integers.
// Any non-integer element is an error.
func parseCommaSeparatedInts(value string) ([]int, error) {
	parts := parseCommaSeparated(value)
	if len(parts) == 0 {
		return nil, nil
	}
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		result = append(result, n)
	}
	return result, nil
}

// parseOptionalInt parses an integer query parameter; empty means zero.
func parseOptionalInt(r *http.Request, key string) (int, *models.APIError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalidParam(key, key+" must be an integer")
	}
	return n, nil
}

// parseOptionalFloat parses a float query parameter; empty means zero.
func parseOptionalFloat(r *http.Request, key string) (float64, *models.APIError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, invalidParam(key, key+" must be a number")
	}
	return f, nil
}
