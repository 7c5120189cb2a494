// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNewSuccess(t *testing.T) {
	t.Parallel()

	resp := NewSuccess(map[string]int{"n": 1}, time.Now().Add(-50*time.Millisecond))
	if resp.Status != StatusSuccess || resp.Error != nil {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Metadata.QueryTimeMS < 50 {
		t.Errorf("QueryTimeMS = %d, want >= 50", resp.Metadata.QueryTimeMS)
	}
}

func TestNewError_JSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewError(CodeConflict, "Action already recorded", nil))
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	for _, want := range []string{`"status":"error"`, `"data":null`, `"code":"CONFLICT"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
	if strings.Contains(body, "details") {
		t.Errorf("empty details must be omitted: %s", body)
	}
}

func TestLegacyError_JSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(LegacyError{Error: "Failed to fetch recommendation stats"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"success":false,"error":"Failed to fetch recommendation stats"}` {
		t.Errorf("body = %s", got)
	}
}
