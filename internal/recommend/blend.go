// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

package recommend

import "math"

// BlendRating combines an external aggregate rating with the platform's
// community rating into one display score rounded to one decimal.
//
// Without community data (nil or zero rating, no community votes) or
// without external votes the external rating is returned as is. Otherwise
// the community weight is
//
//	w = cv / (cv + prior)   if cv < transition
//	w = cv / (cv + ev)      otherwise
//
// clamped to [floor, ceiling], and the score is w*community + (1-w)*external.
func BlendRating(externalRating float64, externalVotes int, communityRating *float64, communityVotes int, cfg BlendConfig) float64 {
	if communityRating == nil || *communityRating == 0 || communityVotes <= 0 || externalVotes <= 0 {
		return RoundTenth(externalRating)
	}

	cv := float64(communityVotes)
	var w float64
	if communityVotes < cfg.TransitionVotes {
		w = cv / (cv + cfg.PriorStrength)
	} else {
		w = cv / (cv + float64(externalVotes))
	}
	w = math.Max(cfg.WeightFloor, math.Min(cfg.WeightCeiling, w))

	return RoundTenth(w*(*communityRating) + (1-w)*externalRating)
}

// RoundTenth rounds x to one decimal place, halves away from zero.
func RoundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
