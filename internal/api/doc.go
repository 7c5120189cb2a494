// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package api serves the recommendation HTTP API on a chi router.

Routes:

	GET  /health                                     liveness and dependency status
	GET  /metrics                                    Prometheus exposition
	GET  /api/v1/recommendations                     run the pipeline for the caller
	GET  /api/v1/recommendations/stats               outcome dashboard (window=7|30|all)
	POST /api/v1/recommendations/{logId}/action      record accepted_yes / accepted_no
	GET  /api/v1/ratings/{mediaType}/{tmdbId}        blended CineChance rating

Everything under /api/v1 requires a bearer JWT and is rate limited per
client with go-chi/httprate. Responses use the models.APIResponse
envelope; the stats endpoint returns the dashboard object directly and
keeps a {success:false,error} body on failure.
*/
package api
