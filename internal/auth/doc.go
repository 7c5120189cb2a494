// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package auth authenticates API requests with HMAC-signed JWT bearer tokens.

The token subject is the CineChance user id. Middleware.Authenticate
rejects requests without a valid token with 401 before any handler runs,
and stores the claims in the request context for handlers:

	userID := auth.UserIDFromContext(r.Context())

Tokens are accepted from the Authorization header ("Bearer <token>") or
from a "token" cookie.
*/
package auth
