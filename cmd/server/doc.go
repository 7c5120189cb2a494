// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package main is the entry point for the CineChance recommender server.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("cinechance")
	├── DataSupervisor ("data-layer")
	│   └── Taste profile refresh
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB holding profiles, watch lists and the recommendation log
 4. Sessions: Redis when REDIS_ADDR is set, otherwise in-process
 5. Metadata: TMDB client with cache, rate limit and circuit breaker
 6. Recommendation engine: person twins and, optionally, genre twins
 7. Supervisor Tree: profile refresh and HTTP server
 8. HTTP Server: Chi router with JWT authentication

# Configuration

Priority: Environment variables > Config file > Defaults

	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	JWT_SECRET=<32+ chars>
	DUCKDB_PATH=/data/cinechance.duckdb
	REDIS_ADDR=redis:6379        # optional
	TMDB_API_KEY=<key>
	RECOMMEND_GENRE_TWINS_ENABLED=true

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for HTTP_SHUTDOWN_TIMEOUT, then the database closes.
*/
package main
