// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

/*
Package supervisor runs the long-lived parts of the recommender under a
suture v4 supervisor tree.

The tree has two layers below the root:

  - data: background maintenance such as the taste-profile refresh loop
  - api: the HTTP server

Each layer restarts its own services with exponential backoff, so a
panicking refresh loop never takes the HTTP server down with it.
Supervisor events are logged through sutureslog into the global zerolog
logger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddDataService(services.NewProfileRefreshService(builder, refreshCfg, logging.Logger()))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	return tree.Serve(ctx)
*/
package supervisor
