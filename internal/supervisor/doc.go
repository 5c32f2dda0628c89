// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

/*
Package supervisor runs Shiori's long-lived services under suture v4.

Each layer has its own supervisor so that repeated failures in one layer
back off without restarting the others. Supervisor events are logged
through sutureslog, bridged to zerolog by logging.NewSlogLogger.

Usage:

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSchedulingService(services.NewSchedulerService("update-poller", poller))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
