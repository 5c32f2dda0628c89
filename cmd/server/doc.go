// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

/*
Package main is the entry point for the Shiori server.

Shiori keeps a single profile's anime and manga lists, episode and chapter
progress, reminders and notifications on the local machine. A background
poller asks the catalog provider (AniList or Jikan) for new episodes and
chapters of everything currently watched or read, and a reminder engine
turns scheduled reminders into notifications.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("shiori")
	├── SchedulingSupervisor ("scheduling-layer")
	│   ├── Update Poller (optional, POLLER_ENABLED)
	│   └── Reminder Engine (optional, REMINDERS_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket Hub (list and notification changes)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (Chi router)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON or console output
 3. Storage: BadgerDB key-value store
 4. Quota Guard: usage estimate from the BadgerDB size
 5. Metadata: rate limited, retried and cached catalog client
 6. List State Store: profile and list data, with the tracked-media
    cache and WebSocket hub subscribed to every change
 7. Update Poller and Reminder Engine
 8. HTTP Server and Supervisor Tree

# Configuration

Priority: Environment variables > Config file > Defaults

	# Server
	HTTP_PORT=4680
	HTTP_HOST=127.0.0.1
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Storage
	STORAGE_DIR=/data/shiori
	STORAGE_IN_MEMORY=false
	QUOTA_FALLBACK_POLICY=open   # open or serialized

	# Catalog provider
	METADATA_PROVIDER=anilist    # anilist or jikan

	# Background work
	POLLER_INTERVAL=30m
	REMINDERS_TIMEZONE=Europe/Berlin

See internal/config for the complete list.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains open
requests, WebSocket clients are closed, the poller and reminder engine
wait for any run in flight, and the store is closed last. Services that
fail to stop in time are logged.

# Endpoints

  - /api/v1/health: liveness and readiness
  - /api/v1/...: profile, lists, progress, settings, reminders,
    notifications, checks, export and import
  - /api/v1/ws: WebSocket updates
  - /metrics: Prometheus metrics
*/
package main
