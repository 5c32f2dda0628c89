// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

/*
Package api exposes the local tracking core over HTTP and WebSocket.

All routes live under /api/v1 and answer with the models.APIResponse
envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "request_id": "..."}}
	{"status": "error", "data": null, "error": {"code": "NOT_FOUND", "message": "..."}}

Route groups:

	/api/v1/health         liveness and readiness
	/api/v1/profile        create, get, sign out, reset
	/api/v1/lists          list membership and auxiliary sets
	/api/v1/media          watched episodes, read chapters, custom links, detail
	/api/v1/settings       hidden genres, sensitive unlock, quota, layouts
	/api/v1/reminders      reminder CRUD
	/api/v1/notifications  ordered feed, seen state, deletion
	/api/v1/checks         manual update check
	/api/v1/data           export and import
	/api/v1/ws             live notification push

There is no authentication: the server is meant to listen on loopback for a
single local profile. CORS and per-IP rate limiting come from chi
middleware; /metrics serves the Prometheus registry.

Example:

	handler := api.NewHandler(api.Deps{Store: s, Feed: f, Poller: p, Hub: hub}, cfg)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(&cfg.Server))
	srv := &http.Server{Addr: addr, Handler: router.Setup()}
*/
package api
