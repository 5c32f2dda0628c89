// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/feed"
	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/poller"
	"github.com/tomtom215/shiori/internal/quota"
	"github.com/tomtom215/shiori/internal/store"
	ws "github.com/tomtom215/shiori/internal/websocket"
)

// Version is reported by the health endpoint. Overridden at link time.
var Version = "dev"

// Checker runs update checks on demand.
type Checker interface {
	RunChecks(ctx context.Context) (poller.Result, error)
	Checking() bool
	LastRun() (time.Time, error)
}

// TrackedSource reads the tracked-media cache.
type TrackedSource interface {
	Get(id models.MediaID) (models.TrackedMediaRecord, bool)
	All() []models.TrackedMediaRecord
}

// DetailFetcher looks up full media records.
type DetailFetcher interface {
	FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error)
}

// Deps are the collaborators a Handler serves. Store and Feed are required;
// the rest may be nil, which disables the routes that need them.
type Deps struct {
	Store   *store.Store
	Feed    *feed.Feed
	KV      kv.Store
	Poller  Checker
	Tracked TrackedSource
	Details DetailFetcher
	Guard   *quota.Guard
	Hub     *ws.Hub
}

// Handler holds the dependencies of every API endpoint.
//
// Handler methods are split across files by route group:
//   - handlers_health.go: liveness and readiness
//   - handlers_profile.go: profile lifecycle
//   - handlers_lists.go: list membership and auxiliary sets
//   - handlers_progress.go: episodes, chapters, custom links, media detail
//   - handlers_settings.go: genres, quota, layouts
//   - handlers_reminders.go: reminder CRUD
//   - handlers_notifications.go: notification feed
//   - handlers_checks.go: manual update check
//   - handlers_transfer.go: export and import
//   - handlers_ws.go: live push
type Handler struct {
	store     *store.Store
	feed      *feed.Feed
	kv        kv.Store
	poller    Checker
	tracked   TrackedSource
	details   DetailFetcher
	guard     *quota.Guard
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a handler. cfg may be nil in tests; WebSocket origin
// checks then accept any non-empty Origin.
func NewHandler(deps Deps, cfg *config.Config) *Handler {
	return &Handler{
		store:     deps.Store,
		feed:      deps.Feed,
		kv:        deps.KV,
		poller:    deps.Poller,
		tracked:   deps.Tracked,
		details:   deps.Details,
		guard:     deps.Guard,
		wsHub:     deps.Hub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// getUpgrader returns a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts only origins allowed for CORS. Browsers
// always send Origin, so a missing one is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// broadcast pushes a message when a hub is wired.
func (h *Handler) broadcast(messageType string, data any) {
	if h.wsHub != nil {
		h.wsHub.BroadcastJSON(messageType, data)
	}
}
