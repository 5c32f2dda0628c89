// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"net/http"

	"github.com/tomtom215/shiori/internal/logging"
	ws "github.com/tomtom215/shiori/internal/websocket"
)

// WebSocket upgrades the connection and registers it with the hub. The
// client receives the current unseen count first.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondStoreError(w, r, errFeatureDisabled)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	greeting := ws.Message{
		Type: ws.MessageTypeUnseenCount,
		Data: ws.UnseenCountData{Unseen: h.feed.UnseenCount(nil)},
	}
	if err := h.wsHub.Attach(r.Context(), client, greeting); err != nil {
		logging.Warn().Err(err).Msg("WebSocket client not registered")
		_ = conn.Close()
		return
	}
	client.Start()
}
