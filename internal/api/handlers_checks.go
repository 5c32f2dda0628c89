// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/poller"
	ws "github.com/tomtom215/shiori/internal/websocket"
)

// CheckResponse reports whether a manual check ran and what it found.
type CheckResponse struct {
	Ran    bool           `json:"ran"`
	Result *poller.Result `json:"result,omitempty"`
}

// CheckStatus is the poller's current state.
type CheckStatus struct {
	Checking  bool       `json:"checking"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// ChecksRun triggers an update check. A check already in flight is not
// an error: the response says ran=false.
func (h *Handler) ChecksRun(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		respondStoreError(w, r, errFeatureDisabled)
		return
	}
	res, err := h.poller.RunChecks(r.Context())
	switch {
	case errors.Is(err, poller.ErrAlreadyChecking):
		respondSuccess(w, r, http.StatusOK, CheckResponse{Ran: false})
		return
	case err != nil:
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Update check failed", err)
		return
	}

	logging.Ctx(r.Context()).Info().Int("updates", len(res.Updates)).Msg("Manual update check complete")
	h.broadcast(ws.MessageTypeCheckCompleted, res)
	respondSuccess(w, r, http.StatusOK, CheckResponse{Ran: true, Result: &res})
}

// ChecksStatus reports whether a check is running and how the last one ended.
func (h *Handler) ChecksStatus(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		respondStoreError(w, r, errFeatureDisabled)
		return
	}
	status := CheckStatus{Checking: h.poller.Checking()}
	last, err := h.poller.LastRun()
	if !last.IsZero() {
		status.LastRun = &last
	}
	if err != nil {
		status.LastError = err.Error()
	}
	respondSuccess(w, r, http.StatusOK, status)
}
