// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/models"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	StorageOK     bool       `json:"storage_ok"`
	HasProfile    bool       `json:"has_profile"`
	TrackedMedia  int        `json:"tracked_media"`
	Checking      bool       `json:"checking"`
	LastCheck     *time.Time `json:"last_check,omitempty"`
	LastCheckErr  string     `json:"last_check_error,omitempty"`
	WSClients     int        `json:"ws_clients"`
	UptimeSeconds float64    `json:"uptime_seconds"`
}

// Health reports overall status. A failed last update check degrades the
// status but never fails the request.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:        "healthy",
		Version:       Version,
		StorageOK:     h.storageOK(r),
		HasProfile:    h.store.HasProfile(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.tracked != nil {
		health.TrackedMedia = len(h.tracked.All())
	}
	if h.poller != nil {
		health.Checking = h.poller.Checking()
		last, err := h.poller.LastRun()
		if !last.IsZero() {
			health.LastCheck = &last
		}
		if err != nil {
			health.LastCheckErr = err.Error()
			health.Status = "degraded"
		}
	}
	if h.wsHub != nil {
		health.WSClients = h.wsHub.ClientCount()
	}
	if !health.StorageOK {
		health.Status = "degraded"
	}

	respondSuccess(w, r, http.StatusOK, health)
}

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 503 until storage responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.storageOK(r)
	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, &models.APIResponse{
		Status: status,
		Data: map[string]any{
			"storage_ok":     ready,
			"ready_to_serve": ready,
			"uptime":         time.Since(h.startTime).Seconds(),
		},
		Metadata: metadataFor(r),
	})
}

// storageOK probes the key-value store with a read of the profile key.
func (h *Handler) storageOK(r *http.Request) bool {
	if h.kv == nil {
		return true
	}
	_, err := h.kv.Get(r.Context(), kv.KeyProfile)
	return err == nil || errors.Is(err, kv.ErrNotFound)
}
