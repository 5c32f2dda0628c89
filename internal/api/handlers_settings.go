// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"context"
	"io"
	"net/http"
	"slices"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// GenresResponse reports the user's hidden genres and the effective set.
type GenresResponse struct {
	Hidden                   []string `json:"hidden"`
	Effective                []string `json:"effective"`
	SensitiveContentUnlocked bool     `json:"sensitiveContentUnlocked"`
}

// QuotaResponse is the current storage quota and, when a guard is wired,
// its live verdict for the current state.
type QuotaResponse struct {
	QuotaBytes int64  `json:"quotaBytes"`
	UsedBytes  int64  `json:"usedBytes"`
	Allowed    bool   `json:"allowed"`
	Source     string `json:"source,omitempty"`
}

// NotificationsLayoutResponse is the feed's tab order and pinned tab.
type NotificationsLayoutResponse struct {
	Layout []string `json:"layout"`
	Pinned string   `json:"pinned"`
}

func (h *Handler) genres() GenresResponse {
	d := h.store.ListData()
	return GenresResponse{
		Hidden:                   d.HiddenGenres.Sorted(),
		Effective:                h.store.EffectiveHiddenGenres(),
		SensitiveContentUnlocked: d.SensitiveContentUnlocked,
	}
}

// GenresGet returns hidden genres.
func (h *Handler) GenresGet(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.genres())
}

// GenresPut replaces the hidden genre set.
func (h *Handler) GenresPut(w http.ResponseWriter, r *http.Request) {
	var req HiddenGenresRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetHiddenGenres(r.Context(), req.Genres); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.genres())
}

// SensitiveContentPut locks or unlocks the built-in sensitive genres.
func (h *Handler) SensitiveContentPut(w http.ResponseWriter, r *http.Request) {
	var req SensitiveContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetSensitiveContentUnlocked(r.Context(), *req.Unlocked); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.genres())
}

// QuotaGet checks the current state against the quota without writing.
func (h *Handler) QuotaGet(w http.ResponseWriter, r *http.Request) {
	d := h.store.ListData()
	resp := QuotaResponse{QuotaBytes: d.StorageQuota, Allowed: true}
	if resp.QuotaBytes <= 0 {
		resp.QuotaBytes = models.DefaultStorageQuota
	}
	if h.guard != nil {
		dec := h.guard.Check(r.Context(), d)
		resp.QuotaBytes = dec.QuotaBytes
		resp.UsedBytes = dec.UsedBytes
		resp.Allowed = dec.Allowed
		resp.Source = dec.Source
	}
	respondSuccess(w, r, http.StatusOK, resp)
}

// QuotaPut sets the soft storage limit.
func (h *Handler) QuotaPut(w http.ResponseWriter, r *http.Request) {
	var req StorageQuotaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetStorageQuota(r.Context(), req.Bytes); err != nil {
		respondStoreError(w, r, err)
		return
	}
	h.QuotaGet(w, r)
}

// NotificationsLayoutGet returns the feed's tab layout.
func (h *Handler) NotificationsLayoutGet(w http.ResponseWriter, r *http.Request) {
	d := h.store.ListData()
	respondSuccess(w, r, http.StatusOK, NotificationsLayoutResponse{
		Layout: d.NotificationsLayout,
		Pinned: d.PinnedNotificationTab,
	})
}

// NotificationsLayoutPut replaces the feed's tab layout.
func (h *Handler) NotificationsLayoutPut(w http.ResponseWriter, r *http.Request) {
	var req NotificationsLayoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Pinned != "" && !slices.Contains(req.Layout, req.Pinned) {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "pinned must be one of the layout tabs", nil)
		return
	}
	if err := h.store.SetNotificationsLayout(r.Context(), req.Layout, req.Pinned); err != nil {
		respondStoreError(w, r, err)
		return
	}
	h.NotificationsLayoutGet(w, r)
}

// LayoutGet returns the opaque presentation layout, or null.
func (h *Handler) LayoutGet(w http.ResponseWriter, r *http.Request) {
	h.rawGet(w, r, h.store.LayoutConfig)
}

// LayoutPut stores the opaque presentation layout verbatim.
func (h *Handler) LayoutPut(w http.ResponseWriter, r *http.Request) {
	h.rawPut(w, r, h.store.SetLayoutConfig)
}

// SharedDataGet returns the opaque shared-data configuration, or null.
func (h *Handler) SharedDataGet(w http.ResponseWriter, r *http.Request) {
	h.rawGet(w, r, h.store.SharedDataConfig)
}

// SharedDataPut stores the opaque shared-data configuration verbatim.
func (h *Handler) SharedDataPut(w http.ResponseWriter, r *http.Request) {
	h.rawPut(w, r, h.store.SetSharedDataConfig)
}

func (h *Handler) rawGet(w http.ResponseWriter, r *http.Request, get func(ctx context.Context) (json.RawMessage, error)) {
	raw, err := get(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	respondSuccess(w, r, http.StatusOK, raw)
}

func (h *Handler) rawPut(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, raw json.RawMessage) error) {
	if !h.store.HasProfile() {
		respondStoreError(w, r, store.ErrNoProfile)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large", err)
		return
	}
	if !json.Valid(data) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Body must be valid JSON", nil)
		return
	}
	if err := set(r.Context(), json.RawMessage(data)); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, json.RawMessage(data))
}
