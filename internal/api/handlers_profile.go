// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"net/http"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/store"
)

// ProfileGet returns the local profile, or 404 before one exists.
func (h *Handler) ProfileGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Profile()
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNoProfile, store.ErrNoProfile.Error(), nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, p)
}

// ProfileCreate creates the local profile with empty lists.
func (h *Handler) ProfileCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.store.CreateProfile(r.Context(), req.Name)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, p)
}

// ProfileSignOut forgets the profile and every stored key.
func (h *Handler) ProfileSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SignOut(r.Context()); err != nil {
		respondStoreError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Msg("Signed out through API")
	respondSuccess(w, r, http.StatusOK, map[string]bool{"signed_out": true})
}

// ProfileReset returns the lists to their defaults and keeps the profile.
func (h *Handler) ProfileReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]bool{"reset": true})
}
