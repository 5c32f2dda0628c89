// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// RemindersList returns every reminder, optionally filtered by ?mediaId.
func (h *Handler) RemindersList(w http.ResponseWriter, r *http.Request) {
	mediaID := models.MediaID(getIntParam(r, "mediaId", 0))
	out := []models.Reminder{}
	for _, rem := range h.store.Reminders() {
		if mediaID == 0 || rem.MediaID == mediaID {
			out = append(out, rem.Clone())
		}
	}
	respondSuccess(w, r, http.StatusOK, out)
}

// ReminderGet returns one reminder.
func (h *Handler) ReminderGet(w http.ResponseWriter, r *http.Request) {
	rem, ok := h.store.Reminder(chi.URLParam(r, "reminderID"))
	if !ok {
		respondStoreError(w, r, store.ErrReminderNotFound)
		return
	}
	respondSuccess(w, r, http.StatusOK, rem)
}

// ReminderCreate adds a reminder.
func (h *Handler) ReminderCreate(w http.ResponseWriter, r *http.Request) {
	var in store.ReminderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rem, err := h.store.AddReminder(r.Context(), in)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, rem)
}

// ReminderUpdate replaces the editable fields of a reminder.
func (h *Handler) ReminderUpdate(w http.ResponseWriter, r *http.Request) {
	var in store.ReminderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rem, err := h.store.UpdateReminder(r.Context(), chi.URLParam(r, "reminderID"), in)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, rem)
}

// ReminderDelete removes a reminder and its notifications.
func (h *Handler) ReminderDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reminderID")
	if err := h.store.DeleteReminder(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"deleted": id})
}
