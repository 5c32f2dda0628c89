// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shiori/internal/feed"
	"github.com/tomtom215/shiori/internal/models"
)

// NotificationsResponse is one page of the ordered feed.
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int                   `json:"total"`
	Unseen        int                   `json:"unseen"`
}

// feedFilter builds the predicate for ?tab and ?mediaId.
func feedFilter(r *http.Request) feed.Predicate {
	preds := []feed.Predicate{feed.ForTab(r.URL.Query().Get("tab"))}
	if id := getIntParam(r, "mediaId", 0); id > 0 {
		preds = append(preds, feed.ForMedia(models.MediaID(id)))
	}
	return feed.And(preds...)
}

// NotificationsList returns the ordered feed filtered by ?tab and ?mediaId,
// paged by ?limit and ?offset.
func (h *Handler) NotificationsList(w http.ResponseWriter, r *http.Request) {
	pred := feedFilter(r)
	all := h.feed.Ordered(pred)

	offset := max(getIntParam(r, "offset", 0), 0)
	limit := getIntParam(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	page := []models.Notification{}
	if offset < len(all) {
		page = all[offset:min(offset+limit, len(all))]
	}

	respondSuccess(w, r, http.StatusOK, NotificationsResponse{
		Notifications: page,
		Total:         len(all),
		Unseen:        h.feed.UnseenCount(pred),
	})
}

// NotificationsUnseen returns the unseen count for ?tab and ?mediaId.
func (h *Handler) NotificationsUnseen(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]int{"unseen": h.feed.UnseenCount(feedFilter(r))})
}

// NotificationSeen marks one notification seen.
func (h *Handler) NotificationSeen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")
	if err := h.feed.MarkSeen(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"seen": id})
}

// NotificationsSeenAll marks every matching unseen notification seen.
func (h *Handler) NotificationsSeenAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.feed.MarkAllSeen(r.Context(), feedFilter(r))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]int{"changed": n})
}

// NotificationDelete removes one notification. Reminder notifications
// answer 409; they go away with their reminder.
func (h *Handler) NotificationDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")
	if err := h.feed.DeleteOne(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// NotificationsDeleteSeen removes every matching seen notification.
func (h *Handler) NotificationsDeleteSeen(w http.ResponseWriter, r *http.Request) {
	n, err := h.feed.DeleteAllSeen(r.Context(), feedFilter(r))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]int{"removed": n})
}
