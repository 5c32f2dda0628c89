// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// ListsResponse is the membership view of the aggregate.
type ListsResponse struct {
	PlanToWatch          models.Set[models.MediaID] `json:"planToWatch"`
	CurrentlyWatching    models.Set[models.MediaID] `json:"currentlyWatching"`
	PlanToRead           models.Set[models.MediaID] `json:"planToRead"`
	CurrentlyReading     models.Set[models.MediaID] `json:"currentlyReading"`
	ExcludedItems        models.Set[models.MediaID] `json:"excludedItems"`
	FollowedAnimeForNews models.Set[models.MediaID] `json:"followedAnimeForNews"`
	ReadActivityIDs      models.Set[string]         `json:"readActivityIds"`
	PinnedNews           models.Set[string]         `json:"pinnedNews"`
	FavoriteNews         models.Set[string]         `json:"favoriteNews"`
}

// MembershipResponse reports set membership after a toggle or lookup.
type MembershipResponse struct {
	MediaID models.MediaID `json:"mediaId,omitempty"`
	Key     string         `json:"key,omitempty"`
	Member  bool           `json:"member"`
}

// ListsGet returns every list and auxiliary set.
func (h *Handler) ListsGet(w http.ResponseWriter, r *http.Request) {
	if !h.store.HasProfile() {
		respondStoreError(w, r, store.ErrNoProfile)
		return
	}
	d := h.store.ListData()
	respondSuccess(w, r, http.StatusOK, ListsResponse{
		PlanToWatch:          d.PlanToWatch,
		CurrentlyWatching:    d.CurrentlyWatching,
		PlanToRead:           d.PlanToRead,
		CurrentlyReading:     d.CurrentlyReading,
		ExcludedItems:        d.ExcludedItems,
		FollowedAnimeForNews: d.FollowedAnimeForNews,
		ReadActivityIDs:      d.ReadActivityIDs,
		PinnedNews:           d.PinnedNews,
		FavoriteNews:         d.FavoriteNews,
	})
}

func listKindParam(w http.ResponseWriter, r *http.Request) (models.ListKind, bool) {
	kind, err := models.ParseListKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return "", false
	}
	return kind, true
}

// ListMembership reports whether a media id is in one list.
func (h *Handler) ListMembership(w http.ResponseWriter, r *http.Request) {
	kind, ok := listKindParam(w, r)
	if !ok {
		return
	}
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	respondSuccess(w, r, http.StatusOK, MembershipResponse{MediaID: id, Member: h.store.IsInList(id, kind)})
}

// ListToggle flips membership of a media id in one list. Adding to a
// currently list removes the id from the matching plan list.
func (h *Handler) ListToggle(w http.ResponseWriter, r *http.Request) {
	kind, ok := listKindParam(w, r)
	if !ok {
		return
	}
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	member, err := h.store.ToggleList(r.Context(), kind, id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MembershipResponse{MediaID: id, Member: member})
}

// ExcludedToggle flips a media id in excludedItems.
func (h *Handler) ExcludedToggle(w http.ResponseWriter, r *http.Request) {
	h.toggleMediaAux(w, r, h.store.ToggleExcluded)
}

// FollowedToggle flips a media id in followedAnimeForNews.
func (h *Handler) FollowedToggle(w http.ResponseWriter, r *http.Request) {
	h.toggleMediaAux(w, r, h.store.ToggleFollowedForNews)
}

func (h *Handler) toggleMediaAux(w http.ResponseWriter, r *http.Request,
	toggle func(ctx context.Context, id models.MediaID) (bool, error)) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	member, err := toggle(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MembershipResponse{MediaID: id, Member: member})
}

// AuxToggle flips a string key in readActivityIds, pinnedNews or favoriteNews.
func (h *Handler) AuxToggle(w http.ResponseWriter, r *http.Request) {
	var req AuxToggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := h.store.ToggleAux(r.Context(), store.AuxKind(chi.URLParam(r, "set")), req.Key)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MembershipResponse{Key: req.Key, Member: member})
}

// SectionClear empties one named collection of the aggregate.
func (h *Handler) SectionClear(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if err := h.store.ClearSection(r.Context(), section); err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"cleared": section})
}
