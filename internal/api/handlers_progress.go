// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// ProgressResponse is the consumption state of one media.
type ProgressResponse struct {
	MediaID  models.MediaID `json:"mediaId"`
	Episodes []string       `json:"watchedEpisodes"`
	Chapters []string       `json:"readChapters"`
	Total    int            `json:"total,omitempty"`
}

// UnitToggleResponse reports the state of one unit after a toggle.
type UnitToggleResponse struct {
	MediaID models.MediaID `json:"mediaId"`
	Unit    int            `json:"unit"`
	Done    bool           `json:"done"`
}

// CustomLinksResponse lists parsed deep links sorted by unit.
type CustomLinksResponse struct {
	MediaID models.MediaID   `json:"mediaId"`
	Links   []store.UnitLink `json:"links"`
	Ongoing bool             `json:"ongoing"`
}

// MediaDetailResponse joins catalog detail with local state.
type MediaDetailResponse struct {
	Media   *models.MediaRecord `json:"media"`
	Lists   []models.ListKind   `json:"lists"`
	Watched int                 `json:"watched"`
	Read    int                 `json:"read"`
}

// ProgressGet returns watched episodes and read chapters of a media.
func (h *Handler) ProgressGet(w http.ResponseWriter, r *http.Request) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	d := h.store.ListData()
	resp := ProgressResponse{MediaID: id, Episodes: []string{}, Chapters: []string{}}
	if eps, ok := d.WatchedEpisodes[id]; ok {
		resp.Episodes = eps.Sorted()
	}
	if rp, ok := d.ReadChapters[id]; ok && rp != nil {
		resp.Chapters = rp.Read.Sorted()
	}
	if h.tracked != nil {
		if rec, ok := h.tracked.Get(id); ok {
			resp.Total = rec.TotalUnits()
		}
	}
	respondSuccess(w, r, http.StatusOK, resp)
}

// EpisodeToggle flips one watched episode.
func (h *Handler) EpisodeToggle(w http.ResponseWriter, r *http.Request) {
	h.toggleUnit(w, r, h.store.ToggleEpisode)
}

// ChapterToggle flips one read chapter.
func (h *Handler) ChapterToggle(w http.ResponseWriter, r *http.Request) {
	h.toggleUnit(w, r, h.store.ToggleChapter)
}

func (h *Handler) toggleUnit(w http.ResponseWriter, r *http.Request,
	toggle func(ctx context.Context, id models.MediaID, unit int) (bool, error)) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	done, err := toggle(r.Context(), id, unit)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, UnitToggleResponse{MediaID: id, Unit: unit, Done: done})
}

// CustomLinksGet returns a media's parsed deep links.
func (h *Handler) CustomLinksGet(w http.ResponseWriter, r *http.Request) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	links, ongoing := h.store.CustomLinks(id)
	if links == nil {
		links = []store.UnitLink{}
	}
	respondSuccess(w, r, http.StatusOK, CustomLinksResponse{MediaID: id, Links: links, Ongoing: ongoing})
}

// CustomLinksPut replaces a media's deep links.
func (h *Handler) CustomLinksPut(w http.ResponseWriter, r *http.Request) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	var req CustomLinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetCustomLinks(r.Context(), id, req.Links, req.Ongoing); err != nil {
		respondStoreError(w, r, err)
		return
	}
	links, ongoing := h.store.CustomLinks(id)
	if links == nil {
		links = []store.UnitLink{}
	}
	respondSuccess(w, r, http.StatusOK, CustomLinksResponse{MediaID: id, Links: links, Ongoing: ongoing})
}

// MediaDetail fetches the catalog record of a media through the detail
// cache and joins it with local list and progress state.
func (h *Handler) MediaDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := mediaIDParam(w, r)
	if !ok {
		return
	}
	if h.details == nil {
		respondStoreError(w, r, errFeatureDisabled)
		return
	}
	rec, err := h.details.FetchMediaDetail(r.Context(), id)
	if err != nil {
		status, code := classifyError(err)
		if status == http.StatusInternalServerError {
			status, code = http.StatusBadGateway, ErrCodeUpstream
		}
		respondError(w, r, status, code, "Media lookup failed", err)
		return
	}

	d := h.store.ListData()
	resp := MediaDetailResponse{Media: rec, Lists: []models.ListKind{}}
	for _, kind := range models.ListKinds {
		if d.List(kind).Has(id) {
			resp.Lists = append(resp.Lists, kind)
		}
	}
	resp.Watched = d.Progress(id, models.MediaTypeAnime)
	resp.Read = d.Progress(id, models.MediaTypeManga)
	respondSuccess(w, r, http.StatusOK, resp)
}
