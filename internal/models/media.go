// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

// MediaID identifies a catalog entry (AniList id, or MAL id in Jikan mode).
type MediaID int

// MediaType is the catalog format of a media entry.
type MediaType string

const (
	MediaTypeAnime   MediaType = "ANIME"
	MediaTypeManga   MediaType = "MANGA"
	MediaTypeNovel   MediaType = "NOVEL"
	MediaTypeOneShot MediaType = "ONE_SHOT"
)

// IsAnime reports whether progress for this type is counted in episodes.
func (t MediaType) IsAnime() bool {
	return t == MediaTypeAnime
}

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeAnime, MediaTypeManga, MediaTypeNovel, MediaTypeOneShot:
		return true
	}
	return false
}

// MediaImages holds cover art URLs.
type MediaImages struct {
	Cover  string `json:"cover,omitempty"`
	Banner string `json:"banner,omitempty"`
}

// MediaRecord is a catalog entry as returned by the metadata provider.
type MediaRecord struct {
	ID       MediaID     `json:"id"`
	IDMal    *int        `json:"idMal,omitempty"`
	Title    string      `json:"title"`
	Type     MediaType   `json:"type"`
	Status   string      `json:"status,omitempty"`
	Episodes *int        `json:"episodes"`
	Chapters *int        `json:"chapters"`
	Volumes  *int        `json:"volumes"`
	Genres   []string    `json:"genres,omitempty"`
	Synopsis string      `json:"synopsis,omitempty"`
	Images   MediaImages `json:"images"`
}

// UnitCount returns the count used for change detection: episodes for
// anime, chapters for everything else. Unknown counts are 0.
func (m *MediaRecord) UnitCount() int {
	if m.Type.IsAnime() {
		return deref(m.Episodes)
	}
	return deref(m.Chapters)
}

// TrackedMediaRecord is the lightweight snapshot kept for every media in a
// list. Synopsis is always blank to bound storage size.
type TrackedMediaRecord struct {
	ID       MediaID     `json:"id"`
	Title    string      `json:"title"`
	Type     MediaType   `json:"type"`
	Episodes *int        `json:"episodes"`
	Chapters *int        `json:"chapters"`
	Volumes  *int        `json:"volumes"`
	Synopsis string      `json:"synopsis"`
	Images   MediaImages `json:"images"`
}

// NewTrackedMediaRecord snapshots a media record for the tracked cache.
func NewTrackedMediaRecord(m *MediaRecord) TrackedMediaRecord {
	return TrackedMediaRecord{
		ID:       m.ID,
		Title:    m.Title,
		Type:     m.Type,
		Episodes: cloneInt(m.Episodes),
		Chapters: cloneInt(m.Chapters),
		Volumes:  cloneInt(m.Volumes),
		Images:   m.Images,
	}
}

// UnitCount mirrors MediaRecord.UnitCount for the cached snapshot.
func (r *TrackedMediaRecord) UnitCount() int {
	if r.Type.IsAnime() {
		return deref(r.Episodes)
	}
	return deref(r.Chapters)
}

// TotalUnits returns the total a user can consume: episodes for anime,
// chapters (falling back to volumes) otherwise. 0 means unknown.
func (r *TrackedMediaRecord) TotalUnits() int {
	if r.Type.IsAnime() {
		return deref(r.Episodes)
	}
	if n := deref(r.Chapters); n > 0 {
		return n
	}
	return deref(r.Volumes)
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
