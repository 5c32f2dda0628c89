// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

// CreateProfileRequest names the local profile.
type CreateProfileRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

// AuxToggleRequest toggles a string key in an auxiliary set.
type AuxToggleRequest struct {
	Key string `json:"key" validate:"required,max=256"`
}

// CustomLinksRequest replaces a media's deep links. An empty map clears them.
type CustomLinksRequest struct {
	Links   map[int]string `json:"links" validate:"max=10000,dive,keys,gt=0,endkeys,url"`
	Ongoing bool           `json:"ongoing"`
}

// HiddenGenresRequest replaces the hidden genre set.
type HiddenGenresRequest struct {
	Genres []string `json:"genres" validate:"max=200,dive,required,max=64"`
}

// SensitiveContentRequest locks or unlocks sensitive genres.
type SensitiveContentRequest struct {
	Unlocked *bool `json:"unlocked" validate:"required"`
}

// StorageQuotaRequest sets the soft storage limit.
type StorageQuotaRequest struct {
	Bytes int64 `json:"bytes" validate:"required,gt=0"`
}

// NotificationsLayoutRequest sets the feed's tab order and pinned tab.
type NotificationsLayoutRequest struct {
	Layout []string `json:"layout" validate:"required,min=1,max=4,unique,dive,oneof=all updates reminders storage"`
	Pinned string   `json:"pinned" validate:"omitempty,oneof=all updates reminders storage"`
}
