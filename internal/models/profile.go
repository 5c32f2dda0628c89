// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Profile is the locally named owner of a ListData aggregate. There is no
// authentication behind it.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportDocument is the single JSON object produced by export and accepted
// by import. Layout is opaque presentation state carried verbatim.
type ExportDocument struct {
	Profile *Profile             `json:"profile"`
	Lists   *ListData            `json:"lists"`
	Layout  json.RawMessage      `json:"layout,omitempty"`
	Tracked []TrackedMediaRecord `json:"tracked"`
}
