// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

/*
Package models defines the data structures shared across Shiori.

Key Components:

  - ListData: the single persisted aggregate of a profile (memberships,
    progress, reminders, notifications and settings)
  - Set: generic unordered set serialized as a sorted JSON array
  - Notification: feed entry with a typed payload (update, reminder or
    storage) and a "type" discriminator on the wire
  - Reminder: one-shot or weekly repeating reminder for a media
  - MediaRecord and TrackedMediaRecord: catalog entry and its lightweight
    cached snapshot
  - Profile and ExportDocument: local profile and the export format
  - APIResponse: standard HTTP response envelope

ListData is treated as immutable once published by the store. Mutations
work on a Clone, so every type here provides deep-copy helpers.

JSON encoding uses github.com/goccy/go-json.
*/
package models
