// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package services adapts Shiori components to suture.Service.
//
// SchedulerService drives anything with a Start/Stop lifecycle, which covers
// the update poller and the reminder engine. HTTPServerService translates
// ListenAndServe and Shutdown. HubService delegates to the notification
// hub's context-aware run loop.
package services
