// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package services

import "context"

// ContextHub is satisfied by *websocket.Hub. Declared here so this package
// does not import the hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the notification hub under supervision.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (h *HubService) Serve(ctx context.Context) error {
	return h.hub.RunWithContext(ctx)
}

func (h *HubService) String() string {
	return "notification-hub"
}
