// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shiori/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil config uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
	}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	// Health probes are not rate limited.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.ProfileGet)
			r.Post("/", h.ProfileCreate)
			r.Post("/sign-out", h.ProfileSignOut)
			r.Post("/reset", h.ProfileReset)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.ListsGet)
			r.Get("/{kind}/{id}", h.ListMembership)
			r.Post("/{kind}/{id}/toggle", h.ListToggle)
			r.Delete("/sections/{section}", h.SectionClear)
		})

		r.Route("/aux", func(r chi.Router) {
			r.Post("/excludedItems/{id}/toggle", h.ExcludedToggle)
			r.Post("/followedAnimeForNews/{id}/toggle", h.FollowedToggle)
			r.Post("/{set}/toggle", h.AuxToggle)
		})

		r.Route("/media/{id}", func(r chi.Router) {
			r.Get("/", h.MediaDetail)
			r.Get("/progress", h.ProgressGet)
			r.Post("/episodes/{unit}/toggle", h.EpisodeToggle)
			r.Post("/chapters/{unit}/toggle", h.ChapterToggle)
			r.Get("/links", h.CustomLinksGet)
			r.Put("/links", h.CustomLinksPut)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/genres", h.GenresGet)
			r.Put("/genres", h.GenresPut)
			r.Put("/sensitive-content", h.SensitiveContentPut)
			r.Get("/quota", h.QuotaGet)
			r.Put("/quota", h.QuotaPut)
			r.Get("/notifications-layout", h.NotificationsLayoutGet)
			r.Put("/notifications-layout", h.NotificationsLayoutPut)
			r.Get("/layout", h.LayoutGet)
			r.Put("/layout", h.LayoutPut)
			r.Get("/shared-data", h.SharedDataGet)
			r.Put("/shared-data", h.SharedDataPut)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", h.RemindersList)
			r.Post("/", h.ReminderCreate)
			r.Get("/{reminderID}", h.ReminderGet)
			r.Put("/{reminderID}", h.ReminderUpdate)
			r.Delete("/{reminderID}", h.ReminderDelete)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.NotificationsList)
			r.Get("/unseen", h.NotificationsUnseen)
			r.Post("/seen", h.NotificationsSeenAll)
			r.Delete("/seen", h.NotificationsDeleteSeen)
			r.Post("/{notificationID}/seen", h.NotificationSeen)
			r.Delete("/{notificationID}", h.NotificationDelete)
		})

		r.Route("/checks", func(r chi.Router) {
			r.Get("/", h.ChecksStatus)
			r.Post("/", h.ChecksRun)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/export", h.DataExport)
			r.Post("/import", h.DataImport)
		})

		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
