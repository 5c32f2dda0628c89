// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/shiori/internal/feed"
	"github.com/tomtom215/shiori/internal/metadata"
	"github.com/tomtom215/shiori/internal/poller"
	"github.com/tomtom215/shiori/internal/store"
)

// Error codes carried in APIError.Code.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeNoProfile        = "NO_PROFILE"
	ErrCodeProfileExists    = "PROFILE_EXISTS"
	ErrCodeCheckInProgress  = "CHECK_IN_PROGRESS"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// errFeatureDisabled is returned by handlers whose collaborator was not wired.
var errFeatureDisabled = errors.New("feature not enabled")

// classifyError maps a core error to an HTTP status and error code.
// Unknown errors are internal.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNoProfile):
		return http.StatusConflict, ErrCodeNoProfile
	case errors.Is(err, store.ErrProfileExists):
		return http.StatusConflict, ErrCodeProfileExists
	case errors.Is(err, store.ErrReminderNotFound),
		errors.Is(err, store.ErrNotificationNotFound),
		errors.Is(err, metadata.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, store.ErrInvalidImport),
		errors.Is(err, store.ErrUnknownSection):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, feed.ErrReminderNotification):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, poller.ErrAlreadyChecking):
		return http.StatusConflict, ErrCodeCheckInProgress
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, ErrCodeQuotaExceeded
	case errors.Is(err, errFeatureDisabled):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
