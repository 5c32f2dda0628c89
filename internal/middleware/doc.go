// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package middleware holds the HTTP middleware shared by every API route:
// request ids threaded into the logging context, and Prometheus request
// instrumentation labelled by chi route pattern so ids in paths do not
// explode metric cardinality.
package middleware
