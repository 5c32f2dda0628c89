// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/logging"
)

// DataExport streams the export document as a downloadable file rather
// than inside the response envelope, so it can be imported as is.
func (h *Handler) DataExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Export(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to encode export", err)
		return
	}

	filename := fmt.Sprintf("shiori-export-%s.json", h.store.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write export")
	}
}

// DataImport replaces all local data with an export document. Invalid
// documents answer 400 and leave the current data untouched.
func (h *Handler) DataImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Import document too large", err)
		return
	}
	if err := h.store.Import(r.Context(), data); err != nil {
		respondStoreError(w, r, err)
		return
	}
	p, _ := h.store.Profile()
	respondSuccess(w, r, http.StatusOK, map[string]any{"imported": true, "profile": p})
}
