// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package kv is the persistent key-value adapter underneath the list store.
//
// Values are opaque byte slices keyed by short strings. Every persisted
// aggregate (profile, list data, tracked media, layout) is written whole
// under its own key; there are no partial writes.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Well-known keys.
const (
	KeyProfile          = "profile"
	KeyListData         = "listData"
	KeyTrackedMedia     = "trackedMedia"
	KeyLayoutConfig     = "layoutConfig"
	KeySharedDataConfig = "sharedDataConfig"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence contract consumed by the core.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// GetJSON decodes the value under key into dst.
// It reports false with a nil error when the key does not exist.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
