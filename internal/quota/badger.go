// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package quota

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// BadgerEstimator reports the on-disk size of a badger database.
type BadgerEstimator struct {
	db       *badger.DB
	capacity int64
}

// NewBadgerEstimator creates an estimator. capacity is reported as
// QuotaBytes and is informational only; the profile quota decides.
func NewBadgerEstimator(db *badger.DB, capacity int64) *BadgerEstimator {
	return &BadgerEstimator{db: db, capacity: capacity}
}

// Estimate implements Estimator.
func (e *BadgerEstimator) Estimate(ctx context.Context) (Usage, error) {
	if e.db == nil || e.db.IsClosed() {
		return Usage{}, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	if e.db.Opts().InMemory {
		// In-memory databases have no files; Size reports zero.
		return Usage{}, ErrUnavailable
	}
	lsm, vlog := e.db.Size()
	return Usage{UsedBytes: lsm + vlog, QuotaBytes: e.capacity}, nil
}
