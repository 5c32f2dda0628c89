// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/shiori/internal/models"
)

func newID() string {
	return uuid.NewString()
}

// ToggleList flips membership of id in kind and reports the new membership.
// Adding to currentlyWatching removes id from planToWatch, and adding to
// currentlyReading removes it from planToRead, in the same commit. Leaving a
// "currently" list never restores the "plan to" entry.
func (s *Store) ToggleList(ctx context.Context, kind models.ListKind, id models.MediaID) (bool, error) {
	var member bool
	_, err := s.Update(ctx, func(d *models.ListData) error {
		set := d.List(kind)
		if set == nil {
			return fmt.Errorf("unknown list kind %q", kind)
		}
		member = set.Toggle(id)
		if !member {
			return nil
		}
		switch kind {
		case models.ListCurrentlyWatching:
			d.PlanToWatch.Remove(id)
		case models.ListCurrentlyReading:
			d.PlanToRead.Remove(id)
		}
		return nil
	})
	return member, err
}

// TogglePlanToWatch toggles id in planToWatch.
func (s *Store) TogglePlanToWatch(ctx context.Context, id models.MediaID) (bool, error) {
	return s.ToggleList(ctx, models.ListPlanToWatch, id)
}

// ToggleCurrentlyWatching toggles id in currentlyWatching.
func (s *Store) ToggleCurrentlyWatching(ctx context.Context, id models.MediaID) (bool, error) {
	return s.ToggleList(ctx, models.ListCurrentlyWatching, id)
}

// TogglePlanToRead toggles id in planToRead.
func (s *Store) TogglePlanToRead(ctx context.Context, id models.MediaID) (bool, error) {
	return s.ToggleList(ctx, models.ListPlanToRead, id)
}

// ToggleCurrentlyReading toggles id in currentlyReading.
func (s *Store) ToggleCurrentlyReading(ctx context.Context, id models.MediaID) (bool, error) {
	return s.ToggleList(ctx, models.ListCurrentlyReading, id)
}

// IsInList reports whether id is a member of kind.
func (s *Store) IsInList(id models.MediaID, kind models.ListKind) bool {
	return s.ListData().List(kind).Has(id)
}

// AuxKind names one of the auxiliary collections.
type AuxKind string

const (
	AuxExcludedItems        AuxKind = "excludedItems"
	AuxReadActivity         AuxKind = "readActivityIds"
	AuxPinnedNews           AuxKind = "pinnedNews"
	AuxFavoriteNews         AuxKind = "favoriteNews"
	AuxFollowedAnimeForNews AuxKind = "followedAnimeForNews"
)

// ToggleExcluded toggles a media id in excludedItems.
func (s *Store) ToggleExcluded(ctx context.Context, id models.MediaID) (bool, error) {
	var member bool
	_, err := s.Update(ctx, func(d *models.ListData) error {
		member = d.ExcludedItems.Toggle(id)
		return nil
	})
	return member, err
}

// ToggleFollowedForNews toggles a media id in followedAnimeForNews.
func (s *Store) ToggleFollowedForNews(ctx context.Context, id models.MediaID) (bool, error) {
	var member bool
	_, err := s.Update(ctx, func(d *models.ListData) error {
		member = d.FollowedAnimeForNews.Toggle(id)
		return nil
	})
	return member, err
}

// ToggleAux toggles a string key in one of the string-keyed auxiliary sets.
func (s *Store) ToggleAux(ctx context.Context, kind AuxKind, key string) (bool, error) {
	var member bool
	_, err := s.Update(ctx, func(d *models.ListData) error {
		var set models.Set[string]
		switch kind {
		case AuxReadActivity:
			set = d.ReadActivityIDs
		case AuxPinnedNews:
			set = d.PinnedNews
		case AuxFavoriteNews:
			set = d.FavoriteNews
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSection, kind)
		}
		member = set.Toggle(key)
		return nil
	})
	return member, err
}
