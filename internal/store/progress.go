// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"context"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/models"
)

// ToggleEpisode flips the watched state of one episode and reports it.
func (s *Store) ToggleEpisode(ctx context.Context, id models.MediaID, episode int) (bool, error) {
	key, err := models.UnitKey(episode)
	if err != nil {
		return false, err
	}
	var watched bool
	_, err = s.Update(ctx, func(d *models.ListData) error {
		eps := d.WatchedEpisodes[id]
		if eps == nil {
			eps = models.NewSet[string]()
			d.WatchedEpisodes[id] = eps
		}
		watched = eps.Toggle(key)
		if eps.Len() == 0 {
			delete(d.WatchedEpisodes, id)
		}
		return nil
	})
	return watched, err
}

// ToggleChapter flips the read state of one chapter and reports it.
// Marking a chapter read bumps lastRead.
func (s *Store) ToggleChapter(ctx context.Context, id models.MediaID, chapter int) (bool, error) {
	key, err := models.UnitKey(chapter)
	if err != nil {
		return false, err
	}
	now := s.now().UTC()
	var read bool
	_, err = s.Update(ctx, func(d *models.ListData) error {
		rp := d.ReadChapters[id]
		if rp == nil {
			rp = &models.ReadProgress{Read: models.NewSet[string]()}
			d.ReadChapters[id] = rp
		}
		read = rp.Read.Toggle(key)
		if read {
			rp.LastRead = now
		}
		if rp.Read.Len() == 0 {
			delete(d.ReadChapters, id)
		}
		return nil
	})
	return read, err
}

// SetCustomLinks stores deep-link overrides for id. An empty links map
// removes the entry.
func (s *Store) SetCustomLinks(ctx context.Context, id models.MediaID, links map[int]string, ongoing bool) error {
	var template string
	if len(links) > 0 {
		data, err := json.Marshal(links)
		if err != nil {
			return err
		}
		template = string(data)
	}
	_, err := s.Update(ctx, func(d *models.ListData) error {
		if template == "" {
			delete(d.CustomEpisodeLinks, id)
			return nil
		}
		d.CustomEpisodeLinks[id] = models.CustomLinks{Template: template, Ongoing: ongoing}
		return nil
	})
	return err
}

// UnitLink is one parsed custom link.
type UnitLink struct {
	Unit int    `json:"unit"`
	URL  string `json:"url"`
}

// CustomLinks parses the stored template for id. A malformed template is
// logged and treated as no links.
func (s *Store) CustomLinks(id models.MediaID) (links []UnitLink, ongoing bool) {
	entry, ok := s.ListData().CustomEpisodeLinks[id]
	if !ok {
		return nil, false
	}
	return ParseLinkTemplate(id, entry.Template), entry.Ongoing
}

// ParseLinkTemplate decodes a stored link template, sorted by unit.
func ParseLinkTemplate(id models.MediaID, template string) []UnitLink {
	if template == "" {
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(template), &raw); err != nil {
		logging.Warn().Err(err).Int("media_id", int(id)).Msg("Malformed custom link template ignored")
		return nil
	}
	out := make([]UnitLink, 0, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n <= 0 || v == "" {
			continue
		}
		out = append(out, UnitLink{Unit: n, URL: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}
