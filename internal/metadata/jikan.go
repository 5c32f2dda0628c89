// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/models"
)

// JikanClient reads MyAnimeList data through the Jikan v4 REST API. Ids
// are MAL ids. Jikan has no batch endpoint, so FetchMediaByIDs issues one
// rate-limited request per id.
type JikanClient struct {
	transport *httpTransport
	baseURL   string
}

// NewJikanClient creates a client from configuration.
func NewJikanClient(cfg *config.MetadataConfig) *JikanClient {
	return &JikanClient{
		transport: newHTTPTransport(ProviderJikan, cfg),
		baseURL:   strings.TrimRight(cfg.JikanURL, "/"),
	}
}

type jikanGenre struct {
	Name string `json:"name"`
}

type jikanMedia struct {
	MalID        int          `json:"mal_id"`
	Title        string       `json:"title"`
	TitleEnglish string       `json:"title_english"`
	Type         string       `json:"type"`
	Status       string       `json:"status"`
	Episodes     *int         `json:"episodes"`
	Chapters     *int         `json:"chapters"`
	Volumes      *int         `json:"volumes"`
	Synopsis     string       `json:"synopsis"`
	Genres       []jikanGenre `json:"genres"`
	Images       struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

type jikanResponse struct {
	Data *jikanMedia `json:"data"`
}

// FetchMediaByIDs implements Fetcher. Unknown ids are skipped; any other
// failure aborts the batch.
func (c *JikanClient) FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	out := make([]models.MediaRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := c.FetchMediaDetail(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %d: %w", id, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

// FetchMediaDetail implements Fetcher. The anime endpoint is tried first,
// then manga.
func (c *JikanClient) FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error) {
	rec, err := c.fetch(ctx, "anime", id)
	if errors.Is(err, ErrNotFound) {
		rec, err = c.fetch(ctx, "manga", id)
	}
	return rec, err
}

func (c *JikanClient) fetch(ctx context.Context, kind string, id models.MediaID) (*models.MediaRecord, error) {
	url := fmt.Sprintf("%s/%s/%d", c.baseURL, kind, id)

	var resp jikanResponse
	err := c.transport.do(ctx, kind, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, ErrNotFound
	}

	rec := resp.Data.toRecord(kind == "anime")
	return &rec, nil
}

func (m *jikanMedia) toRecord(anime bool) models.MediaRecord {
	title := m.TitleEnglish
	if title == "" {
		title = m.Title
	}
	genres := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		genres = append(genres, g.Name)
	}
	malID := m.MalID
	cover := m.Images.JPG.LargeImageURL
	if cover == "" {
		cover = m.Images.JPG.ImageURL
	}

	rec := models.MediaRecord{
		ID:       models.MediaID(m.MalID),
		IDMal:    &malID,
		Title:    title,
		Status:   m.Status,
		Genres:   genres,
		Synopsis: m.Synopsis,
		Images:   models.MediaImages{Cover: cover},
	}
	if anime {
		rec.Type = models.MediaTypeAnime
		rec.Episodes = m.Episodes
		return rec
	}
	rec.Type = jikanMangaType(m.Type)
	rec.Chapters = m.Chapters
	rec.Volumes = m.Volumes
	return rec
}

func jikanMangaType(t string) models.MediaType {
	switch strings.ToLower(t) {
	case "novel", "light novel":
		return models.MediaTypeNovel
	case "one-shot":
		return models.MediaTypeOneShot
	default:
		return models.MediaTypeManga
	}
}
