// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/models"
)

// maxPageSize is AniList's hard cap on Page.perPage.
const maxPageSize = 50

// pageConcurrency bounds how many batch pages are in flight at once. The
// rate limiter still governs the overall request rate.
const pageConcurrency = 2

const aniListMediaFields = `
	id
	idMal
	type
	format
	status
	episodes
	chapters
	volumes
	genres
	title { romaji english }
	coverImage { large }
	bannerImage`

var aniListBatchQuery = `query ($ids: [Int], $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(id_in: $ids) {` + aniListMediaFields + `
    }
  }
}`

var aniListDetailQuery = `query ($id: Int) {
  Media(id: $id) {` + aniListMediaFields + `
    description(asHtml: false)
  }
}`

// AniListClient queries the AniList GraphQL API.
type AniListClient struct {
	transport *httpTransport
	endpoint  string
	batchSize int
}

// NewAniListClient creates a client from configuration.
func NewAniListClient(cfg *config.MetadataConfig) *AniListClient {
	batch := cfg.BatchSize
	if batch < 1 || batch > maxPageSize {
		batch = maxPageSize
	}
	return &AniListClient{
		transport: newHTTPTransport(ProviderAniList, cfg),
		endpoint:  cfg.AniListURL,
		batchSize: batch,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type aniListMedia struct {
	ID       int      `json:"id"`
	IDMal    *int     `json:"idMal"`
	Type     string   `json:"type"`
	Format   string   `json:"format"`
	Status   string   `json:"status"`
	Episodes *int     `json:"episodes"`
	Chapters *int     `json:"chapters"`
	Volumes  *int     `json:"volumes"`
	Genres   []string `json:"genres"`
	Title    struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
	CoverImage struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	BannerImage string `json:"bannerImage"`
	Description string `json:"description"`
}

type aniListPageResponse struct {
	Data struct {
		Page struct {
			Media []aniListMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type aniListDetailResponse struct {
	Data struct {
		Media *aniListMedia `json:"Media"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchMediaByIDs implements Fetcher. Ids are queried in pages of
// batchSize. A failed page is logged and skipped as long as at least one
// page succeeded; if every page fails the first error is returned.
func (c *AniListClient) FetchMediaByIDs(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	chunks := chunkIDs(ids, c.batchSize)
	p := pool.NewWithResults[[]models.MediaRecord]().
		WithContext(ctx).
		WithMaxGoroutines(pageConcurrency)
	for _, chunk := range chunks {
		chunk := chunk
		p.Go(func(ctx context.Context) ([]models.MediaRecord, error) {
			return c.fetchPage(ctx, chunk)
		})
	}

	pages, err := p.Wait()
	var out []models.MediaRecord
	for _, page := range pages {
		out = append(out, page...)
	}
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		logging.Ctx(ctx).Warn().Err(err).
			Int("requested", len(ids)).
			Int("received", len(out)).
			Msg("Some AniList pages failed, continuing with partial results")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *AniListClient) fetchPage(ctx context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	intIDs := make([]int, len(ids))
	for i, id := range ids {
		intIDs[i] = int(id)
	}

	var resp aniListPageResponse
	err := c.post(ctx, "batch", graphQLRequest{
		Query:     aniListBatchQuery,
		Variables: map[string]any{"ids": intIDs, "perPage": len(ids)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 && len(resp.Data.Page.Media) == 0 {
		return nil, graphQLErrors(resp.Errors)
	}

	out := make([]models.MediaRecord, 0, len(resp.Data.Page.Media))
	for i := range resp.Data.Page.Media {
		out = append(out, resp.Data.Page.Media[i].toRecord())
	}
	return out, nil
}

// FetchMediaDetail implements Fetcher.
func (c *AniListClient) FetchMediaDetail(ctx context.Context, id models.MediaID) (*models.MediaRecord, error) {
	var resp aniListDetailResponse
	err := c.post(ctx, "detail", graphQLRequest{
		Query:     aniListDetailQuery,
		Variables: map[string]any{"id": int(id)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, graphQLErrors(resp.Errors)
	}
	if resp.Data.Media == nil {
		return nil, ErrNotFound
	}
	rec := resp.Data.Media.toRecord()
	return &rec, nil
}

func (c *AniListClient) post(ctx context.Context, operation string, body graphQLRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	return c.transport.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func graphQLErrors(errs []graphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Status == http.StatusNotFound {
			return ErrNotFound
		}
		msgs = append(msgs, e.Message)
	}
	return errors.New("anilist: " + strings.Join(msgs, "; "))
}

func (m *aniListMedia) toRecord() models.MediaRecord {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	return models.MediaRecord{
		ID:       models.MediaID(m.ID),
		IDMal:    m.IDMal,
		Title:    title,
		Type:     aniListType(m.Type, m.Format),
		Status:   m.Status,
		Episodes: m.Episodes,
		Chapters: m.Chapters,
		Volumes:  m.Volumes,
		Genres:   m.Genres,
		Synopsis: m.Description,
		Images: models.MediaImages{
			Cover:  m.CoverImage.Large,
			Banner: m.BannerImage,
		},
	}
}

// aniListType folds AniList's type and format into a MediaType. Novels
// and one-shots are MANGA-typed on AniList and distinguished by format.
func aniListType(typ, format string) models.MediaType {
	if typ == "ANIME" {
		return models.MediaTypeAnime
	}
	switch format {
	case "NOVEL":
		return models.MediaTypeNovel
	case "ONE_SHOT":
		return models.MediaTypeOneShot
	default:
		return models.MediaTypeManga
	}
}

func chunkIDs(ids []models.MediaID, size int) [][]models.MediaID {
	var chunks [][]models.MediaID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
