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
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/models"
)

func testConfig(url string) *config.MetadataConfig {
	return &config.MetadataConfig{
		Provider:          ProviderAniList,
		AniListURL:        url,
		JikanURL:          url,
		Timeout:           5 * time.Second,
		RequestsPerMinute: 60000,
		BatchSize:         2,
		MaxRetries:        3,
		CacheTTL:          time.Minute,
		CacheSize:         10,
	}
}

func fastRetries(t *httpTransport) {
	t.baseDelay = time.Millisecond
}

type fakeFetcher struct {
	mu          sync.Mutex
	detailCalls int
	batchCalls  int
	records     map[models.MediaID]models.MediaRecord
	err         error
}

func (f *fakeFetcher) FetchMediaByIDs(_ context.Context, ids []models.MediaID) ([]models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MediaRecord
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFetcher) FetchMediaDetail(_ context.Context, id models.MediaID) (*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func TestAniListClient_FetchMediaByIDs(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req struct {
			Query     string `json:"query"`
			Variables struct {
				IDs     []int `json:"ids"`
				PerPage int   `json:"perPage"`
			} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Query, "id_in") {
			http.Error(w, "expected batch query", http.StatusBadRequest)
			return
		}
		media := make([]string, 0, len(req.Variables.IDs))
		for _, id := range req.Variables.IDs {
			if id == 404 {
				continue
			}
			format := "TV"
			typ := "ANIME"
			if id == 3 {
				typ, format = "MANGA", "NOVEL"
			}
			media = append(media, fmt.Sprintf(
				`{"id":%d,"type":%q,"format":%q,"episodes":%d,"chapters":null,"title":{"romaji":"R%d","english":""}}`,
				id, typ, format, id*10, id))
		}
		fmt.Fprintf(w, `{"data":{"Page":{"media":[%s]}}}`, strings.Join(media, ","))
	}))
	defer srv.Close()

	c := NewAniListClient(testConfig(srv.URL))
	recs, err := c.FetchMediaByIDs(context.Background(), []models.MediaID{3, 1, 404})
	if err != nil {
		t.Fatalf("FetchMediaByIDs() error = %v", err)
	}

	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 (batch size 2)", got)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].ID != 1 || recs[1].ID != 3 {
		t.Errorf("records not sorted by id: %d, %d", recs[0].ID, recs[1].ID)
	}
	if recs[0].Type != models.MediaTypeAnime || recs[0].UnitCount() != 10 {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[1].Type != models.MediaTypeNovel {
		t.Errorf("recs[1].Type = %s, want NOVEL", recs[1].Type)
	}
	if recs[0].Title != "R1" {
		t.Errorf("recs[0].Title = %q, want romaji fallback R1", recs[0].Title)
	}
}

func TestAniListClient_EmptyIDs(t *testing.T) {
	c := NewAniListClient(testConfig("http://127.0.0.1:1"))
	recs, err := c.FetchMediaByIDs(context.Background(), nil)
	if err != nil || recs != nil {
		t.Errorf("FetchMediaByIDs(nil) = (%v, %v), want (nil, nil)", recs, err)
	}
}

func TestAniListClient_FetchMediaDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["id"] == float64(7) {
			fmt.Fprint(w, `{"data":{"Media":{"id":7,"type":"MANGA","format":"MANGA","chapters":120,"volumes":12,"description":"long text","title":{"english":"Seven"},"coverImage":{"large":"c.jpg"}}}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"data":{"Media":null},"errors":[{"message":"Not Found.","status":404}]}`)
	}))
	defer srv.Close()

	c := NewAniListClient(testConfig(srv.URL))
	rec, err := c.FetchMediaDetail(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchMediaDetail(7) error = %v", err)
	}
	if rec.Title != "Seven" || rec.Synopsis != "long text" || rec.UnitCount() != 120 {
		t.Errorf("FetchMediaDetail(7) = %+v", rec)
	}
	if rec.Images.Cover != "c.jpg" {
		t.Errorf("Images.Cover = %q, want c.jpg", rec.Images.Cover)
	}

	if _, err := c.FetchMediaDetail(context.Background(), 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchMediaDetail(8) error = %v, want ErrNotFound", err)
	}
}

func TestTransport_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{"recovers after server error", []int{500, 200}, 2, false},
		{"retries rate limit", []int{429, 429, 200}, 3, false},
		{"gives up after max retries", []int{503, 503, 503, 503}, 3, true},
		{"client error is not retried", []int{400, 200}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[n-1]
				if status != http.StatusOK {
					w.WriteHeader(status)
					return
				}
				fmt.Fprint(w, `{"data":{"Media":{"id":1,"type":"ANIME","episodes":12,"title":{"romaji":"x"}}}}`)
			}))
			defer srv.Close()

			c := NewAniListClient(testConfig(srv.URL))
			fastRetries(c.transport)
			_, err := c.FetchMediaDetail(context.Background(), 1)

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"abc", 0},
		{"-1", 0},
		{"2", 2 * time.Second},
		{"600", maxRetryAfter},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJikanClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/anime/1":
			fmt.Fprint(w, `{"data":{"mal_id":1,"title":"Cowboy Bebop","type":"TV","episodes":26,"synopsis":"s","genres":[{"name":"Action"}],"images":{"jpg":{"image_url":"a.jpg"}}}}`)
		case "/manga/2":
			fmt.Fprint(w, `{"data":{"mal_id":2,"title":"Monster","type":"Manga","chapters":162,"volumes":18}}`)
		case "/manga/3":
			fmt.Fprint(w, `{"data":{"mal_id":3,"title":"Slayers","type":"Light Novel","volumes":15}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Provider = ProviderJikan
	c := NewJikanClient(cfg)
	ctx := context.Background()

	anime, err := c.FetchMediaDetail(ctx, 1)
	if err != nil {
		t.Fatalf("FetchMediaDetail(1) error = %v", err)
	}
	if anime.Type != models.MediaTypeAnime || anime.UnitCount() != 26 || anime.Images.Cover != "a.jpg" {
		t.Errorf("anime = %+v", anime)
	}
	if len(anime.Genres) != 1 || anime.Genres[0] != "Action" {
		t.Errorf("anime.Genres = %v", anime.Genres)
	}

	manga, err := c.FetchMediaDetail(ctx, 2)
	if err != nil {
		t.Fatalf("FetchMediaDetail(2) error = %v", err)
	}
	if manga.Type != models.MediaTypeManga || manga.UnitCount() != 162 {
		t.Errorf("manga = %+v", manga)
	}

	recs, err := c.FetchMediaByIDs(ctx, []models.MediaID{1, 3, 99})
	if err != nil {
		t.Fatalf("FetchMediaByIDs() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2 (unknown id skipped)", len(recs))
	}
	if recs[1].Type != models.MediaTypeNovel {
		t.Errorf("recs[1].Type = %s, want NOVEL", recs[1].Type)
	}

	if _, err := c.FetchMediaDetail(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchMediaDetail(99) error = %v, want ErrNotFound", err)
	}
}

func TestBreakerFetcher(t *testing.T) {
	t.Run("opens after sustained failures", func(t *testing.T) {
		fake := &fakeFetcher{err: errors.New("upstream down")}
		b := NewBreakerFetcher("test-open", fake)

		for i := 0; i < 10; i++ {
			if _, err := b.FetchMediaDetail(context.Background(), 1); err == nil {
				t.Fatal("expected failure")
			}
		}
		_, err := b.FetchMediaDetail(context.Background(), 1)
		if !errors.Is(err, gobreaker.ErrOpenState) {
			t.Errorf("error = %v, want ErrOpenState", err)
		}
		if b.State() != "open" {
			t.Errorf("State() = %s, want open", b.State())
		}
		if fake.detailCalls != 10 {
			t.Errorf("upstream calls = %d, want 10", fake.detailCalls)
		}
	})

	t.Run("not found does not trip", func(t *testing.T) {
		fake := &fakeFetcher{records: map[models.MediaID]models.MediaRecord{}}
		b := NewBreakerFetcher("test-notfound", fake)
		for i := 0; i < 20; i++ {
			if _, err := b.FetchMediaDetail(context.Background(), 1); !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
		}
		if b.State() != "closed" {
			t.Errorf("State() = %s, want closed", b.State())
		}
	})

	t.Run("passes results through", func(t *testing.T) {
		fake := &fakeFetcher{records: map[models.MediaID]models.MediaRecord{
			5: {ID: 5, Title: "five", Type: models.MediaTypeAnime},
		}}
		b := NewBreakerFetcher("test-pass", fake)
		recs, err := b.FetchMediaByIDs(context.Background(), []models.MediaID{5, 6})
		if err != nil || len(recs) != 1 || recs[0].Title != "five" {
			t.Errorf("FetchMediaByIDs() = (%v, %v)", recs, err)
		}
	})
}

func TestCachedFetcher(t *testing.T) {
	fake := &fakeFetcher{records: map[models.MediaID]models.MediaRecord{
		1: {ID: 1, Title: "one", Type: models.MediaTypeAnime, Episodes: models.IntPtr(3), Synopsis: "about one"},
	}}
	c := NewCachedFetcher(fake, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec, err := c.FetchMediaDetail(ctx, 1)
		if err != nil || rec.Title != "one" {
			t.Fatalf("FetchMediaDetail() = (%v, %v)", rec, err)
		}
	}
	if fake.detailCalls != 1 {
		t.Errorf("upstream detail calls = %d, want 1", fake.detailCalls)
	}

	if _, err := c.FetchMediaDetail(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchMediaDetail(2) error = %v, want ErrNotFound", err)
	}
	if _, err := c.FetchMediaDetail(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchMediaDetail(2) error = %v, want ErrNotFound", err)
	}
	if fake.detailCalls != 3 {
		t.Errorf("errors should not be cached: upstream calls = %d, want 3", fake.detailCalls)
	}

	// A batch refresh updates the cached count but keeps the synopsis.
	fake.mu.Lock()
	fake.records[1] = models.MediaRecord{ID: 1, Title: "one", Type: models.MediaTypeAnime, Episodes: models.IntPtr(4)}
	fake.mu.Unlock()
	if _, err := c.FetchMediaByIDs(ctx, []models.MediaID{1}); err != nil {
		t.Fatalf("FetchMediaByIDs() error = %v", err)
	}
	rec, _ := c.FetchMediaDetail(ctx, 1)
	if rec.UnitCount() != 4 || rec.Synopsis != "about one" {
		t.Errorf("cached detail after batch = %+v", rec)
	}

	c.Invalidate(1)
	if _, err := c.FetchMediaDetail(ctx, 1); err != nil {
		t.Fatalf("FetchMediaDetail() after Invalidate error = %v", err)
	}
	if fake.detailCalls != 4 {
		t.Errorf("upstream detail calls after Invalidate = %d, want 4", fake.detailCalls)
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig("https://graphql.anilist.co")
	if _, err := New(cfg); err != nil {
		t.Errorf("New(anilist) error = %v", err)
	}
	cfg.Provider = ProviderJikan
	if _, err := New(cfg); err != nil {
		t.Errorf("New(jikan) error = %v", err)
	}
	cfg.Provider = "kitsu"
	if _, err := New(cfg); err == nil {
		t.Error("New(kitsu) should fail")
	}
}
