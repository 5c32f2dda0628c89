// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/feed"
	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/poller"
	"github.com/tomtom215/shiori/internal/store"
)

var testNow = time.Date(2026, 5, 13, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type fakeChecker struct {
	result poller.Result
	err    error
	calls  int
}

func (f *fakeChecker) RunChecks(context.Context) (poller.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeChecker) Checking() bool { return false }

func (f *fakeChecker) LastRun() (time.Time, error) {
	if f.calls == 0 {
		return time.Time{}, nil
	}
	return testNow, f.err
}

type testServer struct {
	store   *store.Store
	checker *fakeChecker
	handler http.Handler
}

func newTestServer(t *testing.T, withProfile bool) *testServer {
	t.Helper()
	mem := kv.NewMemoryStore()
	s := store.New(mem, nil, store.WithClock(func() time.Time { return testNow }))
	if withProfile {
		if _, err := s.CreateProfile(context.Background(), "tester"); err != nil {
			t.Fatalf("CreateProfile() error = %v", err)
		}
	}
	checker := &fakeChecker{}
	h := NewHandler(Deps{Store: s, Feed: feed.New(s), KV: mem, Poller: checker}, nil)
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return &testServer{store: s, checker: checker, handler: NewRouter(h, cfg).Setup()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode response: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d\n%s", rec.Code, want, rec.Body.String())
	}
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t, false)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/profile", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if env.Error == nil || env.Error.Code != ErrCodeNoProfile {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeNoProfile)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/profile", CreateProfileRequest{})
	expectStatus(t, rec, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/profile", CreateProfileRequest{Name: "yuki"})
	expectStatus(t, rec, http.StatusCreated)
	var p models.Profile
	decodeData(t, env, &p)
	if p.Name != "yuki" || p.ID == "" {
		t.Errorf("profile = %+v", p)
	}

	rec, env = ts.do(t, http.MethodPost, "/api/v1/profile", CreateProfileRequest{Name: "again"})
	expectStatus(t, rec, http.StatusConflict)
	if env.Error.Code != ErrCodeProfileExists {
		t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeProfileExists)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/profile/sign-out", nil)
	expectStatus(t, rec, http.StatusOK)
	if ts.store.HasProfile() {
		t.Error("profile still loaded after sign-out")
	}
}

func TestListToggle(t *testing.T) {
	ts := newTestServer(t, true)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantMember bool
	}{
		{"add", "/api/v1/lists/currentlyWatching/5/toggle", http.StatusOK, true},
		{"remove", "/api/v1/lists/currentlyWatching/5/toggle", http.StatusOK, false},
		{"unknown kind", "/api/v1/lists/dropped/5/toggle", http.StatusBadRequest, false},
		{"bad id", "/api/v1/lists/planToRead/abc/toggle", http.StatusBadRequest, false},
		{"zero id", "/api/v1/lists/planToRead/0/toggle", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		rec, env := ts.do(t, http.MethodPost, tt.path, nil)
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
			continue
		}
		if rec.Code != http.StatusOK {
			continue
		}
		var m MembershipResponse
		decodeData(t, env, &m)
		if m.Member != tt.wantMember {
			t.Errorf("%s: member = %v, want %v", tt.name, m.Member, tt.wantMember)
		}
	}
}

func TestListToggleMovesPlanToCurrent(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/v1/lists/planToWatch/8/toggle", nil)
	ts.do(t, http.MethodPost, "/api/v1/lists/currentlyWatching/8/toggle", nil)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/lists", nil)
	expectStatus(t, rec, http.StatusOK)
	var lists struct {
		PlanToWatch       []int `json:"planToWatch"`
		CurrentlyWatching []int `json:"currentlyWatching"`
	}
	decodeData(t, env, &lists)
	if len(lists.PlanToWatch) != 0 || len(lists.CurrentlyWatching) != 1 || lists.CurrentlyWatching[0] != 8 {
		t.Errorf("lists = %+v, want 8 moved to currentlyWatching", lists)
	}
}

func TestMutationsRequireProfile(t *testing.T) {
	ts := newTestServer(t, false)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/lists/planToWatch/1/toggle", nil)
	expectStatus(t, rec, http.StatusConflict)
	if env.Error.Code != ErrCodeNoProfile {
		t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeNoProfile)
	}
}

func TestAuxToggle(t *testing.T) {
	ts := newTestServer(t, true)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/aux/pinnedNews/toggle", AuxToggleRequest{Key: "news-1"})
	expectStatus(t, rec, http.StatusOK)
	var m MembershipResponse
	decodeData(t, env, &m)
	if !m.Member || m.Key != "news-1" {
		t.Errorf("membership = %+v", m)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/aux/bogus/toggle", AuxToggleRequest{Key: "x"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/aux/excludedItems/4/toggle", nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, env, &m)
	if !m.Member || m.MediaID != 4 {
		t.Errorf("membership = %+v", m)
	}
	if !ts.store.ListData().ExcludedItems.Has(4) {
		t.Error("excludedItems missing 4")
	}
}

func TestProgressAndLinks(t *testing.T) {
	ts := newTestServer(t, true)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/media/3/episodes/2/toggle", nil)
	expectStatus(t, rec, http.StatusOK)
	var u UnitToggleResponse
	decodeData(t, env, &u)
	if !u.Done || u.Unit != 2 {
		t.Errorf("toggle = %+v", u)
	}
	ts.do(t, http.MethodPost, "/api/v1/media/3/chapters/7/toggle", nil)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/media/3/progress", nil)
	expectStatus(t, rec, http.StatusOK)
	var p ProgressResponse
	decodeData(t, env, &p)
	if len(p.Episodes) != 1 || p.Episodes[0] != "2" || len(p.Chapters) != 1 || p.Chapters[0] != "7" {
		t.Errorf("progress = %+v", p)
	}

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/media/3/links", `{"links":{"1":"not a url"}}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPut, "/api/v1/media/3/links",
		`{"links":{"2":"https://example.com/ep2","1":"https://example.com/ep1"},"ongoing":true}`)
	expectStatus(t, rec, http.StatusOK)
	var links CustomLinksResponse
	decodeData(t, env, &links)
	if len(links.Links) != 2 || links.Links[0].Unit != 1 || !links.Ongoing {
		t.Errorf("links = %+v", links)
	}
}

func TestMediaDetailDisabled(t *testing.T) {
	ts := newTestServer(t, true)
	rec, _ := ts.do(t, http.MethodGet, "/api/v1/media/3", nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestReminderCRUD(t *testing.T) {
	ts := newTestServer(t, true)
	start := testNow.Add(time.Hour)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/reminders", store.ReminderInput{MediaID: 1, StartDateTime: start})
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != ErrCodeValidation {
		t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeValidation)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/reminders", store.ReminderInput{
		MediaID: 1, Title: "bad day", StartDateTime: start, RepeatOnDays: []int{9},
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/reminders", store.ReminderInput{
		MediaID: 1, Title: "new episode", StartDateTime: start, RepeatOnDays: []int{3},
	})
	expectStatus(t, rec, http.StatusCreated)
	var created models.Reminder
	decodeData(t, env, &created)
	if created.ID == "" || !created.RepeatOnDays.Has(3) {
		t.Fatalf("created = %+v", created)
	}

	rec, env = ts.do(t, http.MethodPut, "/api/v1/reminders/"+created.ID, store.ReminderInput{
		MediaID: 1, Title: "renamed", StartDateTime: start,
	})
	expectStatus(t, rec, http.StatusOK)
	var updated models.Reminder
	decodeData(t, env, &updated)
	if updated.Title != "renamed" || updated.RepeatOnDays.Len() != 0 {
		t.Errorf("updated = %+v", updated)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/v1/reminders?mediaId=1", nil)
	expectStatus(t, rec, http.StatusOK)
	var list []models.Reminder
	decodeData(t, env, &list)
	if len(list) != 1 {
		t.Errorf("reminders = %d, want 1", len(list))
	}

	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/reminders/"+created.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = ts.do(t, http.MethodGet, "/api/v1/reminders/"+created.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)
	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/reminders/"+created.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func seedNotifications(t *testing.T, s *store.Store) (update, reminder string) {
	t.Helper()
	u := models.NewNotification(models.UpdatePayload{MediaID: 1, Title: "a", MediaType: models.MediaTypeAnime, Diff: 1, Previous: 1, Current: 2}, testNow)
	r := models.NewNotification(models.ReminderPayload{ReminderID: "r1", MediaID: 2, Title: "b"}, testNow.Add(-time.Hour))
	_, err := s.Update(context.Background(), func(d *models.ListData) error {
		d.Notifications = append(d.Notifications, u, r)
		return nil
	})
	if err != nil {
		t.Fatalf("seed notifications: %v", err)
	}
	return u.ID, r.ID
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t, true)
	updateID, reminderID := seedNotifications(t, ts.store)

	tests := []struct {
		query  string
		total  int
		unseen int
	}{
		{"", 2, 2},
		{"?tab=updates", 1, 1},
		{"?tab=reminders", 1, 1},
		{"?tab=storage", 0, 0},
		{"?mediaId=2", 1, 1},
		{"?limit=1&offset=1", 2, 2},
	}
	for _, tt := range tests {
		rec, env := ts.do(t, http.MethodGet, "/api/v1/notifications"+tt.query, nil)
		expectStatus(t, rec, http.StatusOK)
		var resp NotificationsResponse
		decodeData(t, env, &resp)
		if resp.Total != tt.total || resp.Unseen != tt.unseen {
			t.Errorf("%q: total=%d unseen=%d, want %d/%d", tt.query, resp.Total, resp.Unseen, tt.total, tt.unseen)
		}
	}

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/notifications/"+updateID+"/seen", nil)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = ts.do(t, http.MethodPost, "/api/v1/notifications/missing/seen", nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/notifications/unseen", nil)
	expectStatus(t, rec, http.StatusOK)
	var unseen map[string]int
	decodeData(t, env, &unseen)
	if unseen["unseen"] != 1 {
		t.Errorf("unseen = %d, want 1", unseen["unseen"])
	}

	rec, env = ts.do(t, http.MethodDelete, "/api/v1/notifications/"+reminderID, nil)
	expectStatus(t, rec, http.StatusConflict)
	if env.Error.Code != ErrCodeConflict {
		t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeConflict)
	}

	rec, env = ts.do(t, http.MethodDelete, "/api/v1/notifications/seen", nil)
	expectStatus(t, rec, http.StatusOK)
	var removed map[string]int
	decodeData(t, env, &removed)
	if removed["removed"] != 1 {
		t.Errorf("removed = %d, want 1", removed["removed"])
	}
	if got := len(ts.store.Notifications()); got != 1 {
		t.Errorf("notifications left = %d, want the reminder only", got)
	}
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantRan    bool
	}{
		{"ran", nil, http.StatusOK, true},
		{"already checking", poller.ErrAlreadyChecking, http.StatusOK, false},
		{"fetch failed", errors.New("network down"), http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			ts.checker.err = tt.err
			ts.checker.result = poller.Result{Checked: 2, Received: 2}

			rec, env := ts.do(t, http.MethodPost, "/api/v1/checks", nil)
			expectStatus(t, rec, tt.wantStatus)
			if rec.Code != http.StatusOK {
				return
			}
			var resp CheckResponse
			decodeData(t, env, &resp)
			if resp.Ran != tt.wantRan {
				t.Errorf("ran = %v, want %v", resp.Ran, tt.wantRan)
			}
			if tt.wantRan && (resp.Result == nil || resp.Result.Checked != 2) {
				t.Errorf("result = %+v", resp.Result)
			}
		})
	}
}

func TestChecksStatus(t *testing.T) {
	ts := newTestServer(t, true)
	ts.checker.err = errors.New("network down")
	ts.do(t, http.MethodPost, "/api/v1/checks", nil)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/checks", nil)
	expectStatus(t, rec, http.StatusOK)
	var status CheckStatus
	decodeData(t, env, &status)
	if status.LastRun == nil || status.LastError != "network down" {
		t.Errorf("status = %+v", status)
	}
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, true)

	rec, env := ts.do(t, http.MethodPut, "/api/v1/settings/genres", HiddenGenresRequest{Genres: []string{"Horror"}})
	expectStatus(t, rec, http.StatusOK)
	var g GenresResponse
	decodeData(t, env, &g)
	if len(g.Hidden) != 1 || len(g.Effective) != 1+len(models.SensitiveGenres) {
		t.Errorf("genres = %+v", g)
	}

	unlocked := true
	rec, env = ts.do(t, http.MethodPut, "/api/v1/settings/sensitive-content", SensitiveContentRequest{Unlocked: &unlocked})
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, env, &g)
	if !g.SensitiveContentUnlocked || len(g.Effective) != 1 {
		t.Errorf("genres after unlock = %+v", g)
	}
	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/sensitive-content", `{}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/quota", StorageQuotaRequest{Bytes: -1})
	expectStatus(t, rec, http.StatusBadRequest)
	rec, env = ts.do(t, http.MethodPut, "/api/v1/settings/quota", StorageQuotaRequest{Bytes: 4096})
	expectStatus(t, rec, http.StatusOK)
	var q QuotaResponse
	decodeData(t, env, &q)
	if q.QuotaBytes != 4096 || !q.Allowed {
		t.Errorf("quota = %+v", q)
	}

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/notifications-layout",
		NotificationsLayoutRequest{Layout: []string{"all", "updates"}, Pinned: "storage"})
	expectStatus(t, rec, http.StatusBadRequest)
	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/notifications-layout",
		NotificationsLayoutRequest{Layout: []string{"all", "bogus"}})
	expectStatus(t, rec, http.StatusBadRequest)
	rec, env = ts.do(t, http.MethodPut, "/api/v1/settings/notifications-layout",
		NotificationsLayoutRequest{Layout: []string{"reminders", "all"}, Pinned: "all"})
	expectStatus(t, rec, http.StatusOK)
	var layout NotificationsLayoutResponse
	decodeData(t, env, &layout)
	if layout.Pinned != "all" || len(layout.Layout) != 2 || layout.Layout[0] != "reminders" {
		t.Errorf("layout = %+v", layout)
	}
}

func TestRawSettings(t *testing.T) {
	ts := newTestServer(t, true)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/settings/layout", nil)
	expectStatus(t, rec, http.StatusOK)
	if len(env.Data) != 0 && string(env.Data) != "null" {
		t.Errorf("unset layout = %s, want null", env.Data)
	}

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/layout", "{not json")
	expectStatus(t, rec, http.StatusBadRequest)

	rec, _ = ts.do(t, http.MethodPut, "/api/v1/settings/shared-data", `{"columns":3}`)
	expectStatus(t, rec, http.StatusOK)
	rec, env = ts.do(t, http.MethodGet, "/api/v1/settings/shared-data", nil)
	expectStatus(t, rec, http.StatusOK)
	var shared map[string]int
	decodeData(t, env, &shared)
	if shared["columns"] != 3 {
		t.Errorf("shared data = %s", env.Data)
	}
}

func TestExportImport(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/v1/lists/currentlyReading/42/toggle", nil)

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/data/export", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "shiori-export-") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	exported := append([]byte(nil), rec.Body.Bytes()...)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/profile/sign-out", nil)
	expectStatus(t, rec, http.StatusOK)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/data/import", `{"profile": 3}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != ErrCodeBadRequest {
		t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeBadRequest)
	}
	if ts.store.HasProfile() {
		t.Fatal("invalid import created a profile")
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/data/import", exported)
	expectStatus(t, rec, http.StatusOK)
	if !ts.store.IsInList(42, models.ListCurrentlyReading) {
		t.Error("imported data lost currentlyReading 42")
	}
	if p, _ := ts.store.Profile(); p.Name != "tester" {
		t.Errorf("profile = %+v", p)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, true)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec, env := ts.do(t, http.MethodGet, path, nil)
		expectStatus(t, rec, http.StatusOK)
		if env.Metadata.RequestID == "" {
			t.Errorf("%s: no request id in metadata", path)
		}
	}

	rec, env := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, rec, http.StatusOK)
	var health HealthStatus
	decodeData(t, env, &health)
	if health.Status != "healthy" || !health.HasProfile || !health.StorageOK {
		t.Errorf("health = %+v", health)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, true)
	rec, env := ts.do(t, http.MethodGet, "/api/v1/nope", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestSectionClear(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/v1/lists/planToWatch/1/toggle", nil)

	rec, _ := ts.do(t, http.MethodDelete, "/api/v1/lists/sections/planToWatch", nil)
	expectStatus(t, rec, http.StatusOK)
	if ts.store.ListData().PlanToWatch.Len() != 0 {
		t.Error("planToWatch not cleared")
	}
	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/lists/sections/everything", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}
