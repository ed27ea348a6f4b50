package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

var testNow = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewStore(nil, log)
	cal := stats.Calendar{Location: time.UTC, Now: func() time.Time { return testNow }}
	engine := stats.NewEngine(store, stats.WithCalendar(cal), stats.WithLogger(log))
	store.OnChange(func(storage.Change) { engine.InvalidateCache() })
	return New(store, engine, testAPIKey, log), store
}

func do(t *testing.T, s *Server, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if auth {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale client is configured.
func TestHandleMeDefault(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/me", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" || info.DisplayName != "Local Dev User" {
		t.Errorf("info = %+v, want local dev user", info)
	}
}

// TestHandleMeTailscaleUser verifies the handler echoes the identity stored
// in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	info := decode[UserInfo](t, rec)
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

func TestRecordCRUD(t *testing.T) {
	s, store := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/meals", `{"time":"2026-01-02T08:00:00Z","type":"Biberon","amount_ml":120}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d: %s", rec.Code, rec.Body)
	}
	meal := decode[models.Meal](t, rec)
	if meal.ID == uuid.Nil || meal.Type != models.MealBottle {
		t.Errorf("created meal = %+v, want generated id and bottle type", meal)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/meals", "", false)
	if list := decode[[]models.Meal](t, rec); len(list) != 1 {
		t.Fatalf("GET list = %d meals, want 1", len(list))
	}

	rec = do(t, s, http.MethodPut, "/api/v1/meals/"+meal.ID.String(), `{"time":"2026-01-02T08:00:00Z","type":"bottle","amount_ml":180}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body)
	}
	if got, _ := store.Meals.Get(meal.ID); got.AmountML != 180 {
		t.Errorf("stored amount = %v, want 180", got.AmountML)
	}

	rec = do(t, s, http.MethodDelete, "/api/v1/meals/"+meal.ID.String(), "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/meals/"+meal.ID.String(), "", false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted status = %d, want 404", rec.Code)
	}
}

func TestRecordValidation(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad json", "/api/v1/sleep", `{`, http.StatusBadRequest},
		{"wake before sleep", "/api/v1/sleep", `{"sleep_time":"2026-01-02T08:00:00Z","wake_time":"2026-01-02T07:00:00Z"}`, http.StatusBadRequest},
		{"unknown meal type", "/api/v1/meals", `{"time":"2026-01-02T08:00:00Z","type":"brunch"}`, http.StatusBadRequest},
		{"water without amount", "/api/v1/water", `{"time":"2026-01-02T08:00:00Z"}`, http.StatusBadRequest},
		{"milestone category", "/api/v1/milestones", `{"date":"2026-01-02T00:00:00Z","title":"x","category":"teeth"}`, http.StatusBadRequest},
		{"empty note", "/api/v1/notes", `{"time":"2026-01-02T08:00:00Z"}`, http.StatusBadRequest},
		{"in-progress sleep", "/api/v1/sleep", `{"sleep_time":"2026-01-02T10:00:00Z"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, tt.path, tt.body, true); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestWritesRequireAPIKey(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodPost, "/api/v1/notes", `{"time":"2026-01-02T08:00:00Z","text":"hi"}`, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("POST without key = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/export", "", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("export without key = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/notes", "", false); rec.Code != http.StatusOK {
		t.Errorf("GET without key = %d, want 200", rec.Code)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"sleep_time":"2026-01-01T23:00:00Z","wake_time":"2026-01-02T07:00:00Z"}`
	if rec := do(t, s, http.MethodPost, "/api/v1/sleep", body, true); rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/stats/sleep?granularity=day&window=2&anchor=2026-01-02T12:00:00Z", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		Granularity string                `json:"granularity"`
		Periods     []stats.PeriodSummary `json:"periods"`
	}](t, rec)
	if resp.Granularity != "day" || len(resp.Periods) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Periods[0].Count != 0 || resp.Periods[1].Count != 1 {
		t.Errorf("counts = %d/%d, want 0/1", resp.Periods[0].Count, resp.Periods[1].Count)
	}
	if resp.Periods[1].TotalDuration != 8*time.Hour {
		t.Errorf("total = %s, want 8h", resp.Periods[1].TotalDuration)
	}

	// A later insert must show up in the next request.
	body = `{"sleep_time":"2026-01-02T10:00:00Z","wake_time":"2026-01-02T11:00:00Z"}`
	do(t, s, http.MethodPost, "/api/v1/sleep", body, true)
	rec = do(t, s, http.MethodGet, "/api/v1/stats/sleep?window=1", "", false)
	resp = decode[struct {
		Granularity string                `json:"granularity"`
		Periods     []stats.PeriodSummary `json:"periods"`
	}](t, rec)
	if resp.Periods[0].Count != 2 {
		t.Errorf("count after insert = %d, want 2", resp.Periods[0].Count)
	}
}

func TestStatisticsBadParams(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{
		"/api/v1/stats/diapers",
		"/api/v1/stats/sleep?granularity=hour",
		"/api/v1/stats/sleep?window=0",
		"/api/v1/stats/sleep?window=abc",
		"/api/v1/stats/sleep?anchor=yesterday",
		"/api/v1/stats/meals/timing",
		"/api/v1/stats/sleep/chart?metric=calories",
	} {
		if rec := do(t, s, http.MethodGet, path, "", false); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestChartEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/sleep", `{"sleep_time":"2026-01-01T13:00:00Z","wake_time":"2026-01-01T14:30:00Z"}`, true)

	rec := do(t, s, http.MethodGet, "/api/v1/stats/sleep/chart?window=2", "", false)
	points := decode[[]stats.ChartPoint](t, rec)
	if len(points) != 2 || points[0].Value != 1.5 || points[1].Value != 0 {
		t.Errorf("points = %+v, want [1.5 0]", points)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/stats/sleep/chart?window=2&format=ascii", "", false)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("ascii content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "sleep hours per day") {
		t.Errorf("ascii chart missing caption:\n%s", rec.Body)
	}
}

func TestRangeAndDistribution(t *testing.T) {
	s, _ := newTestServer(t)
	for _, b := range []string{
		`{"time":"2026-01-01T08:00:00Z","type":"bottle","amount_ml":120}`,
		`{"time":"2026-01-01T12:00:00Z","type":"solid"}`,
		`{"time":"2026-01-02T08:00:00Z","type":"bottle","amount_ml":150}`,
	} {
		do(t, s, http.MethodPost, "/api/v1/meals", b, true)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/stats/meals/range?start=2026-01-01&end=2026-01-02", "", false)
	rs := decode[stats.RangeSummary](t, rec)
	if rs.Count != 3 || rs.TotalQuantity != 270 || rs.DaysCount != 2 {
		t.Errorf("range = %+v, want 3 meals, 270 ml over 2 days", rs)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/stats/meals/distribution?start=2026-01-01&end=2026-01-02", "", false)
	dist := decode[[]stats.CategoryCount](t, rec)
	if len(dist) != 2 || dist[0].Category != "bottle" || dist[0].Count != 2 {
		t.Errorf("distribution = %+v", dist)
	}
}

func TestSleepTimingEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/sleep", `{"sleep_time":"2026-01-01T23:00:00Z","wake_time":"2026-01-02T07:00:00Z"}`, true)

	rec := do(t, s, http.MethodGet, "/api/v1/stats/sleep/timing?granularity=week&window=1", "", false)
	timing := decode[[]stats.SleepTiming](t, rec)
	if len(timing) != 1 || timing[0].AvgBedtime != "23:00" || timing[0].AvgWaketime != "07:00" {
		t.Errorf("timing = %+v", timing)
	}
}

func TestExportImport(t *testing.T) {
	s, store := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/notes", `{"time":"2026-01-02T08:00:00Z","text":"first word"}`, true)

	rec := do(t, s, http.MethodGet, "/api/v1/export", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	exported := rec.Body.String()

	other, otherStore := newTestServer(t)
	rec = do(t, other, http.MethodPost, "/api/v1/import", exported, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	if otherStore.Notes.Len() != 1 || store.Notes.Len() != 1 {
		t.Errorf("notes = %d, want 1", otherStore.Notes.Len())
	}

	if rec := do(t, other, http.MethodPost, "/api/v1/import", `{"version":42}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("future version import = %d, want 400", rec.Code)
	}
}

func TestKVSync(t *testing.T) {
	s, store := newTestServer(t)
	blob := `[{"id":"7f0b7a52-55a8-4d4d-9d3c-2f0b0c6de001","time":"2026-01-02T08:00:00Z","amount_ml":60}]`

	rec := do(t, s, http.MethodPut, "/api/v1/kv/water", blob, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body)
	}
	if store.Water.Len() != 1 {
		t.Errorf("water = %d, want 1", store.Water.Len())
	}

	rec = do(t, s, http.MethodGet, "/api/v1/kv/water", "", true)
	got := decode[[]models.WaterIntake](t, rec)
	if len(got) != 1 || got[0].AmountML != 60 {
		t.Errorf("GET water = %+v", got)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/kv/settings", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("unknown key = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/v1/kv/water", "nope", true); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", rec.Code)
	}
}

func TestDataStats(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/water", `{"time":"2026-01-02T08:00:00Z","amount_ml":60}`, true)
	do(t, s, http.MethodGet, "/api/v1/stats/water", "", false)

	rec := do(t, s, http.MethodGet, "/api/v1/data/stats", "", false)
	resp := decode[struct {
		Records map[string]int `json:"records"`
		Cache   struct {
			Generation uint64 `json:"generation"`
			Entries    int    `json:"entries"`
		} `json:"cache"`
	}](t, rec)
	if resp.Records["water"] != 1 {
		t.Errorf("water records = %d, want 1", resp.Records["water"])
	}
	if resp.Cache.Generation != 1 || resp.Cache.Entries != 1 {
		t.Errorf("cache = %+v, want generation 1 with 1 entry", resp.Cache)
	}
}

func TestParseTimeRangeDefaultsToWholeDays(t *testing.T) {
	tests := []struct {
		query      string
		start, end time.Time
	}{
		{"", time.Date(2025, 12, 27, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"?start=2026-01-01", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"?start=2026-01-01&end=2026-01-01", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		for _, now := range []time.Time{testNow, testNow.Add(90 * time.Minute)} {
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			start, end, err := parseTimeRange(req, now, time.UTC)
			if err != nil {
				t.Fatalf("%q: %v", tt.query, err)
			}
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("%q at %s = %v..%v, want %v..%v", tt.query, now.Format(time.Kitchen), start, end, tt.start, tt.end)
			}
		}
	}
}

func TestDefaultRangeReusesCache(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/water", `{"time":"2026-01-02T09:00:00Z","amount_ml":70}`, true)

	for i := 0; i < 5; i++ {
		rec := do(t, s, http.MethodGet, "/api/v1/stats/water/range", "", false)
		rs := decode[stats.RangeSummary](t, rec)
		if rs.DaysCount != 7 || rs.TotalQuantity != 70 || rs.DailyAverageQuantity != 10 {
			t.Fatalf("default range = %+v, want 70 ml over 7 days", rs)
		}
	}
	if n := s.engine.Cache().Len(); n != 1 {
		t.Errorf("cache entries after repeated default range = %d, want 1", n)
	}
}

func TestMilestoneDistribution(t *testing.T) {
	s, _ := newTestServer(t)
	for _, b := range []string{
		`{"date":"2026-01-01T00:00:00Z","title":"First smile","category":"social"}`,
		`{"date":"2026-01-02T00:00:00Z","title":"Holds head up","category":"motor"}`,
		`{"date":"2026-01-02T00:00:00Z","title":"Laughs","category":"social"}`,
	} {
		if rec := do(t, s, http.MethodPost, "/api/v1/milestones", b, true); rec.Code != http.StatusCreated {
			t.Fatalf("POST milestone = %d: %s", rec.Code, rec.Body)
		}
	}

	rec := do(t, s, http.MethodGet, "/api/v1/stats/milestones/distribution?start=2026-01-01&end=2026-01-02", "", false)
	got := decode[[]stats.CategoryCount](t, rec)
	want := []stats.CategoryCount{{Category: "social", Count: 2}, {Category: "motor", Count: 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("milestone distribution = %+v, want %+v", got, want)
	}
}
