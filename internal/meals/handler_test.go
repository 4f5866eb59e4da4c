package meals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/nutrition"
	"github.com/ayush/nutrilog/internal/store"
)

type fakeEstimator struct {
	macros models.Macros
	err    error
	calls  int
}

func (f *fakeEstimator) Estimate(context.Context, string) (*nutrition.Estimate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &nutrition.Estimate{Macros: f.macros, Raw: "{}", Model: "fake"}, nil
}

func (f *fakeEstimator) Model() string { return "fake" }

type fakeLog struct{ recs []models.AnalysisRecord }

func (f *fakeLog) Record(_ context.Context, rec *models.AnalysisRecord) error {
	f.recs = append(f.recs, *rec)
	return nil
}

func (f *fakeLog) ListByMeal(_ context.Context, userID, mealID int64) ([]models.AnalysisRecord, error) {
	var out []models.AnalysisRecord
	for _, r := range f.recs {
		if r.UserID == userID && r.MealID == mealID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLog) DeleteByMeal(_ context.Context, userID, mealID int64) error {
	kept := f.recs[:0]
	for _, r := range f.recs {
		if r.UserID != userID || r.MealID != mealID {
			kept = append(kept, r)
		}
	}
	f.recs = kept
	return nil
}

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context, int64) error {
	c.n++
	return nil
}

type fixture struct {
	router http.Handler
	est    *fakeEstimator
	log    *fakeLog
	cache  *countingCache
	users  [2]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	f := &fixture{est: &fakeEstimator{}, log: &fakeLog{}, cache: &countingCache{}}
	for i, name := range []string{"alice", "bob"} {
		u, err := s.CreateUser(ctx, &models.User{Email: name + "@example.com", Username: name}, "x")
		if err != nil {
			t.Fatal(err)
		}
		f.users[i] = u.ID
	}

	h := NewHandler(s, nutrition.NewResolver(f.est, f.log, nil), f.log, f.cache)
	h.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Post("/api/meals", h.Create)
	r.Post("/api/meals/analyze", h.Analyze)
	r.Get("/api/meals", h.List)
	r.Get("/api/meals/{id}", h.Get)
	r.Patch("/api/meals/{id}", h.Update)
	r.Delete("/api/meals/{id}", h.Delete)
	r.Get("/api/meals/{id}/analysis", h.Analysis)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, user int, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(auth.WithUserID(req.Context(), f.users[user]))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeMeal(t *testing.T, rec *httptest.ResponseRecorder) models.Meal {
	t.Helper()
	var m models.Meal
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode meal: %v", err)
	}
	return m
}

func manualBody() map[string]any {
	return map[string]any{
		"description": "chicken salad", "meal_type": "lunch", "date": "2024-06-09",
		"calories": 450, "protein": 35, "carbs": 20, "fat": 22, "fiber": 6, "sugar": 4, "sodium": 600,
	}
}

func TestCreateManual(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, 0, http.MethodPost, "/api/meals", manualBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	m := decodeMeal(t, rec)
	want := models.Macros{Calories: 450, Protein: 35, Carbs: 20, Fat: 22, Fiber: 6, Sugar: 4, Sodium: 600}
	if m.Macros != want || m.Source != models.SourceManual || m.Date != "2024-06-09" {
		t.Fatalf("meal = %+v", m)
	}
	if f.est.calls != 0 {
		t.Error("manual meal should not call the estimator")
	}
	if f.cache.n != 1 {
		t.Errorf("cache invalidations = %d", f.cache.n)
	}
}

func TestCreateAIFailureStoresZeros(t *testing.T) {
	f := newFixture(t)
	f.est.err = errors.New("ai-service /chat/completions returned 500: boom")
	rec := f.do(t, 0, http.MethodPost, "/api/meals", map[string]any{
		"description": "mystery stew", "meal_type": "dinner",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	m := decodeMeal(t, rec)
	if m.Macros != (models.Macros{}) || m.AnalysisNote == "" || m.Source != models.SourceAI {
		t.Fatalf("meal = %+v", m)
	}
	if m.Date != "2024-06-10" {
		t.Errorf("date should default to today, got %s", m.Date)
	}

	rec = f.do(t, 0, http.MethodGet, fmt.Sprintf("/api/meals/%d/analysis", m.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis = %d", rec.Code)
	}
	var recs []models.AnalysisRecord
	json.NewDecoder(rec.Body).Decode(&recs)
	if len(recs) != 1 || recs[0].Error == "" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	bad := []map[string]any{
		{"description": "", "meal_type": "lunch"},
		{"description": "x", "meal_type": "brunch"},
		{"description": "x", "meal_type": "lunch", "date": "10/06/2024"},
		{"description": "x", "meal_type": "lunch", "calories": -5},
	}
	for _, body := range bad {
		if rec := f.do(t, 0, http.MethodPost, "/api/meals", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%v: status %d", body, rec.Code)
		}
	}
}

func TestOwnershipAndLifecycle(t *testing.T) {
	f := newFixture(t)
	m := decodeMeal(t, f.do(t, 0, http.MethodPost, "/api/meals", manualBody()))
	path := fmt.Sprintf("/api/meals/%d", m.ID)

	if rec := f.do(t, 1, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user get = %d", rec.Code)
	}
	if rec := f.do(t, 1, http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user delete = %d", rec.Code)
	}

	rec := f.do(t, 0, http.MethodPatch, path, map[string]any{"description": "chicken caesar", "protein": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", rec.Code, rec.Body)
	}
	got := decodeMeal(t, rec)
	if got.Description != "chicken caesar" || got.Protein != 40 || got.Calories != 450 {
		t.Fatalf("patched = %+v", got)
	}

	f.est.macros = models.Macros{Calories: 600, Protein: 45}
	got = decodeMeal(t, f.do(t, 0, http.MethodPatch, path, map[string]any{"reanalyze": true}))
	if got.Calories != 600 || got.Source != models.SourceAI || f.est.calls != 1 {
		t.Fatalf("reanalyzed = %+v", got)
	}

	rec = f.do(t, 0, http.MethodGet, "/api/meals?date=2024-06-09", nil)
	var list []models.Meal
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if rec := f.do(t, 0, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := f.do(t, 0, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
	if len(f.log.recs) != 0 {
		t.Errorf("analyses should be removed with the meal, got %d", len(f.log.recs))
	}
}

func TestListRangeValidation(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"?from=2024-06-10&to=2024-06-01", "?date=june", "?from=2020-01-01&to=2024-01-01"} {
		if rec := f.do(t, 0, http.MethodGet, "/api/meals"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, rec.Code)
		}
	}
	if rec := f.do(t, 0, http.MethodGet, "/api/meals", nil); rec.Code != http.StatusOK {
		t.Errorf("default list = %d", rec.Code)
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	f.est.macros = models.Macros{Calories: 90, Protein: 1}
	rec := f.do(t, 0, http.MethodPost, "/api/meals/analyze", map[string]string{"description": "banana"})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d %s", rec.Code, rec.Body)
	}
	var out analyzeResponse
	json.NewDecoder(rec.Body).Decode(&out)
	if out.Calories != 90 || out.Source != models.SourceAI {
		t.Fatalf("analyze body = %+v", out)
	}

	f.est.err = nutrition.ErrDisabled
	if rec := f.do(t, 0, http.MethodPost, "/api/meals/analyze", map[string]string{"description": "banana"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled analyze = %d", rec.Code)
	}
	f.est.err = errors.New("upstream down")
	if rec := f.do(t, 0, http.MethodPost, "/api/meals/analyze", map[string]string{"description": "banana"}); rec.Code != http.StatusBadGateway {
		t.Fatalf("failing analyze = %d", rec.Code)
	}
}

func TestDescriptionLimitCountsCharacters(t *testing.T) {
	f := newFixture(t)
	body := manualBody()
	// 1000 three-byte runes: over the limit in bytes, at it in characters.
	body["description"] = strings.Repeat("鶏", maxDescription)
	rec := f.do(t, 0, http.MethodPost, "/api/meals", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if m := decodeMeal(t, rec); m.Description != body["description"] {
		t.Errorf("description stored as %d bytes", len(m.Description))
	}

	body["description"] = strings.Repeat("鶏", maxDescription+1)
	if rec := f.do(t, 0, http.MethodPost, "/api/meals", body); rec.Code != http.StatusBadRequest {
		t.Errorf("over limit: status %d", rec.Code)
	}
}
