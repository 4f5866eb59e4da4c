package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context, int64) error {
	c.n++
	return nil
}

type fixture struct {
	router http.Handler
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
	f := &fixture{cache: &countingCache{}}
	for i, name := range []string{"erin", "frank"} {
		u, err := s.CreateUser(ctx, &models.User{Email: name + "@example.com", Username: name}, "x")
		if err != nil {
			t.Fatal(err)
		}
		f.users[i] = u.ID
	}

	h := NewHandler(s, f.cache)
	r := chi.NewRouter()
	r.Get("/api/profile", h.Get)
	r.Put("/api/profile", h.Update)
	r.Put("/api/profile/goals", h.UpdateGoals)
	r.Get("/api/profile/recommendation", h.Recommendation)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(auth.WithUserID(req.Context(), f.users[0]))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestGetDefaults(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp Response
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.User.Username != "erin" || resp.Profile.GoalCalories != models.DefaultGoalCalories || resp.Profile.UpdatedAt != nil {
		t.Fatalf("response = %+v %+v", resp.User, resp.Profile)
	}
}

func TestUpdatePartial(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/profile", map[string]any{
		"first_name": "Erin", "weight_kg": 62.5, "gender": "Female", "activity_level": "light",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var resp Response
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.User.FirstName != "Erin" || resp.Profile.WeightKg != 62.5 || resp.Profile.Gender != "female" {
		t.Fatalf("updated = %+v %+v", resp.User, resp.Profile)
	}
	if resp.Profile.GoalCalories != models.DefaultGoalCalories {
		t.Errorf("untouched goal changed: %v", resp.Profile.GoalCalories)
	}
	if f.cache.n != 0 {
		t.Errorf("non-goal update invalidated the cache")
	}

	rec = f.do(t, http.MethodPut, "/api/profile", map[string]any{"age": 31})
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Profile.WeightKg != 62.5 || resp.Profile.Age != 31 {
		t.Errorf("second update lost fields: %+v", resp.Profile)
	}
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	for _, body := range []map[string]any{
		{"weight_kg": -1},
		{"gender": "robot"},
		{"activity_level": "extreme"},
		{"age": 200},
		{"username": "x"},
	} {
		if rec := f.do(t, http.MethodPut, "/api/profile", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%v: status %d", body, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodPut, "/api/profile", map[string]any{"username": "Frank"}); rec.Code != http.StatusConflict {
		t.Errorf("taken username: status %d", rec.Code)
	}
}

func TestGoals(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodPut, "/api/profile/goals", map[string]any{"goal_calories": 0, "goal_protein": 90}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero goal: status %d", rec.Code)
	}
	rec := f.do(t, http.MethodPut, "/api/profile/goals", map[string]any{"goal_calories": 1800, "goal_protein": 90})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var p models.Profile
	json.NewDecoder(rec.Body).Decode(&p)
	if p.GoalCalories != 1800 || p.GoalProtein != 90 {
		t.Fatalf("profile = %+v", p)
	}
	if f.cache.n != 1 {
		t.Errorf("invalidations = %d", f.cache.n)
	}
}

func TestRecommendationEndpoint(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/api/profile/recommendation", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete profile: status %d", rec.Code)
	}
	f.do(t, http.MethodPut, "/api/profile", map[string]any{
		"weight_kg": 80, "height_cm": 180, "age": 30, "gender": "male", "activity_level": "moderate",
	})
	rec := f.do(t, http.MethodGet, "/api/profile/recommendation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var got Recommendation
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Calories != 2759 || got.BMICategory != "normal" {
		t.Errorf("recommendation = %+v", got)
	}
}

func TestBioLimitCountsCharacters(t *testing.T) {
	f := newFixture(t)
	bio := strings.Repeat("🥗", 500)
	rec := f.do(t, http.MethodPut, "/api/profile", map[string]any{"bio": bio})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var resp Response
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Profile.Bio != bio {
		t.Errorf("bio stored as %d bytes", len(resp.Profile.Bio))
	}

	if rec := f.do(t, http.MethodPut, "/api/profile", map[string]any{"bio": bio + "!"}); rec.Code != http.StatusBadRequest {
		t.Errorf("over limit: status %d", rec.Code)
	}
}
