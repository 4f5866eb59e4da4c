package meals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/nutrition"
)

const (
	maxDescription = 1000
	maxRangeDays   = 366
)

// MealStore defines the interface for meal persistence.
type MealStore interface {
	CreateMeal(ctx context.Context, m *models.Meal) (*models.Meal, error)
	GetMeal(ctx context.Context, userID, id int64) (*models.Meal, error)
	ListMeals(ctx context.Context, userID int64, from, to string) ([]models.Meal, error)
	UpdateMeal(ctx context.Context, m *models.Meal) error
	DeleteMeal(ctx context.Context, userID, id int64) error
}

// AnalysisStore reads the AI analysis log.
type AnalysisStore interface {
	ListByMeal(ctx context.Context, userID, mealID int64) ([]models.AnalysisRecord, error)
	DeleteByMeal(ctx context.Context, userID, mealID int64) error
}

// Invalidator drops cached views derived from a user's meals.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Handler holds meal HTTP handlers. analyses and cache may be nil.
type Handler struct {
	meals    MealStore
	resolver *nutrition.Resolver
	analyses AnalysisStore
	cache    Invalidator
	now      func() time.Time
}

func NewHandler(meals MealStore, resolver *nutrition.Resolver, analyses AnalysisStore, cache Invalidator) *Handler {
	return &Handler{meals: meals, resolver: resolver, analyses: analyses, cache: cache, now: time.Now}
}

func (h *Handler) today() string {
	return h.now().UTC().Format(models.DateLayout)
}

func (h *Handler) invalidate(ctx context.Context, userID int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("invalidate diary cache")
	}
}

func validDate(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

func validateDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("description is required")
	}
	if utf8.RuneCountInString(s) > maxDescription {
		return "", fmt.Errorf("description must be at most %d characters", maxDescription)
	}
	return s, nil
}

// Create logs a meal, resolving its nutrition manually or via AI.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req models.CreateMealRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := validateDescription(req.Description)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	mealType := strings.ToLower(strings.TrimSpace(req.MealType))
	if !models.ValidMealType(mealType) {
		httpx.WriteError(w, http.StatusBadRequest, "meal_type must be one of breakfast, lunch, dinner, snack")
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = h.today()
	} else if !validDate(date) {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if err := req.MacroInput.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.resolver.Resolve(r.Context(), desc, req.MacroInput)
	meal, err := h.meals.CreateMeal(r.Context(), &models.Meal{
		UserID:       userID,
		Date:         date,
		Type:         mealType,
		Description:  desc,
		Macros:       res.Macros,
		Source:       res.Source,
		AnalysisNote: res.Note,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err, "meal not found")
		return
	}
	h.resolver.Record(r.Context(), userID, meal.ID, desc, res)
	h.invalidate(r.Context(), userID)

	httpx.WriteJSON(w, http.StatusCreated, meal)
}

type analyzeResponse struct {
	models.Macros
	Source       string `json:"source"`
	Model        string `json:"model,omitempty"`
	AnalysisNote string `json:"analysis_note,omitempty"`
}

// Analyze returns an AI estimate without storing a meal.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := validateDescription(req.Description)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.resolver.Estimate(r.Context(), desc)
	h.resolver.Record(r.Context(), auth.UserID(r.Context()), 0, desc, res)
	switch {
	case errors.Is(res.Err, nutrition.ErrDisabled):
		httpx.WriteErrorDetails(w, http.StatusServiceUnavailable, "nutrition analysis unavailable", res.Note)
	case res.Err != nil:
		httpx.WriteErrorDetails(w, http.StatusBadGateway, "nutrition analysis failed", res.Note)
	default:
		httpx.WriteJSON(w, http.StatusOK, analyzeResponse{Macros: res.Macros, Source: res.Source, Model: res.Model})
	}
}

// List returns meals for ?date=, or ?from=&to=, defaulting to today.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if d := q.Get("date"); d != "" {
		from, to = d, d
	}
	if from == "" && to == "" {
		from, to = h.today(), h.today()
	}
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	start, err1 := time.Parse(models.DateLayout, from)
	end, err2 := time.Parse(models.DateLayout, to)
	if err1 != nil || err2 != nil {
		httpx.WriteError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		httpx.WriteError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("range must be at most %d days", maxRangeDays))
		return
	}

	meals, err := h.meals.ListMeals(r.Context(), auth.UserID(r.Context()), from, to)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "meals not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meals)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Meal, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	meal, err := h.meals.GetMeal(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "meal not found")
		return nil, false
	}
	return meal, true
}

// Get returns a single meal.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meal)
}

// Update applies a partial change. With reanalyze the nutrition is resolved
// again from the (possibly new) description.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.load(w, r)
	if !ok {
		return
	}

	var req models.UpdateMealRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Description != nil {
		desc, err := validateDescription(*req.Description)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		meal.Description = desc
	}
	if req.MealType != nil {
		t := strings.ToLower(strings.TrimSpace(*req.MealType))
		if !models.ValidMealType(t) {
			httpx.WriteError(w, http.StatusBadRequest, "meal_type must be one of breakfast, lunch, dinner, snack")
			return
		}
		meal.Type = t
	}
	if req.Date != nil {
		if !validDate(*req.Date) {
			httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		meal.Date = *req.Date
	}
	if err := req.MacroInput.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var res *nutrition.Result
	switch {
	case req.Reanalyze:
		rr := h.resolver.Resolve(r.Context(), meal.Description, req.MacroInput)
		res = &rr
		meal.Macros = rr.Macros
		meal.Source = rr.Source
		meal.AnalysisNote = rr.Note
	case req.MacroInput.Any():
		meal.Macros = req.MacroInput.ApplyTo(meal.Macros)
		meal.Source = models.SourceManual
		meal.AnalysisNote = ""
	}

	if err := h.meals.UpdateMeal(r.Context(), meal); err != nil {
		httpx.WriteStoreError(w, r, err, "meal not found")
		return
	}
	if res != nil {
		h.resolver.Record(r.Context(), meal.UserID, meal.ID, meal.Description, *res)
	}
	h.invalidate(r.Context(), meal.UserID)

	httpx.WriteJSON(w, http.StatusOK, meal)
}

// Delete removes a meal and its analysis log entries.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())
	if err := h.meals.DeleteMeal(r.Context(), userID, id); err != nil {
		httpx.WriteStoreError(w, r, err, "meal not found")
		return
	}
	if h.analyses != nil {
		if err := h.analyses.DeleteByMeal(r.Context(), userID, id); err != nil {
			logrus.WithError(err).WithField("meal_id", id).Warn("delete meal analyses")
		}
	}
	h.invalidate(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// Analysis returns the AI attempts recorded for a meal.
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.load(w, r)
	if !ok {
		return
	}
	if h.analyses == nil {
		httpx.WriteError(w, http.StatusNotFound, "analysis log is disabled")
		return
	}
	recs, err := h.analyses.ListByMeal(r.Context(), meal.UserID, meal.ID)
	if err != nil {
		logrus.WithError(err).WithField("meal_id", meal.ID).Error("list meal analyses")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(recs) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "no analysis recorded for this meal")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}
