package diary

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
)

// Store is the read side the diary needs.
type Store interface {
	ListMeals(ctx context.Context, userID int64, from, to string) ([]models.Meal, error)
	DailyTotals(ctx context.Context, userID int64, from, to string) ([]models.DailyTotal, error)
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
}

// Cache stores rendered views per user. Get returns the key a miss should be
// filled under; Set must only be called with that key.
type Cache interface {
	Get(ctx context.Context, userID int64, view string, dest any) (key string, ok bool, err error)
	Set(ctx context.Context, key string, v any) error
}

// Handler holds diary HTTP handlers. cache may be nil.
type Handler struct {
	store Store
	cache Cache
	now   func() time.Time
}

func NewHandler(store Store, cache Cache) *Handler {
	return &Handler{store: store, cache: cache, now: time.Now}
}

func (h *Handler) goals(ctx context.Context, userID int64) (models.Goals, error) {
	p, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		return models.Goals{}, err
	}
	return p.Goals(), nil
}

// cached serves view from the cache or builds it with build and stores it.
func cached[T any](h *Handler, w http.ResponseWriter, r *http.Request, view string, build func(models.Goals) (T, error)) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "view": view})

	var key string
	if h.cache != nil {
		var (
			hit T
			ok  bool
			err error
		)
		key, ok, err = h.cache.Get(ctx, userID, view, &hit)
		if err != nil {
			log.WithError(err).Warn("diary cache get")
			key = ""
		}
		if ok {
			httpx.WriteJSON(w, http.StatusOK, hit)
			return
		}
	}

	goals, err := h.goals(ctx, userID)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "profile not found")
		return
	}
	v, err := build(goals)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "diary not found")
		return
	}
	if key != "" {
		if err := h.cache.Set(ctx, key, v); err != nil {
			log.WithError(err).Warn("diary cache set")
		}
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// Day returns the meals and totals of one date.
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, ok := parseDate(w, date); !ok {
		return
	}
	ctx := r.Context()
	userID := auth.UserID(ctx)

	goals, err := h.goals(ctx, userID)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "profile not found")
		return
	}
	meals, err := h.store.ListMeals(ctx, userID, date, date)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "meals not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, BuildDay(date, meals, goals))
}

// Week returns the ISO week containing the date.
func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	start := WeekStart(d)
	end := start.AddDate(0, 0, 6)
	userID := auth.UserID(r.Context())
	cached(h, w, r, "week:"+start.Format(models.DateLayout), func(g models.Goals) (models.WeekView, error) {
		totals, err := h.store.DailyTotals(r.Context(), userID, start.Format(models.DateLayout), end.Format(models.DateLayout))
		if err != nil {
			return models.WeekView{}, err
		}
		return BuildWeek(start, totals, g), nil
	})
}

// Month returns one entry per day of the month.
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
	if err1 != nil || err2 != nil || year < 1900 || year > 9999 || month < 1 || month > 12 {
		httpx.WriteError(w, http.StatusBadRequest, "year and month must be numeric, month 1-12")
		return
	}
	first, last := MonthRange(year, time.Month(month))
	userID := auth.UserID(r.Context())
	cached(h, w, r, fmt.Sprintf("month:%04d-%02d", year, month), func(g models.Goals) (models.MonthView, error) {
		totals, err := h.store.DailyTotals(r.Context(), userID, first.Format(models.DateLayout), last.Format(models.DateLayout))
		if err != nil {
			return models.MonthView{}, err
		}
		return BuildMonth(year, time.Month(month), totals, g), nil
	})
}

// Summary returns averages, goal counts and the logging streak over ?days=N.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	days := defaultSummaryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSummaryDays {
			httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxSummaryDays))
			return
		}
		days = n
	}
	today := dateOnly(h.now().UTC())
	from := today.AddDate(0, 0, -(days - 1))
	userID := auth.UserID(r.Context())
	view := fmt.Sprintf("summary:%s:%d", today.Format(models.DateLayout), days)
	cached(h, w, r, view, func(g models.Goals) (models.Summary, error) {
		totals, err := h.store.DailyTotals(r.Context(), userID, from.Format(models.DateLayout), today.Format(models.DateLayout))
		if err != nil {
			return models.Summary{}, err
		}
		return BuildSummary(today, days, totals, g), nil
	})
}
