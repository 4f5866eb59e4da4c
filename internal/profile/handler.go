// Package profile serves the user's body data, goals and recommended targets.
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

// Store defines the persistence the profile endpoints need.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	SaveProfile(ctx context.Context, u *models.User, p *models.Profile) error
	SaveGoals(ctx context.Context, userID int64, calories, protein float64) error
}

// Invalidator drops cached diary views, which embed the goals.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Handler holds profile HTTP handlers. cache may be nil.
type Handler struct {
	store Store
	cache Invalidator
}

func NewHandler(s Store, cache Invalidator) *Handler {
	return &Handler{store: s, cache: cache}
}

// Response is the body of GET and PUT /api/profile.
type Response struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.User, *models.Profile, bool) {
	userID := auth.UserID(r.Context())
	u, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return nil, nil, false
	}
	p, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "profile not found")
		return nil, nil, false
	}
	return u, p, true
}

func (h *Handler) invalidate(ctx context.Context, userID int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("invalidate diary cache")
	}
}

// Get returns the user and their profile, with defaults when none is saved.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, p, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Response{User: u, Profile: p})
}

// Update applies a partial change to the user's names and profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, p, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := applyUpdate(u, p, &req); err != nil {
		httpx.WriteErrorDetails(w, http.StatusBadRequest, "invalid profile", err.Error())
		return
	}

	err := h.store.SaveProfile(r.Context(), u, p)
	if errors.Is(err, store.ErrConflict) {
		httpx.WriteError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	u.Username = strings.ToLower(u.Username)
	if req.GoalCalories != nil || req.GoalProtein != nil {
		h.invalidate(r.Context(), u.ID)
	}
	httpx.WriteJSON(w, http.StatusOK, Response{User: u, Profile: p})
}

func applyUpdate(u *models.User, p *models.Profile, req *models.UpdateProfileRequest) error {
	var errs []error
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := auth.ValidateUsername(name); err != nil {
			errs = append(errs, err)
		}
		u.Username = name
	}
	nonNegative := func(field string, v *float64, dst *float64) {
		if v == nil {
			return
		}
		if *v < 0 {
			errs = append(errs, errors.New(field+" must not be negative"))
			return
		}
		*dst = *v
	}
	nonNegative("goal_calories", req.GoalCalories, &p.GoalCalories)
	nonNegative("goal_protein", req.GoalProtein, &p.GoalProtein)
	nonNegative("weight_kg", req.WeightKg, &p.WeightKg)
	nonNegative("height_cm", req.HeightCm, &p.HeightCm)
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 150 {
			errs = append(errs, errors.New("age must be between 0 and 150"))
		} else {
			p.Age = *req.Age
		}
	}
	if req.ActivityLevel != nil {
		v := strings.ToLower(strings.TrimSpace(*req.ActivityLevel))
		if _, ok := activityFactors[v]; !ok && v != "" {
			errs = append(errs, errors.New("activity_level must be one of sedentary, light, moderate, active, very_active"))
		} else {
			p.ActivityLevel = v
		}
	}
	if req.Gender != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Gender))
		switch v {
		case "", models.GenderMale, models.GenderFemale, models.GenderOther:
			p.Gender = v
		default:
			errs = append(errs, errors.New("gender must be one of male, female, other"))
		}
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if utf8.RuneCountInString(bio) > 500 {
			errs = append(errs, errors.New("bio must be at most 500 characters"))
		} else {
			p.Bio = bio
		}
	}
	return errors.Join(errs...)
}

// UpdateGoals sets the calorie and protein targets.
func (h *Handler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	var req models.GoalsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GoalCalories <= 0 || req.GoalProtein <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "goal_calories and goal_protein must be positive")
		return
	}
	userID := auth.UserID(r.Context())
	if err := h.store.SaveGoals(r.Context(), userID, req.GoalCalories, req.GoalProtein); err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	h.invalidate(r.Context(), userID)

	p, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "profile not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// Recommendation returns suggested targets computed from the profile.
func (h *Handler) Recommendation(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteStoreError(w, r, err, "profile not found")
		return
	}
	rec, err := Recommend(p)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
