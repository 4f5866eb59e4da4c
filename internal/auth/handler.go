package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *TokenManager
	cost   int
}

func NewHandler(users UserStore, tokens *TokenManager) *Handler {
	return &Handler{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates a new user and signs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRegistration(&req); err != nil {
		httpx.WriteErrorDetails(w, http.StatusBadRequest, "invalid registration", err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		logrus.WithError(err).Error("hash password")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, string(hashed))
	if errors.Is(err, store.ErrConflict) {
		httpx.WriteError(w, http.StatusConflict, "email or username already registered")
		return
	}
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login authenticates a user and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, exp, err := h.tokens.Issue(user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("issue token")
		httpx.WriteError(w, http.StatusInternalServerError, "token creation failed")
		return
	}
	user.Password = ""
	httpx.WriteJSON(w, status, models.AuthResponse{Token: token, ExpiresAt: exp, User: user})
}

// Logout revokes the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		logrus.WithError(err).Error("revoke token")
		httpx.WriteError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), UserID(r.Context()))
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}
