package social

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

// SearchUsers finds users by username prefix, ?q=.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpx.WriteJSON(w, http.StatusOK, []models.UserSummary{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := h.store.SearchUsers(r.Context(), q, limit)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "users not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

// GetUser returns a public profile with follow counts.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.store.PublicUser(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request)   { h.follow(w, r, true) }
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) { h.follow(w, r, false) }

func (h *Handler) follow(w http.ResponseWriter, r *http.Request, follow bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())
	if id == userID {
		httpx.WriteError(w, http.StatusBadRequest, "you cannot follow yourself")
		return
	}
	if follow {
		err = h.store.Follow(r.Context(), userID, id)
	} else {
		err = h.store.Unfollow(r.Context(), userID, id)
	}
	if errors.Is(err, store.ErrInvalidReference) {
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}

	u, err := h.store.PublicUser(r.Context(), userID, id)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	if follow {
		h.metrics.SocialAction("follow")
	} else {
		h.metrics.SocialAction("unfollow")
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listFollows(w, r, h.store.Followers)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.listFollows(w, r, h.store.Following)
}

func (h *Handler) listFollows(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID int64, limit, offset int) ([]models.UserSummary, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.PublicUser(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	limit, offset := httpx.Page(r)
	users, err := list(r.Context(), id, limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}
