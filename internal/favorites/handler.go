// Package favorites serves the user's bookmarked posts.
package favorites

import (
	"context"
	"net/http"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/metrics"
	"github.com/ayush/nutrilog/internal/models"
)

// Store defines the interface for favorite persistence.
type Store interface {
	AddFavorite(ctx context.Context, userID, postID int64) error
	RemoveFavorite(ctx context.Context, userID, postID int64) error
	ListFavorites(ctx context.Context, userID int64, limit, offset int) ([]models.FavoritePost, error)
}

type Handler struct {
	store   Store
	metrics *metrics.Metrics
}

func NewHandler(s Store, m *metrics.Metrics) *Handler {
	return &Handler{store: s, metrics: m}
}

// List returns favorited posts, newest favorite first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	favs, err := h.store.ListFavorites(r.Context(), auth.UserID(r.Context()), limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "favorites not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, favs)
}

// Add bookmarks a post. Adding an existing favorite is not an error.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	postID, err := httpx.IDParam(r, "postId")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.AddFavorite(r.Context(), auth.UserID(r.Context()), postID); err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	h.metrics.SocialAction("favorite")
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"post_id": postID, "favorited": true})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	postID, err := httpx.IDParam(r, "postId")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.RemoveFavorite(r.Context(), auth.UserID(r.Context()), postID); err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
