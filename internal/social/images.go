package social

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/store"
)

// Image serves a stored post image by key.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, errImagesDisabled.Error())
		return
	}
	key := chi.URLParam(r, "key")
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid image key")
		return
	}
	data, ct, err := h.images.OpenImage(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("image_key", key).Error("open post image")
		httpx.WriteError(w, http.StatusBadGateway, "image download failed")
		return
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
