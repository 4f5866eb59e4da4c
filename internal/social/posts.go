package social

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

const (
	maxPostContent    = 2000
	maxCommentContent = 1000
)

var errImagesDisabled = errors.New("image uploads are not configured")

// Feed returns posts from the viewer and the users they follow.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	posts, err := h.store.Feed(r.Context(), auth.UserID(r.Context()), limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "feed not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

// ListPosts returns all posts, or one author's with ?user_id=.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var authorID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		authorID = id
	}
	limit, offset := httpx.Page(r)
	posts, err := h.store.ListPosts(r.Context(), auth.UserID(r.Context()), authorID, limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "posts not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

type postInput struct {
	content     string
	mealID      *int64
	image       []byte
	contentType string
}

// CreatePost accepts JSON or a multipart form with an optional image file.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		in  postInput
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		in, err = h.readMultipart(w, r)
	} else {
		var req models.CreatePostRequest
		err = httpx.DecodeJSON(w, r, &req)
		in = postInput{content: req.Content, mealID: req.MealID}
	}
	if errors.Is(err, errImagesDisabled) {
		httpx.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in.content = strings.TrimSpace(in.content)
	if in.content == "" && in.image == nil {
		httpx.WriteError(w, http.StatusBadRequest, "content or image is required")
		return
	}
	if utf8.RuneCountInString(in.content) > maxPostContent {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("content must be at most %d characters", maxPostContent))
		return
	}
	if in.mealID != nil {
		if _, err := h.store.GetMeal(r.Context(), userID, *in.mealID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.WriteError(w, http.StatusBadRequest, "meal_id must reference one of your meals")
				return
			}
			httpx.WriteStoreError(w, r, err, "meal not found")
			return
		}
	}

	post := &models.Post{UserID: userID, Content: in.content, MealID: in.mealID}
	if in.image != nil {
		url, key, err := h.images.SaveImage(r.Context(), in.image, in.contentType)
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("save post image")
			httpx.WriteError(w, http.StatusBadGateway, "image upload failed")
			return
		}
		post.ImageURL, post.ImageKey = url, key
	}

	created, err := h.store.CreatePost(r.Context(), post)
	if err != nil {
		h.dropImage(r, post.ImageKey)
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	h.metrics.SocialAction("post")
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request) (postInput, error) {
	var in postInput
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return in, fmt.Errorf("invalid multipart form: %w", err)
	}
	in.content = r.FormValue("content")
	if raw := strings.TrimSpace(r.FormValue("meal_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return in, errors.New("invalid meal_id")
		}
		in.mealID = &id
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("read image: %w", err)
	}
	defer file.Close()
	if h.images == nil {
		return in, errImagesDisabled
	}
	data, ct, err := h.readImage(file, header)
	if err != nil {
		return in, err
	}
	in.image, in.contentType = data, ct
	return in, nil
}

// readImage enforces the upload cap and accepts only sniffed image/* content.
func (h *Handler) readImage(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > h.maxUpload {
		return nil, "", fmt.Errorf("image must be at most %d MB", h.maxUpload>>20)
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, "", fmt.Errorf("image must be at most %d MB", h.maxUpload>>20)
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("unsupported image type %s", ct)
	}
	return data, ct, nil
}

func (h *Handler) dropImage(r *http.Request, key string) {
	if key == "" || h.images == nil {
		return
	}
	if err := h.images.DeleteImage(r.Context(), key); err != nil {
		logrus.WithError(err).WithField("image_key", key).Warn("delete post image")
	}
}

func (h *Handler) loadPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	p, err := h.store.GetPost(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return nil, false
	}
	return p, true
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// DeletePost removes the caller's own post and its image.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	if p.UserID != auth.UserID(r.Context()) {
		httpx.WriteError(w, http.StatusForbidden, "only the author can delete this post")
		return
	}
	if err := h.store.DeletePost(r.Context(), p.ID); err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	h.dropImage(r, p.ImageKey)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request)   { h.like(w, r, true) }
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) { h.like(w, r, false) }

func (h *Handler) like(w http.ResponseWriter, r *http.Request, like bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())
	var count int
	if like {
		count, err = h.store.LikePost(r.Context(), userID, id)
	} else {
		count, err = h.store.UnlikePost(r.Context(), userID, id)
	}
	if err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	if like {
		h.metrics.SocialAction("like")
	} else {
		h.metrics.SocialAction("unlike")
	}
	httpx.WriteJSON(w, http.StatusOK, models.LikeResult{PostID: id, Liked: like, LikeCount: count})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.GetPost(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	limit, offset := httpx.Page(r)
	comments, err := h.store.ListComments(r.Context(), id, limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, comments)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req models.CommentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > maxCommentContent {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("content must be 1-%d characters", maxCommentContent))
		return
	}
	c, err := h.store.AddComment(r.Context(), &models.Comment{
		PostID:  id,
		UserID:  auth.UserID(r.Context()),
		Content: content,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err, "post not found")
		return
	}
	h.metrics.SocialAction("comment")
	httpx.WriteJSON(w, http.StatusCreated, c)
}

// DeleteComment is allowed for the comment author and the post author.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())
	c, err := h.store.GetComment(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err, "comment not found")
		return
	}
	if c.UserID != userID {
		p, err := h.store.GetPost(r.Context(), userID, c.PostID)
		if err != nil {
			httpx.WriteStoreError(w, r, err, "post not found")
			return
		}
		if p.UserID != userID {
			httpx.WriteError(w, http.StatusForbidden, "not allowed to delete this comment")
			return
		}
	}
	if err := h.store.DeleteComment(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err, "comment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
