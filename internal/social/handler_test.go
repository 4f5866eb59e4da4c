package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/metrics"
	"github.com/ayush/nutrilog/internal/models"
	"github.com/ayush/nutrilog/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memImages struct {
	objects map[string][]byte
	next    int
}

func (m *memImages) SaveImage(_ context.Context, data []byte, contentType string) (string, string, error) {
	m.next++
	key := fmt.Sprintf("img-%d.png", m.next)
	m.objects[key] = data
	return store.ImagePathPrefix + key, key, nil
}

func (m *memImages) OpenImage(_ context.Context, key string) ([]byte, string, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, "image/png", nil
}

func (m *memImages) DeleteImage(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type fixture struct {
	store   *store.Store
	images  *memImages
	metrics *metrics.Metrics
	router  http.Handler
	users   [3]int64
}

func newFixture(t *testing.T, withImages bool) *fixture {
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
	f := &fixture{store: s, metrics: metrics.New(prometheus.NewRegistry())}
	for i, name := range []string{"gina", "hank", "ivy"} {
		u, err := s.CreateUser(ctx, &models.User{Email: name + "@example.com", Username: name}, "x")
		if err != nil {
			t.Fatal(err)
		}
		f.users[i] = u.ID
	}

	var images ImageStore
	if withImages {
		f.images = &memImages{objects: map[string][]byte{}}
		images = f.images
	}
	h := NewHandler(s, images, 1, f.metrics)

	r := chi.NewRouter()
	r.Route("/api/social", func(r chi.Router) {
		r.Get("/feed", h.Feed)
		r.Get("/posts", h.ListPosts)
		r.Post("/posts", h.CreatePost)
		r.Get("/posts/{id}", h.GetPost)
		r.Delete("/posts/{id}", h.DeletePost)
		r.Post("/posts/{id}/like", h.Like)
		r.Delete("/posts/{id}/like", h.Unlike)
		r.Get("/posts/{id}/comments", h.ListComments)
		r.Post("/posts/{id}/comments", h.AddComment)
		r.Delete("/comments/{id}", h.DeleteComment)
		r.Get("/users", h.SearchUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Post("/users/{id}/follow", h.Follow)
		r.Delete("/users/{id}/follow", h.Unfollow)
		r.Get("/users/{id}/followers", h.Followers)
		r.Get("/users/{id}/following", h.Following)
		r.Get("/images/{key}", h.Image)
	})
	f.router = r
	return f
}

func (f *fixture) send(t *testing.T, user int, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req = req.WithContext(auth.WithUserID(req.Context(), f.users[user]))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) do(t *testing.T, user int, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	return f.send(t, user, httptest.NewRequest(method, path, &buf))
}

func multipartPost(t *testing.T, content string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("content", content)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(image)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/social/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body)
	}
	return v
}

func TestCreatePostJSONAndMeal(t *testing.T) {
	f := newFixture(t, false)
	meal, err := f.store.CreateMeal(context.Background(), &models.Meal{
		UserID: f.users[0], Date: "2024-06-10", Type: models.MealDinner, Description: "ramen", Source: models.SourceManual,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, 0, http.MethodPost, "/api/social/posts", map[string]any{"content": "dinner!", "meal_id": meal.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	p := decode[models.Post](t, rec)
	if p.Content != "dinner!" || p.MealID == nil || *p.MealID != meal.ID || p.Author.Username != "gina" {
		t.Fatalf("post = %+v", p)
	}

	if rec := f.do(t, 1, http.MethodPost, "/api/social/posts", map[string]any{"content": "stolen", "meal_id": meal.ID}); rec.Code != http.StatusBadRequest {
		t.Errorf("foreign meal: status %d", rec.Code)
	}
	if rec := f.do(t, 0, http.MethodPost, "/api/social/posts", map[string]any{"content": "  "}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty post: status %d", rec.Code)
	}
	if got := testutil.ToFloat64(f.metrics.SocialActions.WithLabelValues("post")); got != 1 {
		t.Errorf("post actions = %v", got)
	}
}

func TestCreatePostWithImage(t *testing.T) {
	f := newFixture(t, true)
	rec := f.send(t, 0, multipartPost(t, "lunch", pngHeader))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	p := decode[models.Post](t, rec)
	if p.ImageURL != store.ImagePathPrefix+"img-1.png" {
		t.Fatalf("image url = %q", p.ImageURL)
	}

	img := f.send(t, 1, httptest.NewRequest(http.MethodGet, "/api/social/images/img-1.png", nil))
	if img.Code != http.StatusOK || img.Header().Get("Content-Type") != "image/png" || !bytes.Equal(img.Body.Bytes(), pngHeader) {
		t.Fatalf("image fetch = %d %q", img.Code, img.Header().Get("Content-Type"))
	}

	if rec := f.send(t, 0, multipartPost(t, "not a picture", []byte("hello, plain text"))); rec.Code != http.StatusBadRequest {
		t.Errorf("text upload: status %d", rec.Code)
	}
	big := append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...)
	if rec := f.send(t, 0, multipartPost(t, "huge", big)); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized upload: status %d", rec.Code)
	}

	path := fmt.Sprintf("/api/social/posts/%d", p.ID)
	if rec := f.do(t, 1, http.MethodDelete, path, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-author delete = %d", rec.Code)
	}
	if rec := f.do(t, 0, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("author delete = %d", rec.Code)
	}
	if len(f.images.objects) != 0 {
		t.Errorf("image should be removed with the post")
	}
}

func TestImageUploadDisabled(t *testing.T) {
	f := newFixture(t, false)
	if rec := f.send(t, 0, multipartPost(t, "pic", pngHeader)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := f.send(t, 0, multipartPost(t, "text only", nil)); rec.Code != http.StatusCreated {
		t.Fatalf("text-only multipart = %d %s", rec.Code, rec.Body)
	}
}

func TestLikesAndComments(t *testing.T) {
	f := newFixture(t, false)
	p := decode[models.Post](t, f.do(t, 0, http.MethodPost, "/api/social/posts", map[string]any{"content": "hi"}))
	like := fmt.Sprintf("/api/social/posts/%d/like", p.ID)

	f.do(t, 1, http.MethodPost, like, nil)
	res := decode[models.LikeResult](t, f.do(t, 1, http.MethodPost, like, nil))
	if res.LikeCount != 1 || !res.Liked {
		t.Fatalf("double like = %+v", res)
	}
	res = decode[models.LikeResult](t, f.do(t, 1, http.MethodDelete, like, nil))
	if res.LikeCount != 0 {
		t.Fatalf("unlike = %+v", res)
	}
	if rec := f.do(t, 1, http.MethodPost, "/api/social/posts/999/like", nil); rec.Code != http.StatusNotFound {
		t.Errorf("like unknown post = %d", rec.Code)
	}

	comments := fmt.Sprintf("/api/social/posts/%d/comments", p.ID)
	c1 := decode[models.Comment](t, f.do(t, 1, http.MethodPost, comments, map[string]string{"content": "nice"}))
	c2 := decode[models.Comment](t, f.do(t, 2, http.MethodPost, comments, map[string]string{"content": "yum"}))
	if rec := f.do(t, 1, http.MethodPost, comments, map[string]string{"content": ""}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty comment = %d", rec.Code)
	}

	if rec := f.do(t, 2, http.MethodDelete, fmt.Sprintf("/api/social/comments/%d", c1.ID), nil); rec.Code != http.StatusForbidden {
		t.Errorf("third party delete = %d", rec.Code)
	}
	if rec := f.do(t, 0, http.MethodDelete, fmt.Sprintf("/api/social/comments/%d", c1.ID), nil); rec.Code != http.StatusNoContent {
		t.Errorf("post author delete = %d", rec.Code)
	}
	if rec := f.do(t, 2, http.MethodDelete, fmt.Sprintf("/api/social/comments/%d", c2.ID), nil); rec.Code != http.StatusNoContent {
		t.Errorf("comment author delete = %d", rec.Code)
	}

	got := decode[models.Post](t, f.do(t, 0, http.MethodGet, fmt.Sprintf("/api/social/posts/%d", p.ID), nil))
	if got.CommentCount != 0 || got.LikeCount != 0 {
		t.Errorf("counts = %d likes / %d comments", got.LikeCount, got.CommentCount)
	}
}

func TestFollowAndFeed(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, 1, http.MethodPost, "/api/social/posts", map[string]any{"content": "from hank"})
	f.do(t, 2, http.MethodPost, "/api/social/posts", map[string]any{"content": "from ivy"})

	follow := fmt.Sprintf("/api/social/users/%d/follow", f.users[1])
	if rec := f.do(t, 0, http.MethodPost, fmt.Sprintf("/api/social/users/%d/follow", f.users[0]), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("self follow = %d", rec.Code)
	}
	if rec := f.do(t, 0, http.MethodPost, "/api/social/users/999/follow", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown follow = %d", rec.Code)
	}
	f.do(t, 0, http.MethodPost, follow, nil)
	pu := decode[models.PublicUser](t, f.do(t, 0, http.MethodPost, follow, nil))
	if pu.Followers != 1 || !pu.IsFollow {
		t.Fatalf("after follow = %+v", pu)
	}

	feed := decode[[]models.Post](t, f.do(t, 0, http.MethodGet, "/api/social/feed", nil))
	if len(feed) != 1 || feed[0].Content != "from hank" {
		t.Fatalf("feed = %+v", feed)
	}
	followers := decode[[]models.UserSummary](t, f.do(t, 0, http.MethodGet, fmt.Sprintf("/api/social/users/%d/followers", f.users[1]), nil))
	if len(followers) != 1 || followers[0].Username != "gina" {
		t.Fatalf("followers = %+v", followers)
	}

	found := decode[[]models.UserSummary](t, f.do(t, 0, http.MethodGet, "/api/social/users?q=IV", nil))
	if len(found) != 1 || found[0].Username != "ivy" {
		t.Errorf("search = %+v", found)
	}

	pu = decode[models.PublicUser](t, f.do(t, 0, http.MethodDelete, follow, nil))
	if pu.Followers != 0 || pu.IsFollow {
		t.Errorf("after unfollow = %+v", pu)
	}
}

func TestContentLimitsCountCharacters(t *testing.T) {
	f := newFixture(t, false)
	content := strings.Repeat("é", maxPostContent)
	rec := f.do(t, 0, http.MethodPost, "/api/social/posts", map[string]any{"content": content})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	p := decode[models.Post](t, rec)
	if rec := f.do(t, 0, http.MethodPost, "/api/social/posts", map[string]any{"content": content + "é"}); rec.Code != http.StatusBadRequest {
		t.Errorf("post over limit: status %d", rec.Code)
	}

	comments := fmt.Sprintf("/api/social/posts/%d/comments", p.ID)
	comment := strings.Repeat("美味", maxCommentContent/2)
	if rec := f.do(t, 1, http.MethodPost, comments, map[string]string{"content": comment}); rec.Code != http.StatusCreated {
		t.Fatalf("comment status = %d %s", rec.Code, rec.Body)
	}
	if rec := f.do(t, 1, http.MethodPost, comments, map[string]string{"content": comment + "!"}); rec.Code != http.StatusBadRequest {
		t.Errorf("comment over limit: status %d", rec.Code)
	}
}
