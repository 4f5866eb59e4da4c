package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nutrilog/internal/store"
)

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get meal: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("create user: %w", store.ErrConflict), http.StatusConflict},
		{fmt.Errorf("follow: %w", store.ErrInvalidReference), http.StatusBadRequest},
		{fmt.Errorf("follow: %w", store.ErrInvalid), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteStoreError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "meal not found")
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body ErrorBody
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
			t.Errorf("%v: body %+v, err %v", tt.err, body, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Name string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, &v); err != nil || v.Name != "x" {
		t.Fatalf("decode = %+v, %v", v, err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), req, &v); err == nil {
		t.Fatal("expected error on empty body")
	}
}

func TestIDParam(t *testing.T) {
	for raw, ok := range map[string]bool{"12": true, "0": false, "-3": false, "abc": false} {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		_, err := IDParam(req, "id")
		if (err == nil) != ok {
			t.Errorf("IDParam(%q) err = %v", raw, err)
		}
	}
}

func TestPage(t *testing.T) {
	limit, offset := Page(httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-1", nil))
	if limit != 100 || offset != 0 {
		t.Errorf("Page = %d, %d", limit, offset)
	}
	limit, offset = Page(httptest.NewRequest(http.MethodGet, "/", nil))
	if limit != 20 || offset != 0 {
		t.Errorf("default Page = %d, %d", limit, offset)
	}
}
