package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cases := []struct {
		name     string
		err      error
		code     int
		status   string
		database string
	}{
		{"up", nil, http.StatusOK, "ok", "ok"},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable, "error", "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthHandler(fakePinger{tc.err}, logger)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tc.code {
				t.Fatalf("status = %d", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != tc.status || body["database"] != tc.database {
				t.Errorf("body = %v", body)
			}
		})
	}
}
