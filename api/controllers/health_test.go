package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive("prod").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(envHeader) != "prod" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	ok := ReadinessCheck{Name: "db", Ping: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}

	rec := httptest.NewRecorder()
	HealthReady("prod", nil, ok, ReadinessCheck{Name: "skipped"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady("prod", nil, ok, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	checks, _ := body["checks"].(map[string]any)
	if checks["redis"] != "dial tcp: refused" {
		t.Fatalf("expected failing check reported, got %v", body)
	}
	if _, reported := checks["db"]; reported {
		t.Fatalf("healthy checks should not be reported")
	}
}
