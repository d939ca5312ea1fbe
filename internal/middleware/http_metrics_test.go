package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"root", "/", "/"},
		{"tiering run", "/v1/tiering/run", "/v1/tiering/run"},
		{"algo config", "/v1/algo-config", "/v1/algo-config"},
		{"algo config invalidate", "/v1/algo-config/invalidate", "/v1/algo-config/invalidate"},
		{"health", "/health", "/health"},
		{"metrics", "/metrics", "/metrics"},
		{"run by id", "/v1/tiering/runs/1b4e28ba", "/v1/tiering/runs/{id}"},
		{"unknown passes through", "/v2/something", "/v2/something"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"tiers":[]}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Length", "13")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	labels := prometheus.Labels{"method": "POST", "path": "/v1/tiering/run", "status": "200"}
	if got := counterValue(t, m.httpRequestsTotal, labels); got != 1 {
		t.Errorf("expected 1 recorded request, got %v", got)
	}
}

func TestHTTPMetrics_NormalizesDynamicPath(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, id := range []string{"aaa", "bbb", "ccc"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/tiering/runs/"+id, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}

	labels := prometheus.Labels{"method": "GET", "path": "/v1/tiering/runs/{id}", "status": "200"}
	if got := counterValue(t, m.httpRequestsTotal, labels); got != 3 {
		t.Errorf("expected 3 requests under one normalized path, got %v", got)
	}
}

func TestHTTPMetrics_SkipsHealthEndpoints(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		labels := prometheus.Labels{"method": "GET", "path": path, "status": "200"}
		if got := counterValue(t, m.httpRequestsTotal, labels); got != 0 {
			t.Errorf("expected %s to be excluded from metrics, got %v", path, got)
		}
	}
}

func TestHTTPMetrics_ErrorStatus(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	labels := prometheus.Labels{"method": "POST", "path": "/v1/tiering/run", "status": "400"}
	if got := counterValue(t, m.httpRequestsTotal, labels); got != 1 {
		t.Errorf("expected 1 request with status 400, got %v", got)
	}
}
