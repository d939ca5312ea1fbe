package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_MintsUUID(t *testing.T) {
	var contextID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if contextID == "" {
		t.Fatal("expected a request ID in context")
	}
	if _, err := uuid.Parse(contextID); err != nil {
		t.Errorf("expected a minted UUID, got %q", contextID)
	}
	if rr.Header().Get(RequestIDHeader) != contextID {
		t.Errorf("response header %q does not match context ID %q",
			rr.Header().Get(RequestIDHeader), contextID)
	}
}

func TestRequestID_HonorsInboundHeader(t *testing.T) {
	const inbound = "job-7f3a-run-42"
	var contextID string

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if contextID != inbound {
		t.Errorf("expected inbound ID %q, got %q", inbound, contextID)
	}
	if rr.Header().Get(RequestIDHeader) != inbound {
		t.Errorf("expected echoed header %q, got %q",
			inbound, rr.Header().Get(RequestIDHeader))
	}
}

func TestGetRequestID_MissingReturnsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty string, got %q", id)
	}
}
