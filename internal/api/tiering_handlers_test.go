package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwkoo/keytier/internal/pipeline"
	"github.com/jwkoo/keytier/internal/tier"
	"github.com/jwkoo/keytier/internal/volume"
)

type fakeRunner struct {
	result  *pipeline.Result
	err     error
	lastReq pipeline.Request
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTieringRun_Success(t *testing.T) {
	runner := &fakeRunner{
		result: &pipeline.Result{
			RunID: "run-1",
			Mode:  volume.ModeSearchAds,
			Tiers: []tier.View{
				{Tier: 1, Text: "홍삼스틱", Volume: 5000, Score: 76.73, Eligible: true},
			},
		},
	}
	h := NewTieringHandlers(runner, testLogger())

	body := `{"job_id":"job-1","blog_id":"blog-1","post_id":"post-1","title":"홍삼스틱 추천","keyword":"홍삼스틱"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result pipeline.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result.RunID != "run-1" {
		t.Errorf("expected run-1, got %q", result.RunID)
	}
	if len(result.Tiers) != 1 || result.Tiers[0].Text != "홍삼스틱" {
		t.Errorf("unexpected tiers: %+v", result.Tiers)
	}
	if runner.lastReq.BlogID != "blog-1" {
		t.Errorf("runner received wrong request: %+v", runner.lastReq)
	}
}

func TestTieringRun_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing blog_id", `{"post_id":"p","title":"홍삼스틱"}`},
		{"missing post_id", `{"blog_id":"b","title":"홍삼스틱"}`},
		{"missing title and keyword", `{"blog_id":"b","post_id":"p"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTieringHandlers(&fakeRunner{}, testLogger())
			req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			h.Run(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
			var errResp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("failed to parse error response: %v", err)
			}
			if errResp.Error.Code != ErrCodeValidation {
				t.Errorf("expected %s, got %s", ErrCodeValidation, errResp.Error.Code)
			}
		})
	}
}

func TestTieringRun_InvalidJSON(t *testing.T) {
	h := NewTieringHandlers(&fakeRunner{}, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestTieringRun_MethodNotAllowed(t *testing.T) {
	h := NewTieringHandlers(&fakeRunner{}, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/v1/tiering/run", nil)
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestTieringRun_NoCandidates(t *testing.T) {
	h := NewTieringHandlers(&fakeRunner{err: pipeline.ErrNoCandidates}, testLogger())

	body := `{"blog_id":"b","post_id":"p","title":"2024"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeNoCandidates {
		t.Errorf("expected %s, got %s", ErrCodeNoCandidates, errResp.Error.Code)
	}
}

func TestTieringRun_CancelledRun(t *testing.T) {
	h := NewTieringHandlers(&fakeRunner{err: context.Canceled}, testLogger())

	body := `{"blog_id":"b","post_id":"p","title":"홍삼스틱"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}

func TestTieringRun_InternalError(t *testing.T) {
	h := NewTieringHandlers(&fakeRunner{err: errors.New("boom")}, testLogger())

	body := `{"blog_id":"b","post_id":"p","title":"홍삼스틱"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tiering/run", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.Run(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}
