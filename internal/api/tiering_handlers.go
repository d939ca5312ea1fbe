package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwkoo/keytier/internal/middleware"
	"github.com/jwkoo/keytier/internal/pipeline"
)

// TieringHandlers exposes the tiering pipeline over HTTP.
type TieringHandlers struct {
	runner TieringRunner
	logger *slog.Logger
}

// TieringRunner runs one tiering request. Satisfied by *pipeline.Pipeline.
type TieringRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// NewTieringHandlers creates a new tiering handler.
func NewTieringHandlers(runner TieringRunner, logger *slog.Logger) *TieringHandlers {
	return &TieringHandlers{
		runner: runner,
		logger: logger,
	}
}

// RunRequest is the JSON body of POST /v1/tiering/run.
type RunRequest struct {
	JobID   string `json:"job_id"`
	BlogID  string `json:"blog_id"`
	PostID  string `json:"post_id"`
	Title   string `json:"title"`
	Keyword string `json:"keyword"`
}

// validate returns a human-readable problem description, empty when valid.
func (req *RunRequest) validate() string {
	if strings.TrimSpace(req.BlogID) == "" {
		return "blog_id is required"
	}
	if strings.TrimSpace(req.PostID) == "" {
		return "post_id is required"
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Keyword) == "" {
		return "at least one of title or keyword is required"
	}
	return ""
}

// Run handles POST /v1/tiering/run: runs the full tiering pipeline for one
// post and returns the tier list.
func (h *TieringHandlers) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if problem := req.validate(); problem != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, problem)
		return
	}

	result, err := h.runner.Run(r.Context(), pipeline.Request{
		JobID:   req.JobID,
		BlogID:  req.BlogID,
		PostID:  req.PostID,
		Title:   req.Title,
		Keyword: req.Keyword,
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoCandidates):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNoCandidates)
			WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeNoCandidates,
				"The title and keyword produced no tierable candidates")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeInternal,
				"The tiering run was cancelled")
		default:
			h.logger.Error("tiering run failed", "job_id", req.JobID, "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal,
				"Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode tiering result", "error", err)
	}
}
