package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/middleware"
)

// ConfigHandlers manages the algorithm configuration endpoints.
type ConfigHandlers struct {
	resolver *algoconfig.Resolver
	store    algoconfig.Store
	logger   *slog.Logger
}

// NewConfigHandlers creates a new config handler.
func NewConfigHandlers(resolver *algoconfig.Resolver, store algoconfig.Store, logger *slog.Logger) *ConfigHandlers {
	return &ConfigHandlers{
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

// Get handles GET /v1/algo-config: returns the currently active primary
// configuration (cached view, up to one TTL stale).
// Put handles PUT /v1/algo-config: validates and persists a new primary
// configuration, then drops the cache so the next run picks it up.
func (h *ConfigHandlers) GetOrPut(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *ConfigHandlers) get(w http.ResponseWriter, r *http.Request) {
	cfg := h.resolver.Get(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Error("failed to encode algo config", "error", err)
	}
}

func (h *ConfigHandlers) put(w http.ResponseWriter, r *http.Request) {
	var cfg algoconfig.AlgoConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		*r = *r.WithContext(middleware.SetErrorCode(r.Context(), ErrCodeInvalidConfig))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"error":      ErrorDetail{Code: ErrCodeInvalidConfig, Message: "Configuration failed validation"},
			"violations": msgs,
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			h.logger.Error("failed to encode validation response", "error", err)
		}
		return
	}

	if err := h.store.Save(r.Context(), algoconfig.KeyPrimary, &cfg); err != nil {
		h.logger.Error("failed to save algo config", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		return
	}
	h.resolver.Invalidate()

	h.logger.Info("algo config updated")
	w.WriteHeader(http.StatusNoContent)
}

// Invalidate handles POST /v1/algo-config/invalidate: drops the cached
// configuration so the next run reloads from the store immediately.
func (h *ConfigHandlers) Invalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	h.resolver.Invalidate()
	h.logger.Info("algo config cache invalidated")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"success": true}); err != nil {
		h.logger.Error("failed to encode invalidate response", "error", err)
	}
}
