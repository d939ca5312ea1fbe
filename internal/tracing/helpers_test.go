package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
	}{
		{"query with table", "keyword_volume_cache", DBOperationQuery},
		{"insert with table", "post_keyword_tiers", DBOperationInsert},
		{"delete with table", "keyword_volume_cache", DBOperationDelete},
		{"exec without table", "", DBOperationExec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			newCtx, endSpan := StartDBSpan(ctx, tt.table, tt.operation)
			if newCtx == nil {
				t.Fatal("expected non-nil context")
			}
			if endSpan == nil {
				t.Fatal("expected non-nil end function")
			}

			// Ending with nil error must not panic.
			endSpan(nil)
		})
	}
}

func TestStartDBSpan_WithError(t *testing.T) {
	ctx := context.Background()

	_, endSpan := StartDBSpan(ctx, "algo_config", DBOperationQuery)
	endSpan(errors.New("connection refused"))
}

func TestStartStageSpan(t *testing.T) {
	stages := []string{
		"extract",
		"enrich_unigrams",
		"gate",
		"select_tiers",
		"verify_ranks",
		"persist",
	}

	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			ctx := context.Background()

			newCtx, endSpan := StartStageSpan(ctx, "run-123", stage)
			if newCtx == nil {
				t.Fatal("expected non-nil context")
			}
			if endSpan == nil {
				t.Fatal("expected non-nil end function")
			}

			endSpan(nil)
		})
	}
}

func TestStartStageSpan_WithError(t *testing.T) {
	ctx := context.Background()

	_, endSpan := StartStageSpan(ctx, "run-456", "enrich_bigrams")
	endSpan(errors.New("volume source unavailable"))
}

func TestAddEvent_NoActiveSpan(t *testing.T) {
	// Must be a no-op without a recording span.
	ctx := context.Background()
	AddEvent(ctx, "cache_hit", attribute.Int("keys", 3))
}

func TestAddEvent_WithSpan(t *testing.T) {
	ctx, endSpan := StartStageSpan(context.Background(), "run-789", "classify")
	defer endSpan(nil)

	AddEvent(ctx, "mode_classified", attribute.String("mode", "partial"))
}
