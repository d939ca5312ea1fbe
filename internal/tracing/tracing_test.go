package tracing

import (
	"context"
	"testing"
	"time"
)

func keytierConfig(exporterType string, rate float64) Config {
	return Config{
		ServiceName:  "keytier-api",
		Enabled:      true,
		Environment:  "test",
		ExporterType: exporterType,
		SamplingRate: rate,
		InsecureMode: true,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{
		ServiceName: "keytier-api",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider == nil {
		t.Fatal("expected provider to be non-nil")
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
}

func TestNewProvider_MissingServiceName(t *testing.T) {
	_, err := NewProvider(Config{
		Enabled:      true,
		SamplingRate: 0.1,
	})
	if err == nil {
		t.Fatal("expected error for missing service name")
	}
}

func TestNewProvider_InvalidSamplingRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{"negative", -0.1},
		{"greater than 1", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(keytierConfig("otlp-http", tt.rate)); err == nil {
				t.Fatalf("expected error for sampling rate %f", tt.rate)
			}
		})
	}
}

func TestNewProvider_ValidConfig(t *testing.T) {
	tests := []struct {
		name         string
		exporterType string
		samplingRate float64
		endpoint     string
	}{
		{
			name:         "otlp-http with the production default sampling",
			exporterType: "otlp-http",
			samplingRate: 0.1,
			endpoint:     "localhost:4318",
		},
		{
			name:         "otlp-grpc with full sampling",
			exporterType: "otlp-grpc",
			samplingRate: 1.0,
			endpoint:     "localhost:4317",
		},
		{
			name:         "default exporter with sampling off",
			exporterType: "",
			samplingRate: 0.0,
			endpoint:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := keytierConfig(tt.exporterType, tt.samplingRate)
			cfg.OTLPEndpoint = tt.endpoint

			provider, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !provider.IsEnabled() {
				t.Error("expected tracing to be enabled")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(ctx); err != nil {
				t.Errorf("unexpected shutdown error: %v", err)
			}
		})
	}
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	if _, err := NewProvider(keytierConfig("jaeger-thrift", 0.1)); err == nil {
		t.Fatal("expected error for unsupported exporter type")
	}
}

func TestProvider_Tracer(t *testing.T) {
	provider, err := NewProvider(keytierConfig("otlp-http", 1.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	tracer := provider.Tracer("keytier/pipeline")
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}

	// The tracer must produce usable spans in the shape the pipeline emits.
	ctx := context.Background()
	_, span := tracer.Start(ctx, "tiering.extract")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	span.End()
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	provider := &Provider{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown on a never-enabled provider is a no-op.
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("unexpected error on shutdown with nil tp: %v", err)
	}
}
