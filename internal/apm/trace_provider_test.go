package apm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"zipkin", ZipkinProvider},
		{"Honeycomb", HoneycombProvider},
		{"newrelic", NewRelicProvider},
		{"otlp", OTLPProvider},
		{" stdout ", ConsoleProvider},
		{"", EmptyProvider},
		{"datadog", EmptyProvider},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseProvider(tt.in); got != tt.want {
				t.Errorf("ParseProvider(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewTraceProvider_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zipkin without endpoint", Config{Provider: ZipkinProvider}},
		{"otlp without endpoint", Config{Provider: OTLPProvider}},
		{"honeycomb without team header", Config{Provider: HoneycombProvider, Endpoint: "https://api.honeycomb.io"}},
		{"unknown", Config{Provider: Provider("XRAY")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTraceProvider(context.Background(), tt.cfg, logger.NewNop()); err == nil {
				t.Errorf("NewTraceProvider(%+v) error = nil, want error", tt.cfg)
			}
		})
	}
}

func TestNewTraceProvider_Empty(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Config{Provider: EmptyProvider}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTraceProvider() error = %v", err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestNewTraceProvider_ConsoleExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		ServiceName: "dexarb-test",
		Provider:    ConsoleProvider,
		Output:      &buf,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTraceProvider() error = %v", err)
	}

	_, span := otel.Tracer("apm-test").Start(context.Background(), "scan WETH/USDC")
	span.End()

	if err := tp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !strings.Contains(buf.String(), "scan WETH/USDC") {
		t.Errorf("console output missing span name: %s", buf.String())
	}
}
