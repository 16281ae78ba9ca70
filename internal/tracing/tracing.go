// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package tracing wires OpenTelemetry spans around training runs and
// pipeline stages.
//
// Spans are always created through the global tracer provider. Until Init
// installs an SDK provider that provider is a no-op, so instrumented code
// costs nothing when tracing is disabled.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span.
const TracerName = "github.com/tomtom215/basketrules"

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "basketrules"

// Exporters understood by Init.
const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config controls span export.
type Config struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter" validate:"oneof=stdout none"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// DefaultConfig returns tracing disabled with the stdout exporter selected.
func DefaultConfig() Config {
	return Config{Exporter: ExporterStdout, SampleRatio: 1}
}

// ShutdownFunc flushes and stops the tracer provider installed by Init.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs a global SDK tracer provider exporting to w (os.Stderr when
// nil). When tracing is disabled it installs nothing.
func Init(cfg Config, w io.Writer) (ShutdownFunc, error) {
	if !cfg.Enabled || cfg.Exporter == ExporterNone {
		return noopShutdown, nil
	}
	if cfg.Exporter != ExporterStdout {
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if w == nil {
		w = os.Stderr
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Start opens an internal span named "basketrules.<name>".
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "basketrules."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
