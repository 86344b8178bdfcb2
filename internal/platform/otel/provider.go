// Package otel installs the process-wide OpenTelemetry trace and metric
// providers for a service.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables read by Setup.
const (
	EnvEnabled  = "BRIDGE_OTEL_ENABLED"
	EnvEndpoint = "BRIDGE_OTEL_ENDPOINT"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// configuredEndpoint returns the OTLP HTTP endpoint, or "" when telemetry is
// off.
func configuredEndpoint() string {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvEnabled)), "false") {
		return ""
	}
	return strings.TrimSpace(os.Getenv(EnvEndpoint))
}

// signalURL appends the OTLP signal path to the collector base URL.
func signalURL(base string, signal string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", EnvEndpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s must be an absolute URL, got %q", EnvEndpoint, base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/" + signal
	return u.String(), nil
}

// Setup exports spans and the service's counters (bridge.interventions among
// them) to the OTLP HTTP collector at BRIDGE_OTEL_ENDPOINT, posting to its
// /v1/traces and /v1/metrics paths. Without an
// endpoint, or with BRIDGE_OTEL_ENABLED=false, the global providers stay
// no-op.
func Setup(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	endpoint := configuredEndpoint()
	if endpoint == "" {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noopShutdown, fmt.Errorf("build resource: %w", err)
	}

	tracesURL, err := signalURL(endpoint, "traces")
	if err != nil {
		return noopShutdown, err
	}
	metricsURL, err := signalURL(endpoint, "metrics")
	if err != nil {
		return noopShutdown, err
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(tracesURL))
	if err != nil {
		return noopShutdown, fmt.Errorf("trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(metricsURL))
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return noopShutdown, fmt.Errorf("metric exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}
