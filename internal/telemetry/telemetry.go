// Package telemetry sets up the OpenTelemetry meter provider and its
// Prometheus scrape handler.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

const ServiceName = "ttsform"

// Provider owns the meter provider. Handler is nil when metrics are
// disabled or the exporter could not be created.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	handler       http.Handler
}

// Setup builds a meter provider for the given backend. When enabled, it is
// backed by a Prometheus exporter on a private registry and installed as
// the global provider.
func Setup(ctx context.Context, enabled bool, version, backend string, logger *slog.Logger) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
			attribute.String("tts.backend", backend),
		),
	)
	if err != nil {
		return nil, err
	}

	if !enabled {
		return &Provider{meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))}, nil
	}

	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		logger.Warn("failed to initialize prometheus exporter", slog.String("error", err.Error()))
		return &Provider{meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))}, nil
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("telemetry initialized", slog.String("exporter", "prometheus"))

	return &Provider{
		meterProvider: mp,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Meter returns a named meter from this provider.
func (p *Provider) Meter(name string) metric.Meter {
	return p.meterProvider.Meter(name)
}

// Handler serves the Prometheus exposition format, or nil.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meterProvider.Shutdown(ctx)
}
