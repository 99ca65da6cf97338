package tts

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type handlerMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHandlerMetrics(meter metric.Meter) (*handlerMetrics, error) {
	requests, err := meter.Int64Counter("tts.requests",
		metric.WithDescription("Synthesis requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("tts.synthesis.duration",
		metric.WithDescription("Time spent inside the synthesizer"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &handlerMetrics{requests: requests, duration: duration}, nil
}

func (m *handlerMetrics) recordRequest(ctx context.Context, res Result) {
	if m == nil {
		return
	}

	outcome := "ok"
	if !res.OK() {
		outcome = "failure"
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", Reason(res.Err)),
	))
}

func (m *handlerMetrics) recordDuration(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}

	m.duration.Record(ctx, float64(d)/float64(time.Millisecond))
}
