package telemetry

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetup_ExposesPrometheusMetrics(t *testing.T) {
	ctx := context.Background()

	p, err := Setup(ctx, true, "v1.2.3", "cloud", discardLogger())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	if p.Handler() == nil {
		t.Fatal("enabled provider should expose a handler")
	}

	counter, err := p.Meter("test").Int64Counter("tts.requests")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("outcome", "ok")))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "tts_requests") {
		t.Errorf("metrics output missing tts_requests:\n%s", body)
	}
	if !strings.Contains(body, `outcome="ok"`) {
		t.Errorf("metrics output missing outcome label:\n%s", body)
	}
	if !strings.Contains(body, `service_name="ttsform"`) {
		t.Errorf("metrics output missing service resource:\n%s", body)
	}
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()

	p, err := Setup(ctx, false, "dev", "local", discardLogger())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	if p.Handler() != nil {
		t.Error("disabled provider should not expose a handler")
	}
	if p.Meter("test") == nil {
		t.Error("disabled provider should still hand out meters")
	}
}
