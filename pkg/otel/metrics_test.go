package otel_test

import (
	"context"
	"testing"

	"github.com/blacksky-llc/maurice-go/pkg/otel"
)

func TestInMemoryCounter(t *testing.T) {
	metrics := otel.NewInMemoryMetrics()
	ctx := context.Background()

	metrics.Counter("test.requests").Add(ctx, 1)
	metrics.Counter("test.requests").Add(ctx, 2, otel.NewAttr("status", "success"))

	if got := metrics.GetCounterValue("test.requests"); got != 3 {
		t.Fatalf("expected counter value 3, got %d", got)
	}
	if got := metrics.GetCounterValue("never.recorded"); got != 0 {
		t.Fatalf("expected 0 for unknown counter, got %d", got)
	}
}

func TestInMemoryHistogram(t *testing.T) {
	metrics := otel.NewInMemoryMetrics()
	ctx := context.Background()

	metrics.Histogram("test.duration").Record(ctx, 12.5)
	metrics.Histogram("test.duration").Record(ctx, 7.5)

	values := metrics.GetHistogramValues("test.duration")
	if len(values) != 2 {
		t.Fatalf("expected 2 recorded values, got %d", len(values))
	}
	if values[0] != 12.5 || values[1] != 7.5 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestInMemoryGauge(t *testing.T) {
	metrics := otel.NewInMemoryMetrics()
	ctx := context.Background()

	gauge := metrics.Gauge("test.level")
	gauge.Set(ctx, 5)
	gauge.Set(ctx, 2)

	mem, ok := metrics.Gauge("test.level").(*otel.InMemoryGauge)
	if !ok {
		t.Fatalf("expected in-memory gauge")
	}
	if mem.Value() != 2 {
		t.Fatalf("expected last set value 2, got %v", mem.Value())
	}
}

func TestNoopMetricsDoesNotPanic(t *testing.T) {
	metrics := otel.NewNoopMetrics()
	ctx := context.Background()

	metrics.Counter("x").Add(ctx, 1)
	metrics.Histogram("x").Record(ctx, 1)
	metrics.Gauge("x").Set(ctx, 1)
}
