package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type clientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter) (*clientMetrics, error) {
	requests, err := meter.Int64Counter(
		"gamesmith.llm.requests",
		metric.WithDescription("Completion requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"gamesmith.llm.duration",
		metric.WithDescription("Completion request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	return &clientMetrics{requests: requests, duration: duration}, nil
}

func (m *clientMetrics) record(ctx context.Context, elapsed time.Duration, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	default:
		outcome = string(KindOf(err))
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	// Recorded on a fresh context so cancelled runs are still counted.
	ctx = context.WithoutCancel(ctx)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
