package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type pipelineMetrics struct {
	runs          metric.Int64Counter
	phaseDuration metric.Float64Histogram
	failures      metric.Int64Counter
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	runs, err := meter.Int64Counter(
		"gamesmith.pipeline.runs",
		metric.WithDescription("Pipeline runs by final phase"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline run counter: %w", err)
	}

	phaseDuration, err := meter.Float64Histogram(
		"gamesmith.pipeline.phase.duration",
		metric.WithDescription("Duration of each pipeline phase"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create phase duration histogram: %w", err)
	}

	failures, err := meter.Int64Counter(
		"gamesmith.pipeline.failures",
		metric.WithDescription("Pipeline failures by phase and kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline failure counter: %w", err)
	}

	return &pipelineMetrics{runs: runs, phaseDuration: phaseDuration, failures: failures}, nil
}

func (m *pipelineMetrics) recordPhase(ctx context.Context, phase Phase, status PhaseStatus, elapsed time.Duration) {
	m.phaseDuration.Record(context.WithoutCancel(ctx), elapsed.Seconds(), metric.WithAttributes(
		attribute.String("phase", string(phase)),
		attribute.String("status", string(status)),
	))
}

func (m *pipelineMetrics) recordRun(ctx context.Context, state *State) {
	ctx = context.WithoutCancel(ctx)
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(state.Phase))))
	if state.Failure != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("phase", string(state.Failure.Phase)),
			attribute.String("kind", string(state.Failure.Kind)),
		))
	}
}
