package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/gamesmith/internal/pipeline"

// Clarifier turns a game idea into a requirements summary.
type Clarifier interface {
	Clarify(ctx context.Context, idea string) (game.RequirementsSummary, error)
}

// Planner turns a requirements summary into a validated plan.
type Planner interface {
	Plan(ctx context.Context, summary game.RequirementsSummary) (*game.Plan, error)
}

// Builder generates and persists the game files for a plan.
type Builder interface {
	Build(ctx context.Context, plan *game.Plan) (*game.FileSet, error)
}

// PhaseProgress reports progress during a run.
type PhaseProgress struct {
	RunID      string      `json:"run_id"`
	Phase      Phase       `json:"phase"`
	Status     PhaseStatus `json:"status"`
	Message    string      `json:"message"`
	Percentage int         `json:"percentage"`
	Failure    *Failure    `json:"-"`
	State      *State      `json:"-"`
}

// ProgressCallback receives progress updates during a run.
type ProgressCallback func(progress PhaseProgress)

// Orchestrator runs the clarify, plan and build phases in strict order.
type Orchestrator struct {
	clarifier Clarifier
	planner   Planner
	builder   Builder
	gates     map[Phase]Gate

	logger           *logging.Logger
	tracer           trace.Tracer
	meter            metric.Meter
	metrics          *pipelineMetrics
	progressCallback ProgressCallback
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithTracer sets the tracer for run and phase spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithMeter sets the meter for pipeline metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *Orchestrator) {
		o.meter = m
	}
}

// WithGate replaces the hand-off gate checked before entering phase.
func WithGate(phase Phase, g Gate) Option {
	return func(o *Orchestrator) {
		o.gates[phase] = g
	}
}

// New creates an orchestrator over the three phases.
func New(c Clarifier, p Planner, b Builder, opts ...Option) (*Orchestrator, error) {
	if c == nil || p == nil || b == nil {
		return nil, fmt.Errorf("clarifier, planner and builder are required")
	}
	o := &Orchestrator{
		clarifier: c,
		planner:   p,
		builder:   b,
		gates:     DefaultGates(),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}

	m, err := newPipelineMetrics(o.meter)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// OnProgress sets the progress callback.
func (o *Orchestrator) OnProgress(callback ProgressCallback) {
	o.progressCallback = callback
}

type step struct {
	phase Phase
	run   func(ctx context.Context, state *State) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{PhaseClarifying, func(ctx context.Context, state *State) error {
			summary, err := o.clarifier.Clarify(ctx, state.Idea)
			if err != nil {
				return err
			}
			state.Summary = summary
			return nil
		}},
		{PhasePlanning, func(ctx context.Context, state *State) error {
			plan, err := o.planner.Plan(ctx, state.Summary)
			if err != nil {
				return err
			}
			state.Plan = plan
			return nil
		}},
		{PhaseBuilding, func(ctx context.Context, state *State) error {
			files, err := o.builder.Build(ctx, state.Plan)
			if err != nil {
				return err
			}
			state.Files = files
			return nil
		}},
	}
}

// Run executes one pipeline run for idea. The returned state is always
// non-nil. On failure the error is the run's *Failure and the state is in
// PhaseFailed with no later phase invoked.
func (o *Orchestrator) Run(ctx context.Context, idea string) (*State, error) {
	state := NewState(uuid.NewString(), idea)
	ctx = logging.WithRunID(ctx, state.RunID)

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", state.RunID),
	))
	defer span.End()

	o.logger.Info(ctx, "pipeline started", zap.Int("idea_chars", len(idea)))

	err := o.run(ctx, state)
	o.metrics.recordRun(ctx, state)
	span.SetAttributes(attribute.String("pipeline.result", string(state.Phase)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error(ctx, "pipeline failed", zap.Error(err))
		return state, err
	}

	o.logger.Info(ctx, "pipeline completed",
		zap.Duration("elapsed", time.Since(state.StartedAt)),
		zap.Strings("files", state.Files.Paths()),
	)
	return state, nil
}

func (o *Orchestrator) run(ctx context.Context, state *State) error {
	if strings.TrimSpace(state.Idea) == "" {
		state.begin()
		return o.fail(ctx, state, NewFailure(PhaseClarifying, KindInvalidInput, "game idea is empty"))
	}

	steps := o.steps()
	for i, s := range steps {
		if i > 0 {
			if err := o.handOff(ctx, state, s.phase); err != nil {
				return err
			}
		}
		if err := o.runPhase(ctx, state, s, i, len(steps)); err != nil {
			return err
		}
	}
	return o.handOff(ctx, state, PhaseDone)
}

// handOff checks the gate guarding next and moves the state there.
func (o *Orchestrator) handOff(ctx context.Context, state *State, next Phase) error {
	if g, ok := o.gates[next]; ok {
		if f := g.Check(state); f != nil {
			o.logger.Warn(ctx, "hand-off rejected", zap.String("gate", g.Name()), zap.String("next", string(next)))
			return o.fail(ctx, state, f)
		}
	}
	if err := state.advance(next); err != nil {
		return o.fail(ctx, state, &Failure{Kind: KindInvalidInput, Detail: "illegal transition", Err: err})
	}
	return nil
}

func (o *Orchestrator) runPhase(ctx context.Context, state *State, s step, index, total int) error {
	ctx = logging.WithPhase(ctx, string(s.phase))
	ctx, span := o.tracer.Start(ctx, "pipeline.phase."+string(s.phase), trace.WithAttributes(
		attribute.String("run.id", state.RunID),
		attribute.String("phase", string(s.phase)),
	))
	defer span.End()

	result := state.begin()
	o.reportProgress(PhaseProgress{
		RunID:      state.RunID,
		Phase:      s.phase,
		Status:     StatusInProgress,
		Message:    fmt.Sprintf("Starting phase: %s", s.phase),
		Percentage: (index * 100) / total,
		State:      state,
	})
	o.logger.Debug(ctx, "phase started")

	if err := ctx.Err(); err != nil {
		return o.failPhase(ctx, span, state, result, FromError(s.phase, err))
	}
	if err := s.run(ctx, state); err != nil {
		return o.failPhase(ctx, span, state, result, FromError(s.phase, err))
	}

	state.complete()
	o.metrics.recordPhase(ctx, s.phase, StatusCompleted, result.Duration())
	o.logger.Info(ctx, "phase completed", zap.Duration("elapsed", result.Duration()))
	o.reportProgress(PhaseProgress{
		RunID:      state.RunID,
		Phase:      s.phase,
		Status:     StatusCompleted,
		Message:    fmt.Sprintf("Completed phase: %s", s.phase),
		Percentage: ((index + 1) * 100) / total,
		State:      state,
	})
	return nil
}

func (o *Orchestrator) failPhase(ctx context.Context, span trace.Span, state *State, result *PhaseResult, f *Failure) error {
	span.RecordError(f)
	span.SetStatus(codes.Error, string(f.Kind))
	span.SetAttributes(attribute.String("failure.kind", string(f.Kind)))
	err := o.fail(ctx, state, f)
	o.metrics.recordPhase(ctx, result.Phase, StatusFailed, result.Duration())
	return err
}

// fail moves the state to PhaseFailed and reports the failure.
func (o *Orchestrator) fail(ctx context.Context, state *State, f *Failure) error {
	phase := state.Phase
	state.fail(f)
	o.logger.Warn(ctx, "phase failed",
		zap.String("failed_phase", string(f.Phase)),
		zap.String("kind", string(f.Kind)),
		zap.String("field", f.Field),
		zap.String("file", f.File),
	)
	o.reportProgress(PhaseProgress{
		RunID:   state.RunID,
		Phase:   phase,
		Status:  StatusFailed,
		Message: f.Error(),
		Failure: f,
		State:   state,
	})
	return f
}

func (o *Orchestrator) reportProgress(progress PhaseProgress) {
	if o.progressCallback != nil {
		o.progressCallback(progress)
	}
}
