package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type mockClarifier struct{ mock.Mock }

func (m *mockClarifier) Clarify(ctx context.Context, idea string) (game.RequirementsSummary, error) {
	args := m.Called(ctx, idea)
	return args.Get(0).(game.RequirementsSummary), args.Error(1)
}

type mockPlanner struct{ mock.Mock }

func (m *mockPlanner) Plan(ctx context.Context, summary game.RequirementsSummary) (*game.Plan, error) {
	args := m.Called(ctx, summary)
	plan, _ := args.Get(0).(*game.Plan)
	return plan, args.Error(1)
}

type mockBuilder struct{ mock.Mock }

func (m *mockBuilder) Build(ctx context.Context, plan *game.Plan) (*game.FileSet, error) {
	args := m.Called(ctx, plan)
	files, _ := args.Get(0).(*game.FileSet)
	return files, args.Error(1)
}

func snakePlan() *game.Plan {
	return &game.Plan{
		Title:     "Snake",
		Framework: game.Framework,
		Mechanics: []string{"grow on food"},
		Entities:  []string{"snake", "food"},
	}
}

func snakeFiles(t *testing.T) *game.FileSet {
	t.Helper()
	fs, err := game.NewFileSet(map[game.LogicalFile]string{
		game.Markup: "<canvas id=\"game\"></canvas>",
		game.Style:  "canvas { border: 1px solid; }",
		game.Logic:  "const snake = [];",
	})
	require.NoError(t, err)
	for _, f := range game.AllFiles() {
		fs.SetPath(f, "/out/"+f.FileName())
	}
	return fs
}

type fixture struct {
	clarifier *mockClarifier
	planner   *mockPlanner
	builder   *mockBuilder
	orch      *Orchestrator
	log       *logging.TestLogger
	tel       *telemetry.TestTelemetry
	progress  []PhaseProgress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clarifier: &mockClarifier{},
		planner:   &mockPlanner{},
		builder:   &mockBuilder{},
		log:       logging.NewTestLogger(),
		tel:       telemetry.NewTestTelemetry(),
	}
	orch, err := New(f.clarifier, f.planner, f.builder,
		WithLogger(f.log.Logger),
		WithTracer(f.tel.Tracer("test")),
		WithMeter(f.tel.Meter("test")),
	)
	require.NoError(t, err)
	orch.OnProgress(func(p PhaseProgress) { f.progress = append(f.progress, p) })
	f.orch = orch
	return f
}

func TestRun_SnakeGameSucceeds(t *testing.T) {
	f := newFixture(t)
	summary := game.RequirementsSummary("A classic snake game with arrow keys.")
	plan := snakePlan()
	files := snakeFiles(t)

	f.clarifier.On("Clarify", mock.Anything, "a snake game").Return(summary, nil).Once()
	f.planner.On("Plan", mock.Anything, summary).Return(plan, nil).Once()
	f.builder.On("Build", mock.Anything, plan).Return(files, nil).Once()

	state, err := f.orch.Run(context.Background(), "a snake game")
	require.NoError(t, err)
	assert.True(t, state.Done())
	assert.Equal(t, PhaseDone, state.Phase)
	assert.Equal(t, summary, state.Summary)
	assert.Same(t, plan, state.Plan)
	for _, lf := range game.AllFiles() {
		assert.NotEmpty(t, state.Files.Body(lf))
	}
	for _, p := range []Phase{PhaseClarifying, PhasePlanning, PhaseBuilding} {
		require.Contains(t, state.Results, p)
		assert.Equal(t, StatusCompleted, state.Results[p].Status)
	}
	assert.NotEmpty(t, state.RunID)

	f.clarifier.AssertExpectations(t)
	f.planner.AssertExpectations(t)
	f.builder.AssertExpectations(t)

	require.Len(t, f.progress, 6)
	assert.Equal(t, 100, f.progress[5].Percentage)

	f.tel.AssertSpanExists(t, "pipeline.run")
	f.tel.AssertSpanExists(t, "pipeline.phase.clarifying")
	f.tel.AssertSpanExists(t, "pipeline.phase.planning")
	f.tel.AssertSpanExists(t, "pipeline.phase.building")
	f.tel.AssertSpanAttribute(t, "pipeline.run", "pipeline.result", "done")
	assert.Equal(t, int64(1), f.tel.Int64Sum(t, "gamesmith.pipeline.runs"))
	assert.Equal(t, int64(-1), f.tel.Int64Sum(t, "gamesmith.pipeline.failures"))
	f.log.AssertLogged(t, zapcore.InfoLevel, "pipeline completed")
	f.log.AssertNotLogged(t, zapcore.WarnLevel, "phase failed")
	f.log.AssertField(t, "pipeline started", "run.id", state.RunID)
}

func TestRun_PlanMissingEntitiesNeverBuilds(t *testing.T) {
	f := newFixture(t)
	summary := game.RequirementsSummary("A snake game.")
	failure := &Failure{Phase: PhasePlanning, Kind: KindPlanValidation, Field: "entities", Detail: "is missing"}

	f.clarifier.On("Clarify", mock.Anything, "a snake game").Return(summary, nil)
	f.planner.On("Plan", mock.Anything, summary).Return(nil, failure)

	state, err := f.orch.Run(context.Background(), "a snake game")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlanValidation)

	got, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "entities", got.Field)
	assert.Equal(t, PhasePlanning, got.Phase)

	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Same(t, failure, state.Failure)
	assert.Equal(t, StatusFailed, state.Results[PhasePlanning].Status)
	assert.NotContains(t, state.Results, PhaseBuilding)
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)

	last := f.progress[len(f.progress)-1]
	assert.Equal(t, StatusFailed, last.Status)
	assert.Equal(t, PhasePlanning, last.Phase)
	assert.Equal(t, int64(1), f.tel.Int64Sum(t, "gamesmith.pipeline.failures"))
}

func TestRun_EmptyIdea(t *testing.T) {
	f := newFixture(t)

	state, err := f.orch.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, PhaseClarifying, state.Failure.Phase)
	f.clarifier.AssertNotCalled(t, "Clarify", mock.Anything, mock.Anything)
}

func TestRun_TransportErrorClassified(t *testing.T) {
	f := newFixture(t)
	cause := &llm.Error{Kind: llm.ErrorUnreachable, Op: "complete", Err: errors.New("connection refused")}
	f.clarifier.On("Clarify", mock.Anything, "pong").Return(game.RequirementsSummary(""), cause)

	state, err := f.orch.Run(context.Background(), "pong")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, PhaseClarifying, state.Failure.Phase)
	f.planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything)
}

func TestRun_CancelledBetweenPhases(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary := game.RequirementsSummary("A snake game.")
	f.clarifier.On("Clarify", mock.Anything, "snake").
		Run(func(mock.Arguments) { cancel() }).
		Return(summary, nil)

	state, err := f.orch.Run(ctx, "snake")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, PhasePlanning, state.Failure.Phase)
	assert.Equal(t, StatusCompleted, state.Results[PhaseClarifying].Status)
	f.planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything)
}

func TestRun_CancelledInsidePhase(t *testing.T) {
	f := newFixture(t)
	f.clarifier.On("Clarify", mock.Anything, "snake").
		Return(game.RequirementsSummary(""), context.Canceled)

	state, err := f.orch.Run(context.Background(), "snake")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, PhaseClarifying, state.Failure.Phase)
}

func TestRun_SummaryGateRejectsEmptySummary(t *testing.T) {
	f := newFixture(t)
	f.clarifier.On("Clarify", mock.Anything, "snake").Return(game.RequirementsSummary("  "), nil)

	state, err := f.orch.Run(context.Background(), "snake")
	assert.ErrorIs(t, err, ErrEmptySummary)
	assert.Equal(t, PhaseFailed, state.Phase)
	f.planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything)
	f.log.AssertLogged(t, zapcore.WarnLevel, "hand-off rejected")
}

func TestRun_FileSetGateRequiresPersistence(t *testing.T) {
	f := newFixture(t)
	summary := game.RequirementsSummary("snake")
	plan := snakePlan()
	unsaved, err := game.NewFileSet(map[game.LogicalFile]string{
		game.Markup: "a", game.Style: "b", game.Logic: "c",
	})
	require.NoError(t, err)

	f.clarifier.On("Clarify", mock.Anything, "snake").Return(summary, nil)
	f.planner.On("Plan", mock.Anything, summary).Return(plan, nil)
	f.builder.On("Build", mock.Anything, plan).Return(unsaved, nil)

	state, err := f.orch.Run(context.Background(), "snake")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, PhaseBuilding, state.Failure.Phase)
}

func TestNew_RequiresPhases(t *testing.T) {
	_, err := New(nil, &mockPlanner{}, &mockBuilder{})
	assert.Error(t, err)
}
