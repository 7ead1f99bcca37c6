package pipeline

import (
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
)

// Gate checks the value a completed phase hands forward before the next
// phase is entered.
type Gate interface {
	// Name returns the gate identifier.
	Name() string

	// Check returns a failure when the hand-off is unusable.
	Check(state *State) *Failure
}

// DefaultGates returns the hand-off gates keyed by the phase they guard.
func DefaultGates() map[Phase]Gate {
	return map[Phase]Gate{
		PhasePlanning: SummaryGate{},
		PhaseBuilding: PlanGate{},
		PhaseDone:     FileSetGate{},
	}
}

// SummaryGate requires a non-empty summary free of the sentinel token.
type SummaryGate struct{}

// Name returns the gate identifier.
func (SummaryGate) Name() string { return "requirements-summary" }

// Check validates the clarifier hand-off.
func (SummaryGate) Check(state *State) *Failure {
	text := strings.TrimSpace(state.Summary.String())
	if text == "" {
		return NewFailure(PhaseClarifying, KindEmptySummary, "clarifier produced no summary")
	}
	if strings.Contains(text, game.Sentinel) {
		return NewFailure(PhaseClarifying, KindEmptySummary, "summary still contains the sentinel")
	}
	return nil
}

// PlanGate requires a plan naming the supported framework.
type PlanGate struct{}

// Name returns the gate identifier.
func (PlanGate) Name() string { return "game-plan" }

// Check validates the planner hand-off.
func (PlanGate) Check(state *State) *Failure {
	if state.Plan == nil {
		return NewFailure(PhasePlanning, KindPlanValidation, "planner produced no plan")
	}
	if state.Plan.Framework != game.Framework {
		f := NewFailure(PhasePlanning, KindPlanValidation, "framework must be "+game.Framework)
		f.Field = "framework"
		return f
	}
	return nil
}

// FileSetGate requires every output file to have been produced and
// persisted.
type FileSetGate struct{}

// Name returns the gate identifier.
func (FileSetGate) Name() string { return "file-set" }

// Check validates the builder hand-off.
func (FileSetGate) Check(state *State) *Failure {
	if state.Files == nil {
		return NewFailure(PhaseBuilding, KindFileBlockMissing, "builder produced no files")
	}
	for _, f := range game.AllFiles() {
		if strings.TrimSpace(state.Files.Body(f)) == "" {
			fail := NewFailure(PhaseBuilding, KindFileBlockEmpty, "no content")
			fail.File = f.FileName()
			return fail
		}
		if state.Files.Path(f) == "" {
			fail := NewFailure(PhaseBuilding, KindPersistence, "file was not written")
			fail.File = f.FileName()
			return fail
		}
	}
	return nil
}
