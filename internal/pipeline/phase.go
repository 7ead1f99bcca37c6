// Package pipeline sequences the clarify, plan and build phases and owns
// the state machine that keeps them in order.
package pipeline

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
)

// Phase is a pipeline state.
type Phase string

const (
	// PhaseClarifying gathers requirements interactively.
	PhaseClarifying Phase = "clarifying"

	// PhasePlanning turns the requirements into a structured plan.
	PhasePlanning Phase = "planning"

	// PhaseBuilding generates and persists the game files.
	PhaseBuilding Phase = "building"

	// PhaseDone is terminal success.
	PhaseDone Phase = "done"

	// PhaseFailed is terminal failure.
	PhaseFailed Phase = "failed"
)

// AllPhases returns the success path in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseClarifying, PhasePlanning, PhaseBuilding, PhaseDone}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// PhaseStatus is the completion status of one phase.
type PhaseStatus string

const (
	StatusInProgress PhaseStatus = "in_progress"
	StatusCompleted  PhaseStatus = "completed"
	StatusFailed     PhaseStatus = "failed"
)

// PhaseResult captures the outcome of a phase execution.
type PhaseResult struct {
	Phase       Phase       `json:"phase"`
	Status      PhaseStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Duration returns how long the phase ran.
func (r *PhaseResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// State is the complete state of one pipeline run. The values handed
// between phases are recorded as they are produced.
type State struct {
	RunID     string                   `json:"run_id"`
	Idea      string                   `json:"idea"`
	Phase     Phase                    `json:"current_phase"`
	Results   map[Phase]*PhaseResult   `json:"results"`
	Summary   game.RequirementsSummary `json:"summary,omitempty"`
	Plan      *game.Plan               `json:"plan,omitempty"`
	Files     *game.FileSet            `json:"-"`
	Failure   *Failure                 `json:"-"`
	StartedAt time.Time                `json:"started_at"`
}

// NewState creates a run state positioned at the clarifying phase.
func NewState(runID, idea string) *State {
	return &State{
		RunID:     runID,
		Idea:      idea,
		Phase:     PhaseClarifying,
		Results:   make(map[Phase]*PhaseResult),
		StartedAt: time.Now(),
	}
}

// CanTransition checks whether the state may move to next. Only the
// immediately following phase is allowed, and only once the current phase
// has completed. Any non-terminal phase may move to failed.
func (s *State) CanTransition(next Phase) error {
	if s.Phase.Terminal() {
		return fmt.Errorf("cannot transition from terminal phase %s", s.Phase)
	}
	if next == PhaseFailed {
		return nil
	}

	phases := AllPhases()
	currentIdx, nextIdx := -1, -1
	for i, p := range phases {
		if p == s.Phase {
			currentIdx = i
		}
		if p == next {
			nextIdx = i
		}
	}

	if currentIdx == -1 {
		return fmt.Errorf("invalid current phase: %s", s.Phase)
	}
	if nextIdx == -1 {
		return fmt.Errorf("invalid target phase: %s", next)
	}
	if nextIdx != currentIdx+1 {
		return fmt.Errorf("cannot transition from %s to %s: must follow sequential order", s.Phase, next)
	}

	result, ok := s.Results[s.Phase]
	if !ok || result.Status != StatusCompleted {
		return fmt.Errorf("cannot transition from %s: phase not completed", s.Phase)
	}
	return nil
}

// advance moves the state forward after checking the transition.
func (s *State) advance(next Phase) error {
	if err := s.CanTransition(next); err != nil {
		return err
	}
	s.Phase = next
	return nil
}

// begin records that the current phase has started.
func (s *State) begin() *PhaseResult {
	r := &PhaseResult{
		Phase:     s.Phase,
		Status:    StatusInProgress,
		StartedAt: time.Now(),
	}
	s.Results[s.Phase] = r
	return r
}

// complete marks the current phase as completed.
func (s *State) complete() {
	if r, ok := s.Results[s.Phase]; ok {
		r.Status = StatusCompleted
		r.CompletedAt = time.Now()
	}
}

// fail records f against the current phase and moves to failed. The
// failure's phase is filled in when the phase left it blank.
func (s *State) fail(f *Failure) {
	if f.Phase == "" {
		f.Phase = s.Phase
	}
	if r, ok := s.Results[s.Phase]; ok {
		r.Status = StatusFailed
		r.CompletedAt = time.Now()
		r.Error = f.Error()
	}
	s.Failure = f
	s.Phase = PhaseFailed
}

// Done reports whether the run finished successfully.
func (s *State) Done() bool {
	return s.Phase == PhaseDone
}
