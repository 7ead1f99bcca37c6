package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_CanTransition(t *testing.T) {
	s := NewState("run-1", "snake")
	assert.Equal(t, PhaseClarifying, s.Phase)

	assert.Error(t, s.CanTransition(PhasePlanning), "current phase not completed")
	assert.Error(t, s.CanTransition(PhaseBuilding), "skipping is rejected")
	assert.Error(t, s.CanTransition(PhaseClarifying), "re-entry is rejected")
	assert.NoError(t, s.CanTransition(PhaseFailed))

	s.begin()
	s.complete()
	require.NoError(t, s.CanTransition(PhasePlanning))
	assert.Error(t, s.CanTransition(PhaseBuilding))
	assert.Error(t, s.CanTransition(PhaseDone))
	assert.Error(t, s.CanTransition(Phase("bogus")))

	require.NoError(t, s.advance(PhasePlanning))
	assert.Error(t, s.CanTransition(PhaseClarifying), "no going back")
}

func TestState_FullPathAndTerminal(t *testing.T) {
	s := NewState("run-1", "snake")
	for _, next := range []Phase{PhasePlanning, PhaseBuilding, PhaseDone} {
		s.begin()
		s.complete()
		require.NoError(t, s.advance(next))
	}
	assert.True(t, s.Done())
	assert.True(t, s.Phase.Terminal())
	assert.Error(t, s.CanTransition(PhaseFailed), "terminal phases never move")
}

func TestState_Fail(t *testing.T) {
	s := NewState("run-1", "snake")
	s.begin()
	s.complete()
	require.NoError(t, s.advance(PhasePlanning))
	s.begin()

	f := &Failure{Kind: KindPlanParse, Detail: "no JSON object"}
	s.fail(f)

	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, PhasePlanning, f.Phase, "blank phase is filled in")
	assert.Equal(t, StatusFailed, s.Results[PhasePlanning].Status)
	assert.Contains(t, s.Results[PhasePlanning].Error, "plan_parse_failure")
	assert.False(t, s.Done())
	assert.Error(t, s.CanTransition(PhaseBuilding))
}

func TestPhaseResult_Duration(t *testing.T) {
	r := &PhaseResult{}
	assert.Zero(t, r.Duration())
}
