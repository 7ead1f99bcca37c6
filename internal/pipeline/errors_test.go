package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_Error(t *testing.T) {
	tests := []struct {
		name string
		f    *Failure
		want string
	}{
		{
			name: "field",
			f:    &Failure{Phase: PhasePlanning, Kind: KindPlanValidation, Field: "entities", Detail: "required field missing"},
			want: `planning: plan_validation_failure("entities"): required field missing`,
		},
		{
			name: "file",
			f:    &Failure{Phase: PhaseBuilding, Kind: KindFileBlockMissing, File: "style.css"},
			want: `building: file_block_missing("style.css")`,
		},
		{
			name: "cause",
			f:    &Failure{Phase: PhaseBuilding, Kind: KindPersistence, Err: errors.New("disk full")},
			want: "building: persistence_failure: disk full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Error())
		})
	}
}

func TestFailure_IsKindSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewFailure(PhaseBuilding, KindFileBlockDuplicated, "index.html"))
	assert.ErrorIs(t, err, ErrFileBlockDuplicated)
	assert.NotErrorIs(t, err, ErrFileBlockMissing)

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindFileBlockDuplicated, f.Kind)

	for kind, sentinel := range kindErrors {
		assert.ErrorIs(t, &Failure{Kind: kind}, sentinel, kind)
	}
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(PhasePlanning, nil))

	existing := &Failure{Kind: KindPlanParse}
	got := FromError(PhasePlanning, existing)
	assert.Same(t, existing, got)
	assert.Equal(t, PhasePlanning, got.Phase)

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"cancelled", fmt.Errorf("ask: %w", context.Canceled), KindCancelled},
		{"model", &llm.Error{Kind: llm.ErrorModelUnavailable, Err: errors.New("gone")}, KindModelUnavailable},
		{"unreachable", &llm.Error{Kind: llm.ErrorUnreachable, Err: errors.New("refused")}, KindTransport},
		{"transport", &llm.Error{Kind: llm.ErrorTransport, Err: errors.New("500")}, KindTransport},
		{"plain", errors.New("boom"), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FromError(PhaseClarifying, tt.err)
			assert.Equal(t, tt.want, f.Kind)
			assert.Equal(t, PhaseClarifying, f.Phase)
			assert.ErrorIs(t, f, tt.err)
		})
	}
}
