package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/llm"
)

// Kind classifies why a phase failed.
type Kind string

const (
	KindTransport           Kind = "transport_failure"
	KindModelUnavailable    Kind = "model_unavailable"
	KindEmptySummary        Kind = "sentinel_missing_empty_summary"
	KindPlanParse           Kind = "plan_parse_failure"
	KindPlanValidation      Kind = "plan_validation_failure"
	KindFileBlockMissing    Kind = "file_block_missing"
	KindFileBlockDuplicated Kind = "file_block_duplicated"
	KindFileBlockEmpty      Kind = "file_block_empty"
	KindFileBlockMalformed  Kind = "file_block_malformed"
	KindPersistence         Kind = "persistence_failure"
	KindCancelled           Kind = "cancelled"
	KindInvalidInput        Kind = "invalid_input"
)

// Sentinel errors, one per Kind, so callers can use errors.Is.
var (
	ErrTransport           = errors.New("transport failure")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrEmptySummary        = errors.New("requirements summary empty")
	ErrPlanParse           = errors.New("plan parse failure")
	ErrPlanValidation      = errors.New("plan validation failure")
	ErrFileBlockMissing    = errors.New("file block missing")
	ErrFileBlockDuplicated = errors.New("file block duplicated")
	ErrFileBlockEmpty      = errors.New("file block empty")
	ErrFileBlockMalformed  = errors.New("file block malformed")
	ErrPersistence         = errors.New("persistence failure")
	ErrCancelled           = errors.New("cancelled")
	ErrInvalidInput        = errors.New("invalid input")
)

var kindErrors = map[Kind]error{
	KindTransport:           ErrTransport,
	KindModelUnavailable:    ErrModelUnavailable,
	KindEmptySummary:        ErrEmptySummary,
	KindPlanParse:           ErrPlanParse,
	KindPlanValidation:      ErrPlanValidation,
	KindFileBlockMissing:    ErrFileBlockMissing,
	KindFileBlockDuplicated: ErrFileBlockDuplicated,
	KindFileBlockEmpty:      ErrFileBlockEmpty,
	KindFileBlockMalformed:  ErrFileBlockMalformed,
	KindPersistence:         ErrPersistence,
	KindCancelled:           ErrCancelled,
	KindInvalidInput:        ErrInvalidInput,
}

// Failure is the single tagged error a phase hands back to the orchestrator.
type Failure struct {
	Phase  Phase
	Kind   Kind
	Field  string // plan field, for plan validation failures
	File   string // output file name, for file block and persistence failures
	Detail string
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	var sb strings.Builder
	if f.Phase != "" {
		sb.WriteString(string(f.Phase))
		sb.WriteString(": ")
	}
	sb.WriteString(string(f.Kind))
	switch {
	case f.Field != "":
		sb.WriteString(fmt.Sprintf("(%q)", f.Field))
	case f.File != "":
		sb.WriteString(fmt.Sprintf("(%q)", f.File))
	}
	if f.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Detail)
	}
	if f.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel error for the failure's kind.
func (f *Failure) Is(target error) bool {
	return kindErrors[f.Kind] == target
}

// NewFailure creates a failure of the given kind for a phase.
func NewFailure(phase Phase, kind Kind, detail string) *Failure {
	return &Failure{Phase: phase, Kind: kind, Detail: detail}
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// FromError classifies an error returned by a collaborator of phase. A
// *Failure passes through with its phase filled in; caller cancellation
// becomes KindCancelled and completion client errors map to transport or
// model failures.
func FromError(phase Phase, err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := AsFailure(err); ok {
		if f.Phase == "" {
			f.Phase = phase
		}
		return f
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Phase: phase, Kind: KindCancelled, Detail: "run cancelled", Err: err}
	}

	switch llm.KindOf(err) {
	case llm.ErrorModelUnavailable:
		return &Failure{Phase: phase, Kind: KindModelUnavailable, Err: err}
	case llm.ErrorUnreachable:
		return &Failure{Phase: phase, Kind: KindTransport, Detail: "completion service unreachable", Err: err}
	default:
		return &Failure{Phase: phase, Kind: KindTransport, Err: err}
	}
}
