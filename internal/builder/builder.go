// Package builder asks the model for the game's source files, extracts
// them from the delimited response and persists them.
package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/gamesmith/internal/artifact"
	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"go.uber.org/zap"
)

const (
	// DefaultTemperature is the sampling temperature for file generation.
	DefaultTemperature = 0.3

	// DefaultMaxTokens caps the generated response.
	DefaultMaxTokens = 4096

	// MaxAttempts caps corrective retries.
	MaxAttempts = 5
)

// Writer persists a complete file set and records where each file went.
type Writer interface {
	Write(ctx context.Context, fs *game.FileSet) error
}

// Builder implements pipeline.Builder.
type Builder struct {
	client       llm.Client
	systemPrompt string
	writer       Writer
	temperature  float64
	maxTokens    int
	maxAttempts  int
	logger       *logging.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(b *Builder) {
		b.temperature = t
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int) Option {
	return func(b *Builder) {
		b.maxTokens = n
	}
}

// WithMaxAttempts sets how many responses may be requested, clamped to
// 1..MaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(b *Builder) {
		b.maxAttempts = min(max(n, 1), MaxAttempts)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// New creates a builder writing through w.
func New(client llm.Client, systemPrompt string, w Writer, opts ...Option) *Builder {
	b := &Builder{
		client:       client,
		systemPrompt: systemPrompt,
		writer:       w,
		temperature:  DefaultTemperature,
		maxTokens:    DefaultMaxTokens,
		maxAttempts:  1,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build generates the three game files for plan and writes them. Nothing
// is written unless all three blocks are present and non-empty.
func (b *Builder) Build(ctx context.Context, plan *game.Plan) (*game.FileSet, error) {
	if plan == nil {
		return nil, pipeline.NewFailure(pipeline.PhaseBuilding, pipeline.KindInvalidInput, "no plan")
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}

	t := llm.NewTranscript(b.systemPrompt)
	if err := t.AppendUser("Here is the game plan. Generate the three files:\n\n" + string(planJSON)); err != nil {
		return nil, err
	}

	ext, err := b.generate(ctx, t)
	if err != nil {
		return nil, err
	}
	for _, name := range ext.Unknown {
		b.logger.Warn(ctx, "ignoring unexpected file block", zap.String("file", name))
	}

	fs, err := game.NewFileSet(ext.Bodies)
	if err != nil {
		return nil, pipeline.NewFailure(pipeline.PhaseBuilding, pipeline.KindFileBlockEmpty, err.Error())
	}

	if err := b.writer.Write(ctx, fs); err != nil {
		return nil, persistenceFailure(err)
	}
	b.logger.Info(ctx, "game files written", zap.Strings("paths", fs.Paths()))
	return fs, nil
}

func (b *Builder) generate(ctx context.Context, t *llm.Transcript) (*Extraction, error) {
	var last *pipeline.Failure
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		text, err := llm.Complete(ctx, b.client, t,
			llm.WithTemperature(b.temperature),
			llm.WithMaxTokens(b.maxTokens),
		)
		if err != nil {
			return nil, pipeline.FromError(pipeline.PhaseBuilding, err)
		}

		ext, fail := Extract(text)
		if fail == nil {
			return ext, nil
		}

		last = fail
		b.logger.Warn(ctx, "file blocks rejected",
			zap.Int("attempt", attempt),
			zap.String("kind", string(fail.Kind)),
			zap.String("file", fail.File),
			zap.String("detail", fail.Detail),
		)
		if attempt == b.maxAttempts {
			break
		}
		if err := t.AppendAssistant(text); err != nil {
			return nil, err
		}
		if err := t.AppendUser(CorrectiveMessage(fail)); err != nil {
			return nil, err
		}
	}
	return nil, last
}

// CorrectiveMessage is the follow-up sent after an unusable response.
func CorrectiveMessage(f *pipeline.Failure) string {
	reason := f.Detail
	if f.File != "" {
		reason = fmt.Sprintf("the %s block %s", f.File, f.Detail)
	}
	return fmt.Sprintf("Your previous response was invalid because %s. Please resend all three files, each between a ===FILE: <name>=== line and an ===END FILE=== line.", reason)
}

func persistenceFailure(err error) error {
	if _, ok := pipeline.AsFailure(err); ok || errors.Is(err, context.Canceled) {
		return pipeline.FromError(pipeline.PhaseBuilding, err)
	}
	f := &pipeline.Failure{
		Phase: pipeline.PhaseBuilding,
		Kind:  pipeline.KindPersistence,
		Err:   err,
	}
	if we, ok := artifact.IsWriteError(err); ok {
		f.File = we.File
		f.Detail = "writing " + we.Path
		f.Err = we.Err
	}
	return f
}

var _ pipeline.Builder = (*Builder)(nil)
