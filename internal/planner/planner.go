// Package planner turns a requirements summary into a validated game plan.
package planner

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"go.uber.org/zap"
)

const (
	// DefaultTemperature is the sampling temperature for plan requests.
	DefaultTemperature = 0.4

	// MaxAttempts caps corrective retries.
	MaxAttempts = 5
)

// Planner implements pipeline.Planner.
type Planner struct {
	client       llm.Client
	systemPrompt string
	temperature  float64
	maxAttempts  int
	logger       *logging.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Planner) {
		p.temperature = t
	}
}

// WithMaxAttempts sets how many responses may be requested, clamped to
// 1..MaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(p *Planner) {
		p.maxAttempts = min(max(n, 1), MaxAttempts)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// New creates a planner. By default a single response is requested.
func New(client llm.Client, systemPrompt string, opts ...Option) *Planner {
	p := &Planner{
		client:       client,
		systemPrompt: systemPrompt,
		temperature:  DefaultTemperature,
		maxAttempts:  1,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan requests a plan for summary. An invalid response is answered with
// a corrective message while attempts remain; the last failure is returned
// otherwise.
func (p *Planner) Plan(ctx context.Context, summary game.RequirementsSummary) (*game.Plan, error) {
	t := llm.NewTranscript(p.systemPrompt)
	if err := t.AppendUser("Here are the clarified game requirements:\n\n" + summary.String()); err != nil {
		return nil, err
	}

	var last *pipeline.Failure
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		text, err := llm.Complete(ctx, p.client, t, llm.WithTemperature(p.temperature))
		if err != nil {
			return nil, pipeline.FromError(pipeline.PhasePlanning, err)
		}

		plan, fail := Parse(text)
		if fail == nil {
			p.logger.Info(ctx, "plan accepted",
				zap.String("title", plan.Title),
				zap.Int("attempt", attempt),
			)
			return plan, nil
		}

		last = fail
		p.logger.Warn(ctx, "plan rejected",
			zap.Int("attempt", attempt),
			zap.String("kind", string(fail.Kind)),
			zap.String("field", fail.Field),
			zap.String("detail", fail.Detail),
		)
		if attempt == p.maxAttempts {
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

// CorrectiveMessage is the follow-up sent after an invalid response.
func CorrectiveMessage(f *pipeline.Failure) string {
	return fmt.Sprintf("Your previous response was invalid because %s. Please resend the complete plan as a single JSON object.", reason(f))
}

func reason(f *pipeline.Failure) string {
	if f.Field != "" {
		return fmt.Sprintf("the field %q %s", f.Field, f.Detail)
	}
	return f.Detail
}

var _ pipeline.Planner = (*Planner)(nil)
