// Package clarifier runs the interactive requirements conversation that
// opens every pipeline run.
//
// The model is asked about the user's idea until it replies with the
// sentinel token; the text after the sentinel becomes the requirements
// summary handed to the planner.
package clarifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"go.uber.org/zap"
)

const (
	// DefaultTemperature is the sampling temperature for clarifying turns.
	DefaultTemperature = 0.7

	// BlankAnswer replaces an empty reply from the user.
	BlankAnswer = "No preference, use your best judgment."
)

// Prompter shows the model's questions to the user and returns the answer.
// It should return context.Canceled or io.EOF when the user aborts.
type Prompter interface {
	Ask(ctx context.Context, questions string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, questions string) (string, error)

// Ask implements Prompter.
func (f PrompterFunc) Ask(ctx context.Context, questions string) (string, error) {
	return f(ctx, questions)
}

// Clarifier implements pipeline.Clarifier.
type Clarifier struct {
	client       llm.Client
	systemPrompt string
	prompter     Prompter
	temperature  float64
	logger       *logging.Logger
}

// Option configures a Clarifier.
type Option func(*Clarifier)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Clarifier) {
		c.temperature = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Clarifier) {
		c.logger = l
	}
}

// New creates a clarifier. The prompter is only needed by Clarify; callers
// driving a Session themselves may pass nil.
func New(client llm.Client, systemPrompt string, prompter Prompter, opts ...Option) *Clarifier {
	c := &Clarifier{
		client:       client,
		systemPrompt: systemPrompt,
		prompter:     prompter,
		temperature:  DefaultTemperature,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clarify runs the conversation to completion. There is no turn cap; the
// loop ends on the sentinel, a failure or cancellation.
func (c *Clarifier) Clarify(ctx context.Context, idea string) (game.RequirementsSummary, error) {
	if c.prompter == nil {
		return "", pipeline.NewFailure(pipeline.PhaseClarifying, pipeline.KindInvalidInput, "no prompter configured")
	}

	s := c.NewSession()
	turn, err := s.Start(ctx, idea)
	for err == nil && !turn.Done() {
		var answer string
		answer, err = c.prompter.Ask(ctx, turn.Questions)
		if err != nil {
			return "", promptFailure(err)
		}
		turn, err = s.Answer(ctx, answer)
	}
	if err != nil {
		return "", err
	}
	return turn.Summary, nil
}

func promptFailure(err error) *pipeline.Failure {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return &pipeline.Failure{
			Phase:  pipeline.PhaseClarifying,
			Kind:   pipeline.KindCancelled,
			Detail: "user ended the conversation",
			Err:    err,
		}
	}
	return &pipeline.Failure{
		Phase:  pipeline.PhaseClarifying,
		Kind:   pipeline.KindInvalidInput,
		Detail: "reading answer",
		Err:    err,
	}
}

// ExtractSummary looks for the sentinel in text. When found it returns the
// text after the first occurrence with any further sentinels removed,
// trimmed of surrounding whitespace.
func ExtractSummary(text string) (summary string, found bool) {
	idx := strings.Index(text, game.Sentinel)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(game.Sentinel):]
	rest = strings.ReplaceAll(rest, game.Sentinel, "")
	return strings.TrimSpace(rest), true
}

// Turn is the outcome of one exchange with the model.
type Turn struct {
	// Number counts completions in the session, starting at 1.
	Number int

	// Questions holds the model's questions while more input is needed.
	Questions string

	// Summary is set once the sentinel has been seen.
	Summary game.RequirementsSummary
}

// Done reports whether the conversation produced its summary.
func (t Turn) Done() bool {
	return t.Summary != ""
}

// Session is the step-wise form of the clarifying loop.
type Session struct {
	c          *Clarifier
	transcript *llm.Transcript
	turns      int
	done       bool
}

// NewSession creates an unstarted session.
func (c *Clarifier) NewSession() *Session {
	return &Session{
		c:          c,
		transcript: llm.NewTranscript(c.systemPrompt),
	}
}

// Start sends the idea as the first user message and returns the first
// turn.
func (s *Session) Start(ctx context.Context, idea string) (Turn, error) {
	if s.turns > 0 || s.transcript.Len() > 1 {
		return Turn{}, fmt.Errorf("clarifier session already started")
	}
	if strings.TrimSpace(idea) == "" {
		return Turn{}, pipeline.NewFailure(pipeline.PhaseClarifying, pipeline.KindInvalidInput, "game idea is empty")
	}
	if err := s.transcript.AppendUser("My game idea: " + idea); err != nil {
		return Turn{}, err
	}
	return s.exchange(ctx)
}

// Answer records the user's answer to the last questions and returns the
// next turn. A blank answer is replaced by BlankAnswer.
func (s *Session) Answer(ctx context.Context, answer string) (Turn, error) {
	switch {
	case s.done:
		return Turn{}, fmt.Errorf("clarifier session already finished")
	case s.turns == 0:
		return Turn{}, fmt.Errorf("clarifier session not started")
	}
	if strings.TrimSpace(answer) == "" {
		answer = BlankAnswer
	}
	if err := s.transcript.AppendUser(answer); err != nil {
		return Turn{}, err
	}
	return s.exchange(ctx)
}

// Transcript returns the conversation so far, including the system prompt.
func (s *Session) Transcript() []llm.Message {
	return s.transcript.Messages()
}

func (s *Session) exchange(ctx context.Context) (Turn, error) {
	if err := ctx.Err(); err != nil {
		return Turn{}, pipeline.FromError(pipeline.PhaseClarifying, err)
	}

	text, err := llm.Complete(ctx, s.c.client, s.transcript, llm.WithTemperature(s.c.temperature))
	if err != nil {
		return Turn{}, pipeline.FromError(pipeline.PhaseClarifying, err)
	}
	s.turns++
	if err := s.transcript.AppendAssistant(text); err != nil {
		return Turn{}, err
	}

	summary, found := ExtractSummary(text)
	if !found {
		s.c.logger.Debug(ctx, "clarifying questions received", zap.Int("turn", s.turns))
		return Turn{Number: s.turns, Questions: strings.TrimSpace(text)}, nil
	}

	s.done = true
	if summary == "" {
		return Turn{}, pipeline.NewFailure(pipeline.PhaseClarifying, pipeline.KindEmptySummary,
			"sentinel present but no summary followed it")
	}
	s.c.logger.Info(ctx, "requirements clarified",
		zap.Int("turns", s.turns),
		zap.Int("summary_chars", len(summary)),
	)
	return Turn{Number: s.turns, Summary: game.RequirementsSummary(summary)}, nil
}

var _ pipeline.Clarifier = (*Clarifier)(nil)
