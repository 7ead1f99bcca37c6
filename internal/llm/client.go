// Package llm is the completion client every pipeline phase talks to.
//
// The pipeline depends only on the Client interface. The default
// implementation speaks the OpenAI chat completions protocol through
// langchaingo, which also covers Ollama's OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Client sends a system prompt plus transcript turns to a completion service
// and returns the assistant's text.
type Client interface {
	Complete(ctx context.Context, systemPrompt string, turns []Message, opts ...CallOption) (string, error)
}

// Complete is a convenience wrapper sending a whole transcript.
func Complete(ctx context.Context, c Client, t *Transcript, opts ...CallOption) (string, error) {
	return c.Complete(ctx, t.System(), t.Turns(), opts...)
}

// CallOptions tune a single completion request.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens caps the response length. Zero leaves the server default.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// ErrorKind classifies completion failures.
type ErrorKind string

const (
	ErrorUnreachable      ErrorKind = "unreachable"
	ErrorModelUnavailable ErrorKind = "model_unavailable"
	ErrorTransport        ErrorKind = "transport"
)

// Error is returned by clients for any failure other than caller
// cancellation, which is returned as the context error itself.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, defaulting to transport.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorTransport
}

// classify maps a raw client error to an *Error. Caller cancellation passes
// through untouched so phases can report it as a cancellation.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorTransport, Op: op, Err: fmt.Errorf("request timed out: %w", err)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: ErrorTransport, Op: op, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: ErrorUnreachable, Op: op, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: ErrorUnreachable, Op: op, Err: err}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return &Error{Kind: ErrorUnreachable, Op: op, Err: err}
	}
	if strings.Contains(msg, "model") &&
		(strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist") || strings.Contains(msg, "404")) {
		return &Error{Kind: ErrorModelUnavailable, Op: op, Err: err}
	}
	return &Error{Kind: ErrorTransport, Op: op, Err: err}
}

// Config configures the default client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute float64
	ScrubSecrets      bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute cannot be negative")
	}
	return nil
}
