package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/fyrsmithlabs/gamesmith/internal/llm"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// including Ollama's /v1 API.
type OpenAIClient struct {
	model   llms.Model
	config  Config
	limiter *rate.Limiter
	logger  *logging.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *clientMetrics
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = l
	}
}

// WithTracer sets the tracer used for llm.complete spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *OpenAIClient) {
		c.tracer = t
	}
}

// WithMeter sets the meter used for request metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *OpenAIClient) {
		c.meter = m
	}
}

// WithLLM replaces the langchaingo backend.
func WithLLM(m llms.Model) Option {
	return func(c *OpenAIClient) {
		c.model = m
	}
}

// NewOpenAIClient creates a completion client for cfg.
func NewOpenAIClient(cfg Config, opts ...Option) (*OpenAIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid llm config: %w", err)
	}

	c := &OpenAIClient{
		config: cfg,
		logger: logging.NewNop(),
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.model == nil {
		// langchaingo requires a token even when the server ignores it.
		token := cfg.APIKey
		if token == "" {
			token = "placeholder"
		}
		m, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
			openai.WithToken(token),
		)
		if err != nil {
			return nil, fmt.Errorf("creating OpenAI client: %w", err)
		}
		c.model = m
	}

	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	m, err := newClientMetrics(c.meter)
	if err != nil {
		return nil, err
	}
	c.metrics = m
	return c, nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, turns []Message, opts ...CallOption) (string, error) {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", c.config.Model),
		attribute.Int("llm.turns", len(turns)),
		attribute.Float64("llm.temperature", o.Temperature),
		attribute.Int("llm.max_tokens", o.MaxTokens),
	))
	defer span.End()

	c.logger.Debug(ctx, "completion request",
		zap.String("model", c.config.Model),
		zap.Int("turns", len(turns)),
		zap.Float64("temperature", o.Temperature),
	)

	start := time.Now()
	text, err := c.complete(ctx, systemPrompt, turns, o)
	elapsed := time.Since(start)
	c.metrics.record(ctx, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn(ctx, "completion failed",
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}

	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	c.logger.Debug(ctx, "completion received",
		zap.Duration("elapsed", elapsed),
		zap.Int("chars", len(text)),
	)
	c.logger.Trace(ctx, "completion text", zap.String("text", text))
	return text, nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt string, turns []Message, o CallOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: ErrorTransport, Op: "complete", Err: fmt.Errorf("rate limiter: %w", err)}
	}

	if c.config.ScrubSecrets {
		turns = scrubTurns(turns)
	}

	content := make([]llms.MessageContent, 0, len(turns)+1)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	for _, m := range turns {
		role := schema.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(o.Temperature)}
	if o.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.MaxTokens))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(reqCtx, content, callOpts...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classify("complete", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &Error{Kind: ErrorTransport, Op: "complete", Err: fmt.Errorf("response has no choices")}
	}
	return resp.Choices[0].Content, nil
}

var _ Client = (*OpenAIClient)(nil)
