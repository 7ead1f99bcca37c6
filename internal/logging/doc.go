// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug) for prompt and response bodies
//   - Console output on stderr, optional OpenTelemetry bridge
//   - Automatic context field injection (trace_id, run.id, phase)
//   - Field name and value pattern redaction
//   - Optional per-level sampling
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithPhase(ctx, "planning")
//	logger.Info(ctx, "plan accepted", zap.String("title", plan.Title))
//
// Stdout belongs to the interactive conversation, so console logs default
// to stderr at warn level. Raise verbosity with --log-level or LOGGING_LEVEL.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
package logging
