package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// minBridgedSeverity keeps debug and trace records, which may carry prompt
// bodies, out of exported spans.
const minBridgedSeverity = log.SeverityInfo1

// spanLogProvider is a log.LoggerProvider that records each log record as
// an event on the recording span found in the emit context. Records emitted
// outside a recording span are dropped. Events leave the process with the
// span through the configured trace exporter.
type spanLogProvider struct {
	embedded.LoggerProvider
}

func (spanLogProvider) Logger(name string, _ ...log.LoggerOption) log.Logger {
	return spanLogger{scope: name}
}

type spanLogger struct {
	embedded.Logger
	scope string
}

// Enabled is called without a span context, so only severity is checked.
func (spanLogger) Enabled(_ context.Context, param log.EnabledParameters) bool {
	return param.Severity >= minBridgedSeverity
}

func (l spanLogger) Emit(ctx context.Context, r log.Record) {
	if r.Severity() < minBridgedSeverity {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, r.AttributesLen()+2)
	attrs = append(attrs,
		attribute.String("log.severity", r.SeverityText()),
		attribute.String("log.logger", l.scope),
	)
	r.WalkAttributes(func(kv log.KeyValue) bool {
		attrs = append(attrs, logAttribute(kv))
		return true
	})

	opts := []oteltrace.EventOption{oteltrace.WithAttributes(attrs...)}
	if ts := r.Timestamp(); !ts.IsZero() {
		opts = append(opts, oteltrace.WithTimestamp(ts))
	}
	span.AddEvent(r.Body().AsString(), opts...)
}

func logAttribute(kv log.KeyValue) attribute.KeyValue {
	switch kv.Value.Kind() {
	case log.KindBool:
		return attribute.Bool(kv.Key, kv.Value.AsBool())
	case log.KindInt64:
		return attribute.Int64(kv.Key, kv.Value.AsInt64())
	case log.KindFloat64:
		return attribute.Float64(kv.Key, kv.Value.AsFloat64())
	case log.KindString:
		return attribute.String(kv.Key, kv.Value.AsString())
	default:
		return attribute.String(kv.Key, kv.Value.String())
	}
}
