package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry, down to TraceLevel, for assertions.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger creates a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		logs:   logs,
	}
}

// Entries returns the recorded entries whose message contains msg.
func (t *TestLogger) Entries(msg string) []observer.LoggedEntry {
	return t.logs.FilterMessageSnippet(msg).All()
}

func (t *TestLogger) logged(level zapcore.Level, msg string) bool {
	for _, e := range t.Entries(msg) {
		if e.Level == level {
			return true
		}
	}
	return false
}

// AssertLogged fails tb unless an entry at level contains msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if !t.logged(level, msg) {
		tb.Errorf("no %s entry containing %q; recorded: %s", level, msg, t.summary())
	}
}

// AssertNotLogged fails tb if an entry at level contains msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if t.logged(level, msg) {
		tb.Errorf("unexpected %s entry containing %q", level, msg)
	}
}

// AssertField fails tb unless an entry containing msg carries key=expected.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	for _, e := range t.Entries(msg) {
		if v, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(v, expected) {
			return
		}
	}
	tb.Errorf("no entry containing %q with %s=%v; recorded: %s", msg, key, expected, t.summary())
}

func (t *TestLogger) summary() string {
	all := t.logs.All()
	lines := make([]string, 0, len(all))
	for _, e := range all {
		lines = append(lines, e.Level.String()+" "+e.Message)
	}
	return "[" + strings.Join(lines, "; ") + "]"
}
