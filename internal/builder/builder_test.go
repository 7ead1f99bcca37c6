package builder

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/artifact"
	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/llm/llmtest"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Write(ctx context.Context, fs *game.FileSet) error {
	return m.Called(ctx, fs).Error(0)
}

func testPlan() *game.Plan {
	return &game.Plan{
		Title:     "Snake",
		Framework: game.Framework,
		Mechanics: []string{"grow"},
		Entities:  []string{"snake", "food"},
		FileStructure: map[string]string{
			"index.html": "page", "style.css": "styles", "game.js": "logic",
		},
	}
}

func TestBuild_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	client := llmtest.NewScripted(threeFiles)
	b := New(client, "builder prompt", artifact.NewStore(dir))

	fs, err := b.Build(context.Background(), testPlan())
	require.NoError(t, err)

	for _, f := range game.AllFiles() {
		path := filepath.Join(dir, f.FileName())
		assert.Equal(t, path, fs.Path(f))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, fs.Body(f)+"\n", string(data))
	}

	req := client.Requests()
	require.Len(t, req, 1)
	assert.Equal(t, "builder prompt", req[0].System)
	assert.InDelta(t, 0.3, req[0].Options.Temperature, 1e-9)
	assert.Equal(t, 4096, req[0].Options.MaxTokens)

	msg := req[0].Turns[0].Content
	prefix := "Here is the game plan. Generate the three files:\n\n"
	require.True(t, strings.HasPrefix(msg, prefix))
	var sent game.Plan
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(msg, prefix)), &sent))
	assert.Equal(t, *testPlan(), sent)
	assert.Contains(t, msg, "\n  \"game_title\": \"Snake\"", "plan JSON is indented")
}

func TestBuild_MissingBlockWritesNothing(t *testing.T) {
	client := llmtest.NewScripted("===FILE: index.html===\na\n===END FILE===\n===FILE: game.js===\nb\n===END FILE===")
	w := &mockWriter{}
	b := New(client, "sys", w)

	_, err := b.Build(context.Background(), testPlan())
	assert.ErrorIs(t, err, pipeline.ErrFileBlockMissing)
	f, _ := pipeline.AsFailure(err)
	assert.Equal(t, "style.css", f.File)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestBuild_UnknownBlockWarns(t *testing.T) {
	client := llmtest.NewScripted(threeFiles + "\n===FILE: notes.txt===\nhi\n===END FILE===")
	w := &mockWriter{}
	w.On("Write", mock.Anything, mock.Anything).Return(nil)
	log := logging.NewTestLogger()
	b := New(client, "sys", w, WithLogger(log.Logger))

	_, err := b.Build(context.Background(), testPlan())
	require.NoError(t, err)
	log.AssertField(t, "ignoring unexpected file block", "file", "notes.txt")
	w.AssertExpectations(t)
}

func TestBuild_CorrectiveRetry(t *testing.T) {
	client := llmtest.NewScripted("===FILE: index.html===\nonly one\n===END FILE===", threeFiles)
	w := &mockWriter{}
	w.On("Write", mock.Anything, mock.Anything).Return(nil)
	log := logging.NewTestLogger()
	b := New(client, "sys", w, WithMaxAttempts(2), WithLogger(log.Logger))

	_, err := b.Build(context.Background(), testPlan())
	require.NoError(t, err)

	retry := client.Requests()[1].Turns
	require.Len(t, retry, 3)
	assert.Equal(t, llm.RoleAssistant, retry[1].Role)
	assert.Equal(t,
		"Your previous response was invalid because the style.css block no block for this file. Please resend all three files, each between a ===FILE: <name>=== line and an ===END FILE=== line.",
		retry[2].Content)
	log.AssertLogged(t, zapcore.WarnLevel, "file blocks rejected")
}

func TestBuild_PersistenceFailure(t *testing.T) {
	client := llmtest.NewScripted(threeFiles)
	w := &mockWriter{}
	w.On("Write", mock.Anything, mock.Anything).
		Return(&artifact.WriteError{File: "game.js", Path: "/out/game.js", Err: errors.New("disk full")})
	b := New(client, "sys", w)

	_, err := b.Build(context.Background(), testPlan())
	assert.ErrorIs(t, err, pipeline.ErrPersistence)
	f, ok := pipeline.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "game.js", f.File)
	assert.Contains(t, f.Error(), "disk full")
}

func TestBuild_PersistenceRealDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o644))
	b := New(llmtest.NewScripted(threeFiles), "sys", artifact.NewStore(path))

	_, err := b.Build(context.Background(), testPlan())
	assert.ErrorIs(t, err, pipeline.ErrPersistence)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := llmtest.NewScripted(threeFiles)
	b := New(client, "sys", &mockWriter{})

	_, err := b.Build(ctx, testPlan())
	assert.ErrorIs(t, err, pipeline.ErrCancelled)
}

func TestBuild_NilPlan(t *testing.T) {
	_, err := New(llmtest.NewScripted(), "sys", &mockWriter{}).Build(context.Background(), nil)
	assert.ErrorIs(t, err, pipeline.ErrInvalidInput)
}
