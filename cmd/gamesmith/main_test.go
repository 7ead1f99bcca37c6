package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/console"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planJSON = `{
  "game_title": "Snake",
  "framework": "vanilla_js",
  "mechanics": ["snake grows when eating food"],
  "controls": {"bindings": {"ArrowUp": "move up"}, "description": "Arrow keys steer the snake"},
  "game_loop": {"init": "place snake", "update": "move", "render": "draw", "win_condition": "none", "lose_condition": "hit wall"},
  "entities": ["snake", "food"],
  "visual_style": "retro",
  "core_systems": ["input", "collision"],
  "file_structure": {"index.html": "host", "style.css": "layout", "game.js": "logic"}
}`

const gameFiles = `===FILE: index.html===
<!DOCTYPE html>
<html><body><canvas id="game"></canvas><script src="game.js"></script></body></html>
===END FILE===
===FILE: style.css===
body { background: #000; }
===END FILE===
===FILE: game.js===
const canvas = document.getElementById("game");
===END FILE===`

// fakeServer serves /models and answers chat completions from a script.
type fakeServer struct {
	*httptest.Server
	mu      sync.Mutex
	models  []string
	replies []string
	calls   int
}

func newFakeServer(t *testing.T, models []string, replies ...string) *fakeServer {
	t.Helper()
	s := &fakeServer{models: models, replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/models"):
		data := make([]map[string]string, 0, len(s.models))
		for _, m := range s.models {
			data = append(data, map[string]string{"id": m, "object": "model"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		s.mu.Lock()
		idx := s.calls
		s.calls++
		s.mu.Unlock()
		if idx >= len(s.replies) {
			http.Error(w, "script exhausted", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      fmt.Sprintf("chatcmpl-%d", idx),
			"object":  "chat.completion",
			"created": 1,
			"model":   "llama3.2",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": s.replies[idx]},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// writeConfig writes an empty config file so the user's own file is
// never read.
func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  git_snapshot: false\n"), 0o600))
	return path
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.out = &out
	a.errOut = &out
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunGame_EndToEnd(t *testing.T) {
	srv := newFakeServer(t, []string{"llama3.2:latest"},
		"What should happen when the snake hits a wall?",
		"REQUIREMENTS_CLEAR\nA classic snake game. Hitting a wall ends the game.",
		"Here is the plan:\n"+planJSON,
		gameFiles,
	)
	outDir := filepath.Join(t.TempDir(), "snake")

	a := newApp(nil, nil, nil)
	var promptOut bytes.Buffer
	a.prompter = console.NewLinePrompter(strings.NewReader("game over\n"), &promptOut)

	out, err := execute(t, a,
		"--config", writeConfig(t),
		"--base-url", srv.URL+"/v1",
		"--model", "llama3.2",
		"--output", outDir,
		"--idea", "a snake game",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, srv.Calls())

	assert.Contains(t, promptOut.String(), "What should happen when the snake hits a wall?")
	for _, want := range []string{
		"PHASE 1: CLARIFICATION",
		"Requirements are clear!",
		"Hitting a wall ends the game.",
		"Game plan created!",
		"Snake",
		"Your game is ready!",
		filepath.Join(outDir, "index.html"),
	} {
		assert.Contains(t, out, want)
	}

	for _, name := range []string{"index.html", "style.css", "game.js"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, strings.TrimSpace(string(data)))
	}
}

func TestRunGame_PlanFailureStopsBeforeBuild(t *testing.T) {
	srv := newFakeServer(t, []string{"llama3.2"},
		"REQUIREMENTS_CLEAR\nA snake game.",
		"I cannot produce JSON today.",
	)
	outDir := filepath.Join(t.TempDir(), "out")

	a := newApp(nil, nil, nil)
	out, err := execute(t, a,
		"--config", writeConfig(t),
		"--base-url", srv.URL+"/v1",
		"--model", "llama3.2",
		"--output", outDir,
		"--idea", "snake",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrPlanParse)
	assert.Contains(t, out, "Pipeline failed during planning")
	assert.Equal(t, 2, srv.Calls())
	assert.NoDirExists(t, outDir)
}

func TestRunGame_ModelMissing(t *testing.T) {
	srv := newFakeServer(t, []string{"phi3:mini", "qwen2.5-coder"})

	a := newApp(nil, nil, nil)
	out, err := execute(t, a,
		"--config", writeConfig(t),
		"--base-url", srv.URL+"/v1",
		"--model", "llama3.2",
		"--idea", "snake",
	)
	require.Error(t, err)
	assert.Equal(t, llm.ErrorModelUnavailable, llm.KindOf(err))
	assert.Contains(t, out, "phi3:mini")
	assert.Contains(t, out, "qwen2.5-coder")
	assert.Equal(t, 0, srv.Calls())
}

func TestRunGame_RequiresModel(t *testing.T) {
	t.Setenv("LLM_MODEL", "")
	a := newApp(nil, nil, nil)
	_, err := execute(t, a, "--config", writeConfig(t), "--idea", "snake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_MODEL")
}

func TestRunGame_EmptyIdeaPrompt(t *testing.T) {
	srv := newFakeServer(t, []string{"llama3.2"})

	a := newApp(nil, nil, nil)
	a.prompter = console.NewLinePrompter(strings.NewReader("   \n"), &bytes.Buffer{})
	_, err := execute(t, a,
		"--config", writeConfig(t),
		"--base-url", srv.URL+"/v1",
		"--model", "llama3.2",
	)
	assert.ErrorIs(t, err, console.ErrEmptyIdea)
	assert.Equal(t, 0, srv.Calls())
}

func TestModelsCommand(t *testing.T) {
	srv := newFakeServer(t, []string{"llama3.2:latest", "phi3:mini"})

	a := newApp(nil, nil, nil)
	out, err := execute(t, a, "models",
		"--config", writeConfig(t),
		"--base-url", srv.URL+"/v1",
		"--model", "llama3.2",
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "*")
	assert.Contains(t, lines[0], "llama3.2:latest")
	assert.Contains(t, lines[1], "phi3:mini")
}

func TestPromptsCommand(t *testing.T) {
	a := newApp(nil, nil, nil)
	out, err := execute(t, a, "prompts", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "### clarifier")
	assert.Contains(t, out, "### planner")
	assert.Contains(t, out, "### builder")
	assert.Contains(t, out, "REQUIREMENTS_CLEAR")
	assert.Contains(t, out, "===END FILE===")
}

func TestVersionCommand(t *testing.T) {
	a := newApp(nil, nil, nil)
	out, err := execute(t, a, "version")
	require.NoError(t, err)
	assert.Equal(t, "gamesmith dev\n", out)
}

func TestOverrides(t *testing.T) {
	a := &app{model: "llama3.2", outputDir: "out"}
	assert.Equal(t, map[string]any{"llm.model": "llama3.2", "output.dir": "out"}, a.overrides())
	assert.Empty(t, (&app{}).overrides())
}
