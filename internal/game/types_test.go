package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bodies() map[LogicalFile]string {
	return map[LogicalFile]string{
		Markup: "<canvas></canvas>",
		Style:  "canvas { margin: 0; }",
		Logic:  "let score = 0;",
	}
}

func TestLogicalFiles(t *testing.T) {
	assert.Equal(t, []LogicalFile{Markup, Style, Logic}, AllFiles())
	assert.Equal(t, "index.html", Markup.FileName())
	assert.Equal(t, "style.css", Style.FileName())
	assert.Equal(t, "game.js", Logic.FileName())
	assert.Empty(t, LogicalFile("readme").FileName())

	f, ok := LogicalFileFor("game.js")
	assert.True(t, ok)
	assert.Equal(t, Logic, f)
	_, ok = LogicalFileFor("main.js")
	assert.False(t, ok)
}

func TestNewFileSet(t *testing.T) {
	fs, err := NewFileSet(bodies())
	require.NoError(t, err)
	assert.Equal(t, "let score = 0;", fs.Body(Logic))
	assert.Empty(t, fs.Path(Logic))
	assert.Empty(t, fs.Paths())

	fs.SetPath(Logic, "/out/game.js")
	fs.SetPath(Markup, "/out/index.html")
	assert.Equal(t, []string{"/out/index.html", "/out/game.js"}, fs.Paths())
}

func TestNewFileSet_RejectsPartialSets(t *testing.T) {
	missing := bodies()
	delete(missing, Style)
	_, err := NewFileSet(missing)
	assert.ErrorContains(t, err, "style.css")

	empty := bodies()
	empty[Logic] = "  \n"
	_, err = NewFileSet(empty)
	assert.ErrorContains(t, err, "game.js")
}

func TestPlan_JSONNames(t *testing.T) {
	b, err := json.Marshal(Plan{Title: "Pong", Framework: Framework})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{
		"game_title", "framework", "mechanics", "controls", "game_loop",
		"entities", "visual_style", "core_systems", "file_structure",
	} {
		assert.Contains(t, m, key)
	}
}
