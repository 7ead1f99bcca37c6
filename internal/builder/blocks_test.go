package builder

import (
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeFiles = `Here are your files!

===FILE: game.js===
const canvas = document.getElementById("game");

function loop() {
  requestAnimationFrame(loop);
}
===END FILE===

Some commentary between blocks.

  ===FILE: index.html===  

<!DOCTYPE html>
<canvas id="game"></canvas>

===END FILE===
===FILE:style.css===
body { margin: 0; }
===END FILE===
Enjoy the game.`

func TestExtract_AnyOrderWithProse(t *testing.T) {
	ext, fail := Extract(threeFiles)
	require.Nil(t, fail)
	assert.Equal(t, "<!DOCTYPE html>\n<canvas id=\"game\"></canvas>", ext.Bodies[game.Markup])
	assert.Equal(t, "body { margin: 0; }", ext.Bodies[game.Style])
	assert.Equal(t, "const canvas = document.getElementById(\"game\");\n\nfunction loop() {\n  requestAnimationFrame(loop);\n}", ext.Bodies[game.Logic])
	assert.Empty(t, ext.Unknown)
}

func TestExtract_CRLF(t *testing.T) {
	text := "===FILE: index.html===\r\n<p>hi</p>\r\n===END FILE===\r\n" +
		"===FILE: style.css===\r\np{}\r\n===END FILE===\r\n" +
		"===FILE: game.js===\r\nrun()\r\n===END FILE===\r\n"
	ext, fail := Extract(text)
	require.Nil(t, fail)
	assert.Equal(t, "<p>hi</p>", ext.Bodies[game.Markup])
}

func TestExtract_KeepsIndentation(t *testing.T) {
	text := "===FILE: index.html===\n\n    <div>\n      x\n    </div>\n\n===END FILE===\n" +
		"===FILE: style.css===\na{}\n===END FILE===\n===FILE: game.js===\nb()\n===END FILE==="
	ext, fail := Extract(text)
	require.Nil(t, fail)
	assert.Equal(t, "    <div>\n      x\n    </div>", ext.Bodies[game.Markup])
}

func TestExtract_UnknownBlocksIgnored(t *testing.T) {
	text := threeFiles + "\n===FILE: README.md===\n# Snake\n===END FILE===\n"
	ext, fail := Extract(text)
	require.Nil(t, fail)
	assert.Equal(t, []string{"README.md"}, ext.Unknown)
	assert.Len(t, ext.Bodies, 3)
}

func TestExtract_RepeatedUnknownBlocksIgnored(t *testing.T) {
	readme := "\n===FILE: README.md===\n# Snake\n===END FILE===\n"
	ext, fail := Extract(threeFiles + readme + readme)
	require.Nil(t, fail)
	assert.Equal(t, []string{"README.md", "README.md"}, ext.Unknown)
	assert.Len(t, ext.Bodies, 3)
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind pipeline.Kind
		file string
	}{
		{
			name: "missing style",
			text: "===FILE: index.html===\na\n===END FILE===\n===FILE: game.js===\nb\n===END FILE===",
			kind: pipeline.KindFileBlockMissing,
			file: "style.css",
		},
		{
			name: "nothing at all",
			text: "I could not generate the game.",
			kind: pipeline.KindFileBlockMissing,
			file: "index.html",
		},
		{
			name: "duplicated start marker",
			text: threeFiles + "\n===FILE: index.html===\nagain\n===END FILE===",
			kind: pipeline.KindFileBlockDuplicated,
			file: "index.html",
		},
		{
			name: "duplicate wins over malformed",
			text: "===FILE: game.js===\na\n===FILE: game.js===\nb\n===END FILE===",
			kind: pipeline.KindFileBlockDuplicated,
			file: "game.js",
		},
		{
			name: "stray end marker",
			text: threeFiles + "\n===END FILE===",
			kind: pipeline.KindFileBlockMalformed,
		},
		{
			name: "unterminated block",
			text: threeFiles + "\n===FILE: extra.txt===\nno end",
			kind: pipeline.KindFileBlockMalformed,
		},
		{
			name: "start inside open block",
			text: "===FILE: index.html===\na\n===FILE: style.css===\nb\n===END FILE===\n===FILE: game.js===\nc\n===END FILE===",
			kind: pipeline.KindFileBlockMalformed,
		},
		{
			name: "malformed wins over missing",
			text: "===FILE: index.html===\na",
			kind: pipeline.KindFileBlockMalformed,
		},
		{
			name: "empty body",
			text: "===FILE: index.html===\na\n===END FILE===\n===FILE: style.css===\n \n\t\n===END FILE===\n===FILE: game.js===\nc\n===END FILE===",
			kind: pipeline.KindFileBlockEmpty,
			file: "style.css",
		},
		{
			name: "missing wins over empty",
			text: "===FILE: index.html===\n===END FILE===\n===FILE: style.css===\nb\n===END FILE===",
			kind: pipeline.KindFileBlockMissing,
			file: "game.js",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, fail := Extract(tt.text)
			assert.Nil(t, ext)
			require.NotNil(t, fail)
			assert.Equal(t, tt.kind, fail.Kind, fail.Error())
			assert.Equal(t, tt.file, fail.File)
			assert.Equal(t, pipeline.PhaseBuilding, fail.Phase)
		})
	}
}

func TestStartName(t *testing.T) {
	tests := []struct {
		line string
		name string
		ok   bool
	}{
		{"===FILE: index.html===", "index.html", true},
		{"===FILE:game.js===", "game.js", true},
		{"===FILE:===", "", true},
		{"===END FILE===", "", false},
		{"== FILE: x ==", "", false},
		{"===FILE: x", "", false},
	}
	for _, tt := range tests {
		name, ok := startName(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.name, name, tt.line)
	}
}

func TestTrimBlankLines(t *testing.T) {
	assert.Equal(t, "", trimBlankLines(nil))
	assert.Equal(t, "", trimBlankLines([]string{" ", ""}))
	assert.Equal(t, "  a\n\n b", trimBlankLines([]string{"", "  a", "", " b", "\t"}))
}
