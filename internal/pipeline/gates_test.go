package pipeline

import (
	"testing"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryGate(t *testing.T) {
	s := NewState("r", "idea")
	assert.Equal(t, KindEmptySummary, SummaryGate{}.Check(s).Kind)

	s.Summary = "REQUIREMENTS_CLEAR twice"
	assert.NotNil(t, SummaryGate{}.Check(s))

	s.Summary = "A snake game."
	assert.Nil(t, SummaryGate{}.Check(s))
}

func TestPlanGate(t *testing.T) {
	s := NewState("r", "idea")
	assert.Equal(t, KindPlanValidation, PlanGate{}.Check(s).Kind)

	s.Plan = &game.Plan{Framework: "react"}
	f := PlanGate{}.Check(s)
	require.NotNil(t, f)
	assert.Equal(t, "framework", f.Field)

	s.Plan.Framework = game.Framework
	assert.Nil(t, PlanGate{}.Check(s))
}

func TestFileSetGate(t *testing.T) {
	s := NewState("r", "idea")
	assert.Equal(t, KindFileBlockMissing, FileSetGate{}.Check(s).Kind)

	fs, err := game.NewFileSet(map[game.LogicalFile]string{
		game.Markup: "<html>", game.Style: "body{}", game.Logic: "run()",
	})
	require.NoError(t, err)
	s.Files = fs

	f := FileSetGate{}.Check(s)
	require.NotNil(t, f)
	assert.Equal(t, KindPersistence, f.Kind)
	assert.Equal(t, "index.html", f.File)

	for _, lf := range game.AllFiles() {
		fs.SetPath(lf, "/out/"+lf.FileName())
	}
	assert.Nil(t, FileSetGate{}.Check(s))
}
