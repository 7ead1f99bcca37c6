// Package console renders the pipeline conversation in the terminal and
// reads the user's answers.
package console

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
)

var phaseTitles = map[pipeline.Phase]string{
	pipeline.PhaseClarifying: "PHASE 1: CLARIFICATION",
	pipeline.PhasePlanning:   "PHASE 2: PLANNING",
	pipeline.PhaseBuilding:   "PHASE 3: CODE GENERATION",
}

var phaseIntros = map[pipeline.Phase]string{
	pipeline.PhaseClarifying: "Let's figure out what you want to build.",
	pipeline.PhasePlanning:   "Generating a structured game plan...",
	pipeline.PhaseBuilding:   "Generating game files...",
}

// Printer writes user-facing pipeline output.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Banner announces a phase.
func (p *Printer) Banner(phase pipeline.Phase) {
	title, ok := phaseTitles[phase]
	if !ok {
		return
	}
	p.println()
	p.println(bannerStyle.Render(title))
	p.println(phaseIntros[phase])
	p.println()
}

// Summary shows the clarified requirements.
func (p *Printer) Summary(s game.RequirementsSummary) {
	p.println(successStyle.Render("Requirements are clear!"))
	p.println(boxStyle.Render(s.String()))
}

// PlanOverview shows the headline fields of a plan.
func (p *Printer) PlanOverview(plan *game.Plan) {
	p.println(successStyle.Render("Game plan created!"))
	p.println()
	p.println("Plan Overview:")
	rows := [][2]string{
		{"Title", plan.Title},
		{"Framework", plan.Framework},
		{"Mechanics", strings.Join(plan.Mechanics, ", ")},
		{"Controls", plan.Controls.Description},
	}
	for _, r := range rows {
		p.println("  " + labelStyle.Render(r[0]+":") + r[1])
	}
	p.println()
}

// FilesWritten lists every persisted file.
func (p *Printer) FilesWritten(fs *game.FileSet) {
	for _, path := range fs.Paths() {
		p.println(successStyle.Render("  Written: ") + filepath.Base(path))
	}
	p.println()
}

// Done prints the final pointer at the generated game.
func (p *Printer) Done(outputDir string) {
	p.println(successStyle.Render("Your game is ready!"))
	p.println("Open " + filepath.Join(outputDir, game.MarkupFileName) + " in a browser to play.")
}

// Failure reports why a run stopped.
func (p *Printer) Failure(err error) {
	if f, ok := pipeline.AsFailure(err); ok {
		p.println(errorStyle.Render(fmt.Sprintf("Pipeline failed during %s: %s", f.Phase, describe(f))))
		return
	}
	p.println(errorStyle.Render("Error: " + err.Error()))
}

func describe(f *pipeline.Failure) string {
	switch f.Kind {
	case pipeline.KindCancelled:
		return "cancelled"
	case pipeline.KindModelUnavailable:
		return "the model is not available on the server (" + f.Error() + ")"
	default:
		return f.Error()
	}
}

// Models lists the server's models and marks the configured one.
func (p *Printer) Models(available []string, configured string) {
	if len(available) == 0 {
		p.println("The server reports no models.")
		return
	}
	for _, m := range available {
		marker := "  "
		if configured != "" && llm.HasModel([]string{m}, configured) {
			marker = successStyle.Render("* ")
		}
		p.println(marker + m)
	}
}

// ModelMissing explains that the configured model is not served and
// lists what is.
func (p *Printer) ModelMissing(model string, available []string) {
	p.println(errorStyle.Render(fmt.Sprintf("Model %q is not available on the server.", model)))
	p.println("Available models:")
	p.Models(available, "")
	p.println("Set LLM_MODEL or pass --model to choose one of them.")
}

// Progress implements pipeline.ProgressCallback. It prints a banner when
// a phase starts and the phase's output when it completes.
func (p *Printer) Progress(pp pipeline.PhaseProgress) {
	switch pp.Status {
	case pipeline.StatusInProgress:
		p.Banner(pp.Phase)
	case pipeline.StatusCompleted:
		s := pp.State
		if s == nil {
			return
		}
		switch pp.Phase {
		case pipeline.PhaseClarifying:
			p.Summary(s.Summary)
		case pipeline.PhasePlanning:
			if s.Plan != nil {
				p.PlanOverview(s.Plan)
			}
		case pipeline.PhaseBuilding:
			if s.Files != nil {
				p.FilesWritten(s.Files)
			}
		}
	}
}
