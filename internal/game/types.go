// Package game holds the values handed forward between pipeline phases:
// the requirements summary, the structured plan and the generated file set.
package game

import (
	"fmt"
	"strings"
)

// Framework is the only framework identifier a plan may name.
const Framework = "vanilla_js"

// Sentinel marks the clarifier's final message. Everything after its first
// occurrence is the requirements summary.
const Sentinel = "REQUIREMENTS_CLEAR"

// RequirementsSummary is the clarified description of the game produced by
// the clarification phase. It is never empty once produced.
type RequirementsSummary string

// String returns the summary text.
func (s RequirementsSummary) String() string {
	return string(s)
}

// Plan is the validated, structured description of the game to build.
type Plan struct {
	Title         string            `json:"game_title"`
	Framework     string            `json:"framework"`
	Mechanics     []string          `json:"mechanics"`
	Controls      Controls          `json:"controls"`
	GameLoop      GameLoop          `json:"game_loop"`
	Entities      []string          `json:"entities"`
	VisualStyle   string            `json:"visual_style"`
	CoreSystems   []string          `json:"core_systems"`
	FileStructure map[string]string `json:"file_structure"`
}

// Controls maps inputs to actions and describes the scheme in prose.
type Controls struct {
	Bindings    map[string]string `json:"bindings"`
	Description string            `json:"description"`
}

// GameLoop describes each stage of the game loop.
type GameLoop struct {
	Init          string `json:"init"`
	Update        string `json:"update"`
	Render        string `json:"render"`
	WinCondition  string `json:"win_condition"`
	LoseCondition string `json:"lose_condition"`
}

// LogicalFile names one of the three generated artifacts by role.
type LogicalFile string

const (
	// Markup is the HTML entry point.
	Markup LogicalFile = "markup"
	// Style is the stylesheet.
	Style LogicalFile = "style"
	// Logic is the game script.
	Logic LogicalFile = "logic"
)

// Output file names. These are fixed and never derived from plan content.
const (
	MarkupFileName = "index.html"
	StyleFileName  = "style.css"
	LogicFileName  = "game.js"
)

// AllFiles returns the logical files in protocol order.
func AllFiles() []LogicalFile {
	return []LogicalFile{Markup, Style, Logic}
}

// FileName returns the fixed output file name for the logical file.
func (f LogicalFile) FileName() string {
	switch f {
	case Markup:
		return MarkupFileName
	case Style:
		return StyleFileName
	case Logic:
		return LogicFileName
	default:
		return ""
	}
}

// LogicalFileFor resolves an output file name back to its logical role.
func LogicalFileFor(name string) (LogicalFile, bool) {
	for _, f := range AllFiles() {
		if f.FileName() == name {
			return f, true
		}
	}
	return "", false
}

// FileSet is the complete set of generated artifacts. A FileSet is only
// valid when every logical file has a non-empty body.
type FileSet struct {
	bodies map[LogicalFile]string
	paths  map[LogicalFile]string
}

// NewFileSet builds a FileSet from bodies keyed by logical file, rejecting
// partial or empty sets.
func NewFileSet(bodies map[LogicalFile]string) (*FileSet, error) {
	fs := &FileSet{
		bodies: make(map[LogicalFile]string, len(bodies)),
		paths:  make(map[LogicalFile]string, len(bodies)),
	}
	for _, f := range AllFiles() {
		body, ok := bodies[f]
		if !ok {
			return nil, fmt.Errorf("file set missing %s", f.FileName())
		}
		if strings.TrimSpace(body) == "" {
			return nil, fmt.Errorf("file set has empty %s", f.FileName())
		}
		fs.bodies[f] = body
	}
	return fs, nil
}

// Body returns the text of a logical file.
func (s *FileSet) Body(f LogicalFile) string {
	return s.bodies[f]
}

// Path returns where the logical file was persisted, or "" if it was not.
func (s *FileSet) Path(f LogicalFile) string {
	return s.paths[f]
}

// SetPath records where a logical file was persisted.
func (s *FileSet) SetPath(f LogicalFile, path string) {
	s.paths[f] = path
}

// Paths returns persisted paths in protocol order.
func (s *FileSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for _, f := range AllFiles() {
		if p, ok := s.paths[f]; ok {
			out = append(out, p)
		}
	}
	return out
}
