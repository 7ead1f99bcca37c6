package builder

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
)

const (
	startPrefix = "===FILE:"
	markerEdge  = "==="
	endMarker   = "===END FILE==="
)

// Block is one delimited file payload.
type Block struct {
	Name string
	Body string
	Line int
}

// scan is the raw result of reading a response line by line.
type scan struct {
	blocks []Block
	starts []string
	// structural is the first structural problem, with its line.
	structural string
}

func (s *scan) malformed(line int, format string, args ...any) {
	if s.structural == "" {
		s.structural = fmt.Sprintf("line %d: ", line) + fmt.Sprintf(format, args...)
	}
}

// startName reports whether line is a start marker and returns its name.
func startName(line string) (string, bool) {
	if !strings.HasPrefix(line, startPrefix) || !strings.HasSuffix(line, markerEdge) ||
		len(line) < len(startPrefix)+len(markerEdge) {
		return "", false
	}
	return strings.TrimSpace(line[len(startPrefix) : len(line)-len(markerEdge)]), true
}

func scanBlocks(text string) *scan {
	s := &scan{}
	var (
		open *Block
		body []string
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSuffix(sc.Text(), "\r")
		marker := strings.TrimSpace(line)

		if name, ok := startName(marker); ok {
			s.starts = append(s.starts, name)
			switch {
			case open != nil:
				s.malformed(n, "start marker for %q inside open block %q", name, open.Name)
			case name == "":
				s.malformed(n, "start marker without a file name")
			}
			open = &Block{Name: name, Line: n}
			body = body[:0]
			continue
		}

		if marker == endMarker {
			if open == nil {
				s.malformed(n, "end marker without an open block")
				continue
			}
			open.Body = trimBlankLines(body)
			s.blocks = append(s.blocks, *open)
			open = nil
			continue
		}

		if open != nil {
			body = append(body, line)
		}
	}
	if open != nil {
		s.malformed(open.Line, "block %q is never closed", open.Name)
	}
	return s
}

// trimBlankLines drops leading and trailing whitespace-only lines and keeps
// everything between them verbatim.
func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Extraction is the outcome of reading file blocks from a response.
type Extraction struct {
	Bodies map[game.LogicalFile]string
	// Unknown lists block names that are not expected output files.
	Unknown []string
}

// Extract reads the delimited file blocks in text. Checks run in a fixed
// order: duplicated start marker, structural errors, missing expected
// file, empty body. Block order and surrounding prose do not matter.
// Blocks with other names are reported in Unknown and never fail, even
// when repeated.
func Extract(text string) (*Extraction, *pipeline.Failure) {
	s := scanBlocks(text)

	seen := make(map[string]bool, len(s.starts))
	for _, name := range s.starts {
		if _, known := game.LogicalFileFor(name); !known {
			continue
		}
		if seen[name] {
			return nil, blockFailure(pipeline.KindFileBlockDuplicated, name, "start marker appears more than once")
		}
		seen[name] = true
	}

	if s.structural != "" {
		return nil, blockFailure(pipeline.KindFileBlockMalformed, "", s.structural)
	}

	byName := make(map[string]Block, len(s.blocks))
	for _, b := range s.blocks {
		byName[b.Name] = b
	}

	out := &Extraction{Bodies: make(map[game.LogicalFile]string, 3)}
	for _, f := range game.AllFiles() {
		b, ok := byName[f.FileName()]
		if !ok {
			return nil, blockFailure(pipeline.KindFileBlockMissing, f.FileName(), "no block for this file")
		}
		out.Bodies[f] = b.Body
	}
	for _, f := range game.AllFiles() {
		if strings.TrimSpace(out.Bodies[f]) == "" {
			return nil, blockFailure(pipeline.KindFileBlockEmpty, f.FileName(), "block has no content")
		}
	}

	for _, b := range s.blocks {
		if _, known := game.LogicalFileFor(b.Name); !known {
			out.Unknown = append(out.Unknown, b.Name)
		}
	}
	return out, nil
}

func blockFailure(kind pipeline.Kind, file, detail string) *pipeline.Failure {
	return &pipeline.Failure{
		Phase:  pipeline.PhaseBuilding,
		Kind:   kind,
		File:   file,
		Detail: detail,
	}
}
