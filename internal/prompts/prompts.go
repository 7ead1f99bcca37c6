// Package prompts holds the system prompts given to each phase.
//
// Defaults are compiled into the binary. A TOML file may replace any of
// them:
//
//	clarifier = """..."""
//	planner_file = "planner.txt"   # relative to the TOML file
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/gamesmith/internal/game"
)

//go:embed defaults/*.txt
var defaults embed.FS

// ErrInvalidPack is returned when a prompt pack cannot drive its phases.
var ErrInvalidPack = errors.New("invalid prompt pack")

// Pack is the set of system prompts for one run.
type Pack struct {
	Clarifier string
	Planner   string
	Builder   string
}

// Default returns the built-in prompts.
func Default() Pack {
	return Pack{
		Clarifier: mustRead("defaults/clarifier.txt"),
		Planner:   mustRead("defaults/planner.txt"),
		Builder:   mustRead("defaults/builder.txt"),
	}
}

func mustRead(name string) string {
	b, err := defaults.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("prompts: missing embedded %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

type override struct {
	Clarifier     string `toml:"clarifier"`
	ClarifierFile string `toml:"clarifier_file"`
	Planner       string `toml:"planner"`
	PlannerFile   string `toml:"planner_file"`
	Builder       string `toml:"builder"`
	BuilderFile   string `toml:"builder_file"`
}

// Load returns the default pack with any prompts from the TOML file at
// path applied. An empty path returns the defaults.
func Load(path string) (Pack, error) {
	pack := Default()
	if path == "" {
		return pack, nil
	}

	var o override
	md, err := toml.DecodeFile(path, &o)
	if err != nil {
		return Pack{}, fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Pack{}, fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalidPack, path, undecoded)
	}

	base := filepath.Dir(path)
	for _, r := range []struct {
		dst    *string
		inline string
		file   string
		name   string
	}{
		{&pack.Clarifier, o.Clarifier, o.ClarifierFile, "clarifier"},
		{&pack.Planner, o.Planner, o.PlannerFile, "planner"},
		{&pack.Builder, o.Builder, o.BuilderFile, "builder"},
	} {
		text, err := resolve(base, r.inline, r.file)
		if err != nil {
			return Pack{}, fmt.Errorf("%s prompt: %w", r.name, err)
		}
		if text != "" {
			*r.dst = text
		}
	}

	if err := pack.Validate(); err != nil {
		return Pack{}, err
	}
	return pack, nil
}

func resolve(base, inline, file string) (string, error) {
	if inline != "" && file != "" {
		return "", fmt.Errorf("%w: set either the prompt or its file, not both", ErrInvalidPack)
	}
	if file == "" {
		return strings.TrimSpace(inline), nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(base, file)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Validate checks that each prompt asks for what its phase parses.
func (p Pack) Validate() error {
	switch {
	case strings.TrimSpace(p.Clarifier) == "":
		return fmt.Errorf("%w: clarifier prompt is empty", ErrInvalidPack)
	case !strings.Contains(p.Clarifier, game.Sentinel):
		return fmt.Errorf("%w: clarifier prompt must instruct the model to emit %s", ErrInvalidPack, game.Sentinel)
	case strings.TrimSpace(p.Planner) == "":
		return fmt.Errorf("%w: planner prompt is empty", ErrInvalidPack)
	case strings.TrimSpace(p.Builder) == "":
		return fmt.Errorf("%w: builder prompt is empty", ErrInvalidPack)
	case !strings.Contains(p.Builder, "===FILE:") || !strings.Contains(p.Builder, "===END FILE==="):
		return fmt.Errorf("%w: builder prompt must describe the ===FILE: / ===END FILE=== markers", ErrInvalidPack)
	}
	return nil
}
