// Package main implements the gamesmith CLI, which turns a game idea into a
// playable browser game through clarification, planning and code
// generation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/gamesmith/internal/console"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := a.rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if _, ok := pipeline.AsFailure(err); !ok {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app holds the streams and flag values shared by every command.
type app struct {
	in     *os.File
	out    io.Writer
	errOut io.Writer

	// prompter overrides the terminal prompter.
	prompter console.Prompter

	configPath string
	model      string
	baseURL    string
	logLevel   string
	idea       string
	outputDir  string
}

func newApp(in *os.File, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gamesmith",
		Short: "Turn a game idea into a playable browser game",
		Long: `gamesmith asks a few questions about your game idea, writes a structured
plan for it, and generates index.html, style.css and game.js in the output
directory. It talks to any OpenAI-compatible server, such as Ollama.

Examples:
  # Start with an interactive idea prompt
  gamesmith --model llama3.2

  # Pass the idea up front
  gamesmith --idea "a snake game with power-ups" --output ./snake`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runGame,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.config/gamesmith/config.yaml)")
	pf.StringVar(&a.model, "model", "", "model name (overrides LLM_MODEL)")
	pf.StringVar(&a.baseURL, "base-url", "", "OpenAI-compatible base URL (overrides LLM_BASE_URL)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	f := root.Flags()
	f.StringVar(&a.idea, "idea", "", "game idea; prompted for when omitted")
	f.StringVarP(&a.outputDir, "output", "o", "", "output directory (overrides OUTPUT_DIR)")

	root.AddCommand(a.modelsCmd(), a.promptsCmd(), a.versionCmd())
	return root
}

func (a *app) consolePrompter() console.Prompter {
	if a.prompter == nil {
		a.prompter = console.NewPrompter(a.in, a.out)
	}
	return a.prompter
}
