package main

import (
	"fmt"

	"github.com/fyrsmithlabs/gamesmith/internal/console"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/prompts"
	"github.com/spf13/cobra"
)

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the server offers",
		Long: `List the models offered by the configured OpenAI-compatible server.
The configured model, if any, is marked with an asterisk.

Examples:
  gamesmith models
  gamesmith models --base-url http://gpu-box:11434/v1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			catalog := llm.NewModelCatalog(cfg.LLM.BaseURL, cfg.LLM.APIKey.Value(), nil)
			available, err := catalog.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing models at %s: %w", cfg.LLM.BaseURL, err)
			}
			console.NewPrinter(cmd.OutOrStdout()).Models(available, cfg.LLM.Model)
			return nil
		},
	}
}

func (a *app) promptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "Print the effective system prompts",
		Long: `Print the clarifier, planner and builder system prompts after any
override from the prompts.file TOML pack has been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			pack, err := prompts.Load(cfg.Prompts.File)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range []struct{ name, text string }{
				{"clarifier", pack.Clarifier},
				{"planner", pack.Planner},
				{"builder", pack.Builder},
			} {
				fmt.Fprintf(out, "### %s\n\n%s\n\n", p.name, p.text)
			}
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gamesmith version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("gamesmith %s\n", version)
		},
	}
}
