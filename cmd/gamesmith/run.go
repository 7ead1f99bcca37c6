package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/gamesmith/internal/artifact"
	"github.com/fyrsmithlabs/gamesmith/internal/builder"
	"github.com/fyrsmithlabs/gamesmith/internal/clarifier"
	"github.com/fyrsmithlabs/gamesmith/internal/config"
	"github.com/fyrsmithlabs/gamesmith/internal/console"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
	"github.com/fyrsmithlabs/gamesmith/internal/planner"
	"github.com/fyrsmithlabs/gamesmith/internal/prompts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) runGame(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pack, err := prompts.Load(cfg.Prompts.File)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close(ctx)
	ctx = logging.WithLogger(ctx, rt.logger)

	printer := console.NewPrinter(a.out)
	if err := checkModel(ctx, cfg, printer); err != nil {
		return err
	}

	prompter := a.consolePrompter()
	idea := a.idea
	if idea == "" {
		if idea, err = console.AskIdea(ctx, prompter); err != nil {
			return err
		}
	}

	orch, err := newOrchestrator(cfg, pack, prompter, rt.logger)
	if err != nil {
		return err
	}
	orch.OnProgress(printer.Progress)

	if _, err := orch.Run(ctx, idea); err != nil {
		printer.Failure(err)
		return err
	}
	printer.Done(cfg.Output.Dir)
	return nil
}

// checkModel confirms the configured model is served before any phase
// runs, listing the alternatives when it is not.
func checkModel(ctx context.Context, cfg *config.Config, printer *console.Printer) error {
	catalog := llm.NewModelCatalog(cfg.LLM.BaseURL, cfg.LLM.APIKey.Value(), nil)
	available, err := catalog.Check(ctx, cfg.LLM.Model)
	if err == nil {
		return nil
	}
	if llm.KindOf(err) == llm.ErrorModelUnavailable {
		printer.ModelMissing(cfg.LLM.Model, available)
		return err
	}
	return fmt.Errorf("cannot reach %s: %w", cfg.LLM.BaseURL, err)
}

func newOrchestrator(cfg *config.Config, pack prompts.Pack, prompter clarifier.Prompter, logger *logging.Logger) (*pipeline.Orchestrator, error) {
	client, err := llm.NewOpenAIClient(llmConfig(cfg), llm.WithLogger(logger.Named("llm")))
	if err != nil {
		return nil, err
	}

	var storeOpts []artifact.Option
	storeOpts = append(storeOpts, artifact.WithLogger(logger.Named("artifact")))
	if cfg.Output.GitSnapshot {
		storeOpts = append(storeOpts, artifact.WithSnapshot(artifact.NewSnapshotter(cfg.Output.Dir)))
	}
	store := artifact.NewStore(cfg.Output.Dir, storeOpts...)

	c := clarifier.New(client, pack.Clarifier, prompter,
		clarifier.WithTemperature(cfg.LLM.ClarifierTemperature),
		clarifier.WithLogger(logger.Named("clarifier")),
	)
	p := planner.New(client, pack.Planner,
		planner.WithTemperature(cfg.LLM.PlannerTemperature),
		planner.WithMaxAttempts(cfg.Planner.MaxAttempts),
		planner.WithLogger(logger.Named("planner")),
	)
	b := builder.New(client, pack.Builder, store,
		builder.WithTemperature(cfg.LLM.BuilderTemperature),
		builder.WithMaxTokens(cfg.LLM.BuilderMaxTokens),
		builder.WithMaxAttempts(cfg.Builder.MaxAttempts),
		builder.WithLogger(logger.Named("builder")),
	)

	logger.Debug(context.Background(), "pipeline configured",
		zap.String("model", cfg.LLM.Model),
		logging.Secret("llm.api_key", cfg.LLM.APIKey),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Bool("git_snapshot", cfg.Output.GitSnapshot),
	)
	return pipeline.New(c, p, b, pipeline.WithLogger(logger.Named("pipeline")))
}
