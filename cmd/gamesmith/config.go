package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/gamesmith/internal/config"
	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"github.com/fyrsmithlabs/gamesmith/internal/telemetry"
	"go.uber.org/zap"
)

// overrides maps the flags that were set onto koanf paths.
func (a *app) overrides() map[string]any {
	o := make(map[string]any)
	set := func(key, val string) {
		if val != "" {
			o[key] = val
		}
	}
	set("llm.model", a.model)
	set("llm.base_url", a.baseURL)
	set("logging.level", a.logLevel)
	set("output.dir", a.outputDir)
	return o
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigPath: a.configPath,
		Overrides:  a.overrides(),
	})
}

// runtime carries the observability stack for one command.
type runtime struct {
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	tel, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry, version))
	if err != nil {
		return nil, err
	}

	lcfg, err := logging.ConfigFrom(cfg.Logging, tel.LoggerProvider() != nil)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(lcfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}
	return &runtime{logger: logger, telemetry: tel}, nil
}

func (r *runtime) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := r.telemetry.Shutdown(ctx); err != nil {
		r.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = r.logger.Sync()
}

func llmConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey.Value(),
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout.Duration(),
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		ScrubSecrets:      cfg.LLM.ScrubSecrets,
	}
}
