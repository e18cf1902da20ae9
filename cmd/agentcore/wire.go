package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentcore/agentcore/internal/approval"
	"github.com/agentcore/agentcore/internal/bridge"
	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/executor"
	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/orchestrator"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/internal/schedule"
)

// stack is the fully wired set of components one CLI invocation needs:
// the trio behind an Orchestrator, and the Bridge watching it.
type stack struct {
	cfg    *config.Config
	orc    *orchestrator.Orchestrator
	bridge *bridge.Bridge
	sched  *schedule.Scheduler
}

func buildStack(logger *slog.Logger) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("build LLM provider: %w", err)
	}

	reg := registry.New()

	var br *bridge.Bridge
	if cfg.Bridge.Enabled {
		br, err = bridge.New(bridge.Config{
			DatabaseURL:  cfg.Bridge.DatabaseURL,
			PollInterval: cfg.Bridge.PollInterval,
		}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("build bridge: %w", err)
		}
	}

	var sink orchestrator.EventSink
	if br != nil {
		sink = br.Attached
	}

	orcCfg := orchestrator.Config{
		Model:            defaultModel(cfg),
		WorkingDirectory: cfg.WorkingDirectory,
		ApprovalPolicy: approval.Policy{
			Allowlist:       cfg.Approval.Allowlist,
			Denylist:        cfg.Approval.Denylist,
			RequireApproval: cfg.Approval.RequireApproval,
			AutoApprove:     cfg.Approval.AutoApprove,
			RequestTTL:      cfg.Approval.RequestTTL,
		},
		ExecutorConfig: executor.Config{
			MaxConcurrency:   cfg.Executor.MaxConcurrency,
			WatchdogInterval: cfg.Executor.WatchdogInterval,
			StallThreshold:   cfg.Executor.StallThreshold,
		},
	}

	orc := orchestrator.New(reg, provider, orcCfg, sink, logger)
	if err := registerBuiltinTools(reg, orc.Executor(), cfg.WorkingDirectory); err != nil {
		return nil, fmt.Errorf("register builtin tools: %w", err)
	}

	var sched *schedule.Scheduler
	if cfg.Schedule.Enabled {
		jobs := make([]schedule.Job, 0, len(cfg.Schedule.Jobs))
		for _, j := range cfg.Schedule.Jobs {
			jobs = append(jobs, schedule.Job{ID: j.ID, Cron: j.Cron, Prompt: j.Prompt})
		}
		sched = schedule.New(jobs, schedule.RunnerFunc(func(ctx context.Context, prompt string) schedule.RunResult {
			result := orc.Execute(ctx, prompt)
			return schedule.RunResult{Success: result.Success, Error: result.Error}
		}), logger)
	}

	return &stack{cfg: cfg, orc: orc, bridge: br, sched: sched}, nil
}

func (s *stack) start(ctx context.Context) {
	if s.bridge != nil {
		s.bridge.Attach()
		s.bridge.Start(ctx)
	}
	if s.sched != nil {
		s.sched.Start(ctx)
	}
}

func (s *stack) stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.bridge != nil {
		s.bridge.Stop()
	}
}

func defaultModel(cfg *config.Config) string {
	if p, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok && p.DefaultModel != "" {
		return p.DefaultModel
	}
	return ""
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	name := cfg.LLM.DefaultProvider
	p := cfg.LLM.Providers[name]

	switch name {
	case "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:       p.APIKey,
			BaseURL:      p.BaseURL,
			DefaultModel: p.DefaultModel,
		})
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:       p.APIKey,
			BaseURL:      p.BaseURL,
			DefaultModel: p.DefaultModel,
		})
	case "bedrock":
		return llm.NewBedrockProvider(context.Background(), llm.BedrockConfig{
			Region:          p.Region,
			DefaultModel:    p.DefaultModel,
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: p.SecretAccessKey,
			SessionToken:    p.SessionToken,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
