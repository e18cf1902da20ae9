// Package main provides the CLI entry point for agentcore: an autonomous
// agent core that takes a natural-language request and drives it to
// completion through the Orchestrator/Planner/Executor trio, with an
// Observability Bridge watching every run.
//
// # Basic Usage
//
// Start an interactive session:
//
//	agentcore run --config agentcore.yaml
//
// Run a single prompt and exit:
//
//	agentcore run --prompt "summarize the open issues" --config agentcore.yaml
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: LLM provider credentials
//   - AGENTCORE_APPROVAL_MODE: interactive|auto_edit|yolo
//   - AGENTCORE_BRIDGE_ENABLED: enable the Observability Bridge
//   - AGENTCORE_DATABASE_URL: Bridge persistent store DSN
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcore",
		Short: "agentcore - an autonomous Orchestrator/Planner/Executor agent core",
		Long: `agentcore decomposes a natural-language request into a dependency-ordered
task plan, executes it with bounded side-effecting tools, and reports
progress through an Observability Bridge.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildStatusCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "agentcore %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
