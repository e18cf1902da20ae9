package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Wire the trio and Bridge against the configured stack and report readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(slog.Default())
			if err != nil {
				return err
			}
			defer s.stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "llm provider: %s\n", s.cfg.LLM.DefaultProvider)
			fmt.Fprintf(out, "approval auto_approve: %v\n", s.cfg.Approval.AutoApprove)
			fmt.Fprintf(out, "executor max_concurrency: %d\n", s.cfg.Executor.MaxConcurrency)
			fmt.Fprintf(out, "bridge enabled: %v\n", s.cfg.Bridge.Enabled)
			fmt.Fprintf(out, "schedule enabled: %v (%d jobs)\n", s.cfg.Schedule.Enabled, len(s.cfg.Schedule.Jobs))

			progress := s.orc.Status()
			fmt.Fprintf(out, "orchestrator phase: %s\n", progress.Phase)
			return nil
		},
	}
}
