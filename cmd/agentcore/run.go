package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func buildRunCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive session, or run a single prompt with --prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := buildStack(slog.Default())
			if err != nil {
				return err
			}
			s.start(ctx)
			defer s.stop()

			if strings.TrimSpace(prompt) != "" {
				return runOnce(ctx, cmd, s, prompt)
			}
			return runInteractive(ctx, cmd, s)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Run a single prompt non-interactively and exit")
	return cmd
}

func runOnce(ctx context.Context, cmd *cobra.Command, s *stack, prompt string) error {
	result := s.orc.Execute(ctx, prompt)
	fmt.Fprintln(cmd.OutOrStdout(), result.Response)
	if !result.Success {
		return result.Error
	}
	return nil
}

func runInteractive(ctx context.Context, cmd *cobra.Command, s *stack) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "agentcore interactive session. Type /help for commands, /quit to exit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			fmt.Fprintln(out, "goodbye")
			return nil
		}

		result := s.orc.Execute(ctx, line)
		fmt.Fprintln(out, result.Response)
		if !result.Success && result.Error != nil {
			fmt.Fprintln(out, "error:", result.Error)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
