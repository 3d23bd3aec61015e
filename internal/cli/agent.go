package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/agent"
	"github.com/example/gauntlet/internal/app"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/wire"
)

// AgentCmd returns the agent command
func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run a standalone validation agent",
	}

	cmd.AddCommand(agentRunCmd())

	return cmd
}

func agentRunCmd() *cobra.Command {
	var role string
	var agentID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the queue and work one role's validation slots",
		Long: `Run a validation agent for one role. The agent polls for items whose
current stage has its role open, claims the slot, heartbeats while it
analyzes, and submits a finding. Several agents and a pipeline run can
share the queue.

The agent ID defaults to ` + agent.EnvAgentID + ` or "AGENT-<role>-<pid>".

Examples:
  gauntlet agent run --role units
  gauntlet agent run --role statistics --agent-id AGENT-statistics-02`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role == "" {
				return fmt.Errorf("must specify --role")
			}
			if !validRole(role) {
				return fmt.Errorf("unknown role %q (valid: %v)", role, stage.AllRoles())
			}

			if agentID == "" {
				if id := os.Getenv(agent.EnvAgentID); id != "" {
					agentID = id
				} else {
					agentID = fmt.Sprintf("AGENT-%s-%d", role, os.Getpid())
				}
			}
			if _, err := agent.Parse(agentID); err != nil {
				return fmt.Errorf("invalid agent ID %q: %w", agentID, err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := app.NewAgentRunner(wire.ItemService(), wire.RegistryService(), wire.Analyzer(), role, agentID)
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Validation role to work (required)")
	cmd.Flags().StringVar(&agentID, "agent-id", "", "Agent identity (AGENT-<role>-<n>)")

	return cmd
}

func validRole(role string) bool {
	for _, r := range stage.AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
