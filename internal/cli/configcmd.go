package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/wire"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}

	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configInitCmd())

	return cmd
}

func configShowCmd() *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the loaded configuration",
		Long: `Print the loaded configuration. With --resolved, print the effective
per-stage thresholds after overrides and stage-size capping instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()

			if !resolved {
				path, err := config.Path()
				if err != nil {
					return err
				}
				fmt.Printf("# %s\n", path)
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			}

			fmt.Printf("\n%-20s %-5s %-8s %-8s %-9s %-9s %-9s %-7s\n",
				"STAGE", "FULL", "PARTIAL", "MINIMUM", "PART-AT", "MIN-AT", "TIMEOUT", "RETRIES")
			fmt.Println("────────────────────────────────────────────────────────────────────────────────")
			for _, st := range stage.All() {
				th, err := cfg.ThresholdsFor(st.Name)
				if err != nil {
					return fmt.Errorf("stage %s: %w", st.Name, err)
				}
				th = st.EffectiveThresholds(th)
				fmt.Printf("%-20s %-5d %-8d %-8d %-9s %-9s %-9s %-7d\n",
					st.Name, th.RequiredRoleCount, th.PartialThreshold, th.MinimumThreshold,
					th.PartialTimeWindow, th.MinimumTimeWindow, th.AbsoluteTimeout, th.RetryLimit)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolved", false, "Show effective per-stage thresholds")

	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := config.Save(config.Default()); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("✓ Default config written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
