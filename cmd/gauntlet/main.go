package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/cli"
	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/version"
)

func main() {
	if cfg, err := config.Load(); err == nil {
		logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	} else {
		logging.Init(logging.ParseLevel("info"), "text")
	}

	rootCmd := &cobra.Command{
		Use:     "gauntlet",
		Short:   "gauntlet - staged review pipeline for research items",
		Version: version.String(),
		Long: `gauntlet moves research items through a fixed sequence of validation
stages. Each stage seats a set of validation roles; agents claim slots,
submit findings, and an adaptive consensus decides the stage outcome.`,
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.EnqueueCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.AdvanceCmd())
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.ForceCloseCmd())
	rootCmd.AddCommand(cli.ClaimsCmd())
	rootCmd.AddCommand(cli.AuditCmd())
	rootCmd.AddCommand(cli.ConfigCmd())
	rootCmd.AddCommand(cli.AgentCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
