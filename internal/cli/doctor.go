package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/db"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the gauntlet environment",
		Long: `Environment health check for gauntlet.

Validates:
- Data directory (~/.gauntlet/)
- Database connectivity and schema version
- Configuration file validity
- Stale active claims

Examples:
  gauntlet doctor              # Run full health check
  gauntlet doctor --quiet      # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{
				checkDataDir(),
				checkDatabase(),
				checkConfig(),
				checkStaleClaims(),
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, r.Status)
				}
				fmt.Println()

				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						fmt.Printf("%s %s: %s\n", r.Status, r.Name, r.Details)
					}
				}
			}

			if hasErrors {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Exit code only, no output")

	return cmd
}

func checkDataDir() CheckResult {
	result := CheckResult{Name: "Data directory"}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		result.Status = "✗"
		result.Details = err.Error()
		return result
	}

	dir := filepath.Join(homeDir, ".gauntlet")
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		result.Status = "⚠"
		result.Details = fmt.Sprintf("%s missing (run 'gauntlet init')", dir)
		return result
	}
	if err != nil || !info.IsDir() {
		result.Status = "✗"
		result.Details = fmt.Sprintf("%s is not a directory", dir)
		return result
	}

	result.Status = "✓"
	return result
}

func checkDatabase() CheckResult {
	result := CheckResult{Name: "Database"}

	database, err := db.GetDB()
	if err != nil {
		result.Status = "✗"
		result.Details = err.Error()
		return result
	}

	var version int
	err = database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		result.Status = "✗"
		result.Details = fmt.Sprintf("schema version unreadable: %v (run 'gauntlet init')", err)
		return result
	}

	result.Status = "✓"
	return result
}

func checkConfig() CheckResult {
	result := CheckResult{Name: "Config"}

	cfg, err := config.Load()
	if err != nil {
		result.Status = "✗"
		result.Details = err.Error()
		return result
	}

	// A config that loads but resolves to invalid thresholds is worse
	// than a missing one; surface it here rather than mid-run.
	for _, name := range []string{"intake-screen", "final-adjudication"} {
		if _, err := cfg.ThresholdsFor(name); err != nil {
			result.Status = "✗"
			result.Details = err.Error()
			return result
		}
	}

	result.Status = "✓"
	return result
}

func checkStaleClaims() CheckResult {
	result := CheckResult{Name: "Claims"}

	database, err := db.GetDB()
	if err != nil {
		result.Status = "✗"
		result.Details = err.Error()
		return result
	}

	cutoff := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
	var stale int
	err = database.QueryRow(
		"SELECT COUNT(*) FROM claims WHERE status = 'active' AND last_heartbeat < datetime(?)",
		cutoff,
	).Scan(&stale)
	if err != nil {
		result.Status = "✗"
		result.Details = err.Error()
		return result
	}

	if stale > 0 {
		result.Status = "⚠"
		result.Details = fmt.Sprintf("%d long-silent active claim(s) (run 'gauntlet claims --stale')", stale)
		return result
	}

	result.Status = "✓"
	return result
}
