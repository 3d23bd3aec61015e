package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the gauntlet database",
		Long:  `Initialize the gauntlet database at ~/.gauntlet/gauntlet.db with the required schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing gauntlet database at %s\n", dbPath)

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}

			fmt.Println("✓ Database initialized successfully")

			cfgPath, err := config.Path()
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := config.Save(config.Default()); err != nil {
					return fmt.Errorf("failed to write default config: %w", err)
				}
				fmt.Printf("✓ Default config written to %s\n", cfgPath)
			} else {
				fmt.Printf("✓ Config already present at %s\n", cfgPath)
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  gauntlet enqueue \"My First Item\" --payload papers/first.pdf")
			fmt.Println("  gauntlet run")

			return nil
		},
	}
}
