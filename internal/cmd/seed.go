package cmd

import (
	"fmt"
	"log"

	"github.com/Murega14/agrilink/internal/database"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo accounts and products",
	Long: `Create a demo farmer with a few products and a demo buyer.

Running it again leaves existing demo data untouched.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.Seed(db); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	log.Printf("Demo data ready, password for both accounts is %q", database.DemoPassword)
	return nil
}
