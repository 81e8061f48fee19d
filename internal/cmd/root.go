package cmd

import (
	"fmt"
	"os"

	"github.com/Murega14/agrilink/internal/config"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "agrilink",
	Short: "Agrilink - farm produce marketplace API",
	Long: `Agrilink connects farmers selling produce with buyers.

Run "agrilink serve" to start the HTTP API, "agrilink migrate" to create
the schema and "agrilink seed" to load demo accounts and products.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding .env and config.yaml")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
