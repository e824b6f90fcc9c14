package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "disagg",
	Short: "Disaggregate census grid building counts to individual buildings",
	Long:  "Assigns census building-size categories reported per 100m grid cell to the buildings inside each cell, using a priority-ordered building type dictionary, and reports the counts that could not be placed.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
