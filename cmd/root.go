package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "riverq",
	Short: "River quality spatial join pipeline",
	Long:  "Joins biological monitoring sites to ward boundaries, merges index scores, filters the river network, and exports GeoJSON and summary tables for plotting.",
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
