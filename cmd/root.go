package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceratio",
	Short: "Facial proportion scoring and reference matching service",
	Long: `faceratio turns facial landmark measurements into five proportion ratios,
scores them against golden-ratio targets, classifies the face shape and
finds the closest faces in a reference set.

Only numeric ratios are ever stored; no imagery reaches the service.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		return logger.Init(cfg.Log.Level, cfg.Log.Format)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
