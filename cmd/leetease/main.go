package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leetease/catalog-engine/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "leetease",
	Short:         "Interview question catalog engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "Storage driver: postgres or memory (overrides STORAGE_DRIVER)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(syncAllCmd)
}

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "command", os.Args[1:], "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if cmd.Flags().Lookup("port") != nil {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
