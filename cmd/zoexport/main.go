package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Zuo-Peng/zo-export/internal/config"
	"github.com/Zuo-Peng/zo-export/internal/log"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagDataDir  string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "zoexport",
		Short:         "Zotero annotation exporter - hand documents and annotations to the companion importer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Zotero data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(annotationsCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(cleanCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}
