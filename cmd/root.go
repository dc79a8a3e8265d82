package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nuveplayer/nuve/internal/app"
	"github.com/nuveplayer/nuve/internal/config"
	"github.com/nuveplayer/nuve/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "nuve",
	Short:         "Nuvé is a media player for audio, video and YouTube tracks.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(configPath)
		if err != nil {
			return err
		}

		application, err := app.NewApplication(app.Options{Settings: settings})
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		// Ensure a graceful shutdown
		defer func() {
			if err := application.Shutdown(); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
			}
		}()

		// Blocks until the window is closed
		application.Run()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings reads the configuration and builds the command logger.
func loadSettings() (*config.Config, *slog.Logger, func() error, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog := logger.NewLogger(logger.Config{
		Level:      logger.ParseLevel(settings.Log.Level),
		Format:     settings.Log.Format,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
	})
	return settings, log, closeLog, nil
}
