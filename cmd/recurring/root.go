package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moneta/internal/app"
	"moneta/internal/config"
	"moneta/internal/logger"
	"moneta/internal/pipeline"
	"moneta/internal/services"
)

var (
	flagConfig string
	flagRemote string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Moneta recurring transaction processor",
	Long:  "Process due recurring transactions, consume due events and preview schedules.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagConfig != "" {
			_ = os.Setenv("MONETA_CONFIG", flagConfig)
		}
		level := os.Getenv("LOG_LEVEL")
		if flagQuiet {
			level = "warn"
		}
		logger.InitWithLevel(os.Getenv("ENV"), level)
	},
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (overrides MONETA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagRemote, "remote", "", "API base URL; process through its internal endpoint instead of the database")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

// newProcessor returns the remote pipeline client when --remote is set and
// the in-process processor otherwise. The returned func releases resources.
func newProcessor() (services.RecurringProcessor, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flagRemote != "" {
		if cfg.PipelineAPIKey == "" {
			return nil, nil, fmt.Errorf("PIPELINE_API_KEY is required with --remote")
		}
		client := pipeline.NewClient(flagRemote, cfg.PipelineAPIKey, &http.Client{Timeout: 2 * time.Minute})
		return client, func() {}, nil
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return application.Services.Processor, application.Close, nil
}
