package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/salespipe-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/salespipe-cli/internal/config"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
)

var (
	cfgFile   string
	debug     bool
	noColor   bool
	logFormat string
	// Pipeline/HTTP flags (override config if set)
	flagThreshold        float64
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "salespipe",
	Short: "salespipe: step-by-step cleaning and analysis of sales exports",
	Long: `salespipe loads a sales export (CSV or XLSX), maps its columns onto a canonical
schema and runs a seven-step cleaning pipeline with undo. The cleaned data feeds
KPIs, charts, a filtered dashboard and an AI-written business report.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { _ = logger.Sync() },
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printErr(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal: loadConfig reads rootCmd's flags,
	// which would otherwise form an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return loadConfig() }

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.salespipe/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.BoolVar(&noColor, "no-color", false, "disable coloured output")
	f.StringVar(&logFormat, "log-format", "", "log format: human or json (overrides config)")
	f.Float64Var(&flagThreshold, "threshold", 0, "missing-value threshold in percent for step 2 (overrides config)")
	f.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	f.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	f.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	f.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() error {
	setNoColor(noColor)
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("threshold") {
		cfg.MissingThreshold = flagThreshold
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Debug: debug, Format: cfg.LogFormat, File: cfg.LogFile}); err != nil {
		return err
	}
	if cfg.ModelCatalog != "" {
		if err := ai.MergeCatalogFile(cfg.ModelCatalog); err != nil {
			logger.L.Warnw("model catalog not loaded", "path", cfg.ModelCatalog, "error", err)
		}
	}
	return nil
}

// newRotator builds the AI key rotator from the loaded configuration.
func newRotator() (*ai.Rotator, error) {
	return ai.NewRotator(ai.RotatorConfig{
		Provider:    cfg.AIProvider,
		Model:       cfg.AIModel,
		Keys:        cfg.AIKeys,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Delay:       cfg.KeyRotationDelay(),
		Runtime: ai.RuntimeConfig{
			HTTPTimeout: cfg.HTTPTimeout(),
			RetryMax:    cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay(),
			MaxDelay:    cfg.RetryMaxDelay(),
			Host:        cfg.OllamaHost,
		},
	})
}
