package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "cryptodash",
	Short: "CryptoDash - crypto market grid and live price report",
	Long: `CryptoDash lists the coin market, keeps a selection of up to five
favorite coins and streams their live prices as percent change and USD charts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal outside development.
		_ = godotenv.Load(".env")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the command logger. Debug mode wins over the configured
// level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true)
	}
	return logger.NewWithLevel(false, cfg.Log.Level)
}

// loadConfig reads --config, or the defaults when it is not given.
func loadConfig() (*config.Config, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withApp handles common app setup and teardown for the one-shot commands.
func withApp(ctx context.Context, tweak func(*config.Config), fn func(a *app.App, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(cfg)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.NewFromConfig(ctx, cfg, log, nil)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	return fn(a, log)
}
