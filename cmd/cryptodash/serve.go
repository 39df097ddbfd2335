package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/cryptodash/internal/api"
	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CryptoDash server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&templatesDir, "templates", "", "load page templates from this directory instead of the embedded ones")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	var reg *metrics.Registry
	metricsPath := ""
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		metricsPath = cfg.Metrics.Path
	}

	a, err := app.NewFromConfig(cmd.Context(), cfg, log, reg)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	log.Info("starting CryptoDash server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("live_interval", cfg.Live.Interval),
	)

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TemplatesDir: templatesDir,
		APIKey:       cfg.Server.APIKey,
		MaxSessions:  cfg.Server.MaxSessions,
		MetricsPath:  metricsPath,
	}, api.Dependencies{App: a, Metrics: reg}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down CryptoDash server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
