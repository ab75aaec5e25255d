package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/server"
)

// ServeOptions holds options for the serve command
type ServeOptions struct {
	*GlobalOptions

	// Host is the server host address
	Host string

	// Port is the server port
	Port int

	// ConfigDir is the directory holding the server configuration
	ConfigDir string

	// BackendURL overrides the inference backend address
	BackendURL string
}

// NewServeCommand creates the serve command.
//
// The serve command starts the mgeo HTTP server, which exposes address
// standardization, training management, and model downloads.
//
// Usage:
//
//	mgeo serve [--host HOST] [--port PORT]
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for starting the server
func NewServeCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ServeOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mgeo server",
		Long: `Start the mgeo HTTP server for handling API requests.

The server proxies token-level inference to the model runtime, decodes
entities, classifies addresses into eleven levels, manages training runs,
and downloads checkpoints from ModelScope. Press Ctrl+C to gracefully shut
down.`,
		Example: `  # Start server on default settings (localhost:7869)
  mgeo serve

  # Start server on all interfaces
  mgeo serve --host 0.0.0.0

  # Point at a remote inference backend
  mgeo serve --backend-url http://gpu-box:7870

  # Start with verbose logging
  mgeo serve -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Port < 1 || opts.Port > 65535 {
				return fmt.Errorf("invalid port number: %d (must be between 1-65535)", opts.Port)
			}
			return runServe(cmd, opts)
		},
	}

	addServeFlags(cmd, opts)

	return cmd
}

// addServeFlags registers the serve command flags on cmd.
func addServeFlags(cmd *cobra.Command, opts *ServeOptions) {
	cmd.Flags().StringVar(&opts.Host, "host", "localhost",
		"server host address")
	cmd.Flags().IntVar(&opts.Port, "port", config.DefaultServerPort,
		"server port")
	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "",
		"configuration directory (default: ~/.mgeo)")
	cmd.Flags().StringVar(&opts.BackendURL, "backend-url", "",
		fmt.Sprintf("inference backend address (default: %s)", config.DefaultBackendURL))
}

// resolveServeConfig loads the application configuration and applies
// command-line overrides. Host and port from the config file win unless the
// corresponding flag was set explicitly.
func resolveServeConfig(cmd *cobra.Command, opts *ServeOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.Host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.Port
	}
	if opts.BackendURL != "" {
		cfg.Backend.URL = opts.BackendURL
	}
	return cfg, nil
}

// runServe executes the serve command logic.
//
// Starts the HTTP server and handles graceful shutdown on interrupt
// signals.
func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	if opts.Verbose {
		logger.SetDebug(true)
	}

	cfg, err := resolveServeConfig(cmd, opts)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	trainMgr, err := server.InitializeTrainManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize train manager: %w", err)
	}
	defer trainMgr.Close()

	srv := server.NewServer(cfg, trainMgr, GetVersion())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Press Ctrl+C to stop")
		if err := srv.Start(); err != nil {
			if isAddressInUse(err) {
				logger.Error("Port %d is already in use", cfg.Server.Port)
				logger.Error("Please stop the existing server or use a different port with --port")
				errChan <- fmt.Errorf("address already in use: %s", cfg.GetServerAddress())
				return
			}
			errChan <- err
			return
		}
		errChan <- nil
	}()

	select {
	case <-sigChan:
		logger.Info("Received interrupt signal, shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("Server stopped successfully")
		return nil

	case err := <-errChan:
		return err
	}
}

// isAddressInUse checks if the error is due to the address already being
// bound.
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "bind: Only one usage")
}
