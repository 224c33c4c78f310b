package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapyr/snapyr-bridge/adapter/cli"
	"github.com/snapyr/snapyr-bridge/internal/app"
	"github.com/snapyr/snapyr-bridge/pkg/config"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

func main() {
	// Setup logger
	logger := observability.LoggerFromEnv()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Rebuild the logger from the loaded config
	logCfg := observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel)
	logCfg.Version = cli.Version
	logger = observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// version still works without a container
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		cli.SetApp(cli.NewApp(container))
	}

	// Execute CLI
	err = cli.Execute(ctx)
	if container != nil {
		container.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
