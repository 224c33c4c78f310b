package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapyr/snapyr-bridge/adapter/hostbridge"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the bridge over stdin/stdout",
	Long: `Serve reads call, host and sdk frames from stdin and writes result and
event frames to stdout, one JSON object per line, until stdin closes.

If SNAPYR_API_KEY is set the SDK is configured before the first frame.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		c := a.Container
		ctx := cmd.Context()

		if _, err := c.PruneJournal(ctx); err != nil {
			logger.Warn("journal prune failed", "error", err)
		}

		srv := hostbridge.NewServer(c.Module, logger)
		if c.Simulator != nil {
			srv.WithEmitter(c.Simulator)
		}
		c.HostBus.RegisterListener(srv.Listener())

		if err := c.Module.Start(ctx); err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := c.Module.Close(closeCtx); err != nil {
				logger.Warn("module shutdown incomplete", "error", err)
			}
		}()

		p, err := c.AutoConfigure(ctx)
		if err != nil {
			return err
		}
		if p != nil {
			if _, err := p.Await(ctx); err != nil {
				return fmt.Errorf("auto-configure: %w", err)
			}
			logger.Info("sdk configured from environment")
		}

		logger.Info("serving host bridge on stdio")
		return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "time to wait for queued commands and events on exit")
	rootCmd.AddCommand(serveCmd)
}
