package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapyr/snapyr-bridge/internal/app"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
)

var tailEvents []string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with mirrored host events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print host events mirrored to RabbitMQ or Redis",
	Long: `Tail subscribes to the broker selected by EVENT_SINK and prints every
host event envelope as one JSON line until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		sub, err := app.NewRepositoryFactory(a.Container.Config, logger).Subscriber()
		if err != nil {
			return err
		}
		defer sub.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		sub.RegisterListener(eventbus.ListenerFunc(func(ctx context.Context, event *eventbus.HostEvent) error {
			return enc.Encode(event)
		}, tailEvents...))

		if err := sub.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tail stopped: %w", err)
		}
		return nil
	},
}

func init() {
	eventsTailCmd.Flags().StringSliceVar(&tailEvents, "event", nil, "event names to follow (default all)")

	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
