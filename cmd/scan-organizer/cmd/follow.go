package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scan-organizer/internal/bootstrap"
	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Stream outcomes published on NATS as JSON lines",
	Long: `Subscribe to NATS_SUBJECT and print every outcome another
scan-organizer process publishes, until interrupted. Requires NATS_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return fmt.Errorf("follow needs NATS_URL")
		}
		ctx, stop := signalContext()
		defer stop()

		publisher, err := bootstrap.OpenPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		return publisher.Follow(ctx, func(_ context.Context, record domain.OutcomeRecord) error {
			return enc.Encode(record)
		})
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
}
