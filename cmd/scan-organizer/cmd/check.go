package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scan-organizer/internal/bootstrap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify OCR binaries, the classifier and optional sinks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		failed := 0
		for _, res := range bootstrap.Diagnose(ctx, cfg, logger) {
			status := "ok  "
			if !res.OK {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-10s %s\n", status, res.Name, res.Detail)
		}
		if failed > 0 {
			return errors.New("environment check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
