package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scan-organizer/internal/bootstrap"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/repository/postgres"
)

var (
	historyLimit  int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent outcomes from the journal",
	Long: `Print the newest outcomes recorded in PostgreSQL, newest first.
Requires POSTGRES_DSN.

Examples:
  scan-organizer history
  scan-organizer history --limit 200 --failed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("history needs POSTGRES_DSN")
		}
		ctx, stop := signalContext()
		defer stop()

		repo, db, err := bootstrap.OpenJournal(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := repo.ListRecent(ctx, postgres.HistoryQuery{Limit: historyLimit, FailedOnly: historyFailed})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, rec := range records {
			finished := rec.FinishedAt.Local().Format("2006-01-02 15:04:05")
			if rec.Success {
				fmt.Fprintf(out, "%s  ok      %s -> %s\n", finished, rec.Candidate.Path, rec.Destination)
				continue
			}
			fmt.Fprintf(out, "%s  failed  %s [%s] %s\n", finished, rec.Candidate.Path, rec.FailedStage, rec.Error)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "no outcomes recorded")
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", postgres.DefaultHistoryLimit, "number of outcomes to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show failed outcomes only")
	rootCmd.AddCommand(historyCmd)
}
