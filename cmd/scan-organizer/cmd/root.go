package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kirillkom/scan-organizer/internal/adapters/tui"
	"github.com/kirillkom/scan-organizer/internal/bootstrap"
	"github.com/kirillkom/scan-organizer/internal/config"
	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/scan-organizer/internal/observability/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger

	modeFlag   string
	reportPath string
)

var rootCmd = &cobra.Command{
	Use:   "scan-organizer [folder]",
	Short: "Sort scanned documents into category folders",
	Long: `scan-organizer reads scanned PDFs and images from a folder, classifies
them with an AI model (or keyword rules when none is configured) and moves
each one to {folder}/{category}/{description}_{MMDDYYYY}.{ext}.

Modes:
  existing  process the files already in the folder, then exit
  watch     process files that appear from now on, until interrupted
  both      process existing files, then keep watching`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg = config.Load()
		logger = logging.NewLogger(bootstrap.ServiceName, cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
	RunE: runOrganize,
}

// Execute runs the root command and exits non-zero on fatal errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "run mode: existing, watch or both")
	rootCmd.Flags().StringVarP(&reportPath, "report", "r", "", "write an xlsx report of this run to the given path")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOrganize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	folder := cfg.ScanFolder
	if len(args) == 1 {
		folder = args[0]
	}
	folder, mode, err := resolveTarget(ctx, folder, modeFlag)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	keep := reportPath != "" || !mode.Continuous()
	summary, err := app.Run(ctx, folder, mode, bootstrap.RunOptions{KeepRecords: keep})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(summary.Processed, summary.Organized, summary.Failed, summary.Skipped, summary.Records))

	if reportPath != "" {
		if err := xlsx.Write(reportPath, summary.Records); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report_written", "path", reportPath, "records", len(summary.Records))
	}
	return nil
}

// resolveTarget fills in a missing folder or mode from the interactive
// prompt. Without a terminal both must be given up front.
func resolveTarget(ctx context.Context, folder, rawMode string) (string, domain.RunMode, error) {
	var mode domain.RunMode
	if rawMode != "" {
		parsed, err := domain.ParseRunMode(rawMode)
		if err != nil {
			return "", "", err
		}
		mode = parsed
	}
	if folder != "" && mode != "" {
		return folder, mode, nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", "", domain.WrapError(domain.ErrInvalidInput, "resolve target", errors.New("folder and --mode are required when stdin is not a terminal"))
	}

	promptedFolder, promptedMode, err := tui.Prompt(ctx, folder, folder == "")
	if err != nil {
		return "", "", err
	}
	if mode == "" {
		mode = promptedMode
	}
	return promptedFolder, mode, nil
}
