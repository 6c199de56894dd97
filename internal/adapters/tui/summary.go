package tui

import (
	"fmt"
	"strings"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

// RenderSummary formats the end-of-run tally. Failed files are listed with
// their error so the operator can act on them.
func RenderSummary(processed, organized, failed, skipped int, records []domain.OutcomeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %d processed\n", labelStyle.Render("Summary"), processed)
	fmt.Fprintf(&b, "%s %d\n", okStyle.Render("organized"), organized)
	if failed > 0 {
		fmt.Fprintf(&b, "%s    %d\n", errorStyle.Render("failed"), failed)
	} else {
		fmt.Fprintf(&b, "%s    %d\n", mutedStyle.Render("failed"), failed)
	}
	if skipped > 0 {
		fmt.Fprintf(&b, "%s   %d\n", warnStyle.Render("skipped"), skipped)
	}

	for _, rec := range records {
		if rec.Success {
			fmt.Fprintf(&b, "  %s → %s\n", rec.Candidate.Filename(), rec.Destination)
			continue
		}
		fmt.Fprintf(&b, "  %s %s (%s): %s\n", errorStyle.Render("✗"), rec.Candidate.Filename(), rec.FailedStage, rec.Error)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
