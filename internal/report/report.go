// Package report renders cleanup run reports for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/catherinevee/tenantcleaner/internal/cleanup"
)

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, report *cleanup.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// WriteTable writes the report as a human-readable table with per-item
// verdicts followed by a summary line.
func WriteTable(w io.Writer, report *cleanup.Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Name", "ID", "Verdict", "Reasons"})
	table.SetAutoWrapText(false)

	for _, decision := range report.Decisions {
		table.Append([]string{
			decision.Item.Type.String(),
			decision.Item.Name,
			decision.Item.ID.String(),
			verdict(decision, report.DryRun),
			strings.Join(reasons(decision), "; "),
		})
	}
	table.Render()

	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	_, err := fmt.Fprintf(w, "\nRun %s%s: %d candidates, %d kept, %d eligible, %d deleted, %d failed in %s\n",
		report.RunID, mode,
		len(report.Decisions), report.Kept, report.Eligible,
		report.Deleted, report.Failed, report.Duration.Round(time.Millisecond),
	)
	return err
}

func verdict(decision cleanup.Decision, dryRun bool) string {
	switch {
	case decision.DeleteError != "":
		return color.RedString("delete failed")
	case decision.Deleted:
		return color.RedString("deleted")
	case decision.Eligible && dryRun:
		return color.YellowString("would delete")
	case decision.Eligible:
		return color.YellowString("eligible")
	default:
		return color.GreenString("kept")
	}
}

// reasons returns the reason strings to display for a decision. For kept
// items only the vetoes matter; for eligible items every reason is shown so
// the report explains why nothing objected.
func reasons(decision cleanup.Decision) []string {
	var out []string
	for _, outcome := range decision.Outcomes {
		if decision.Prevented() && !outcome.Prevent {
			continue
		}
		out = append(out, outcome.Reason)
	}
	return out
}
