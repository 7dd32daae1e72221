package crawler

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary writes the run summaries as a table.
func RenderSummary(w io.Writer, summaries ...Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Platform", "Mode", "IDs", "Fetched", "Skipped", "Written", "Removed", "Excluded", "Failed", "Duration"})

	var total Summary
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Platform, s.Mode, s.IDs, s.Fetched, s.Skipped, s.Written, s.Removed, s.Excluded, s.Failed, s.Duration.Round(time.Millisecond)})
		total.IDs += s.IDs
		total.Fetched += s.Fetched
		total.Skipped += s.Skipped
		total.Written += s.Written
		total.Removed += s.Removed
		total.Excluded += s.Excluded
		total.Failed += s.Failed
		total.Duration += s.Duration
	}
	if len(summaries) > 1 {
		t.AppendFooter(table.Row{"Total", "", total.IDs, total.Fetched, total.Skipped, total.Written, total.Removed, total.Excluded, total.Failed, total.Duration.Round(time.Millisecond)})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
