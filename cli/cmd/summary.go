package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/minecart-io/minecart/runtime"
	"github.com/minecart-io/minecart/types"
)

// timeRounding trims sub-10ms noise from the displayed duration.
const timeRounding = 10 * time.Millisecond

// printSummary renders the end-of-run summary tables.
func printSummary(w io.Writer, result *runtime.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", result.RunMeta.RunID})
	t.AppendRows([]table.Row{
		{"Mode", string(result.RunMeta.Mode)},
		{"Outcome", string(result.Outcome.Status)},
		{"Duration", result.Duration.Round(timeRounding).String()},
	})
	t.AppendSeparator()
	t.AppendRows(counterRows(result))
	t.Render()

	if result.Outcome.Message != "" {
		fmt.Fprintln(w, result.Outcome.Message)
	}

	if len(result.ManualRecords) > 0 {
		fmt.Fprintf(w, "\nManual deletion required for %d record(s): %s\n",
			len(result.ManualRecords), joinIDs(result.ManualRecords))
	}

	if len(result.FailedItems) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetStyle(table.StyleLight)
		ft.AppendHeader(table.Row{"Record", "Attachment", "Name", "Reason"})
		for _, item := range result.FailedItems {
			ft.AppendRow(table.Row{item.RecordID, item.AttachmentID, item.Name, item.Reason})
		}
		fmt.Fprintln(w)
		ft.Render()
	}
}

func counterRows(result *runtime.RunResult) []table.Row {
	stats := result.Stats
	rows := []table.Row{
		{"Pages fetched", stats.PagesFetched},
		{"Records seen", stats.RecordsSeen},
		{"Records with attachments", stats.RecordsWithItems},
	}

	switch result.RunMeta.Mode {
	case types.ModeDownload:
		rows = append(rows,
			table.Row{"Downloads succeeded", stats.DownloadsSucceeded},
			table.Row{"Downloads failed", stats.DownloadsFailed},
		)
		if stats.DecodeFallbacks > 0 {
			rows = append(rows, table.Row{"Filename decode fallbacks", stats.DecodeFallbacks})
		}
	case types.ModeDelete:
		rows = append(rows,
			table.Row{"Deletes succeeded", stats.DeletesSucceeded},
			table.Row{"Deletes failed", stats.DeletesFailed},
			table.Row{"Records skipped", stats.RecordsSkipped},
		)
	}

	return rows
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
