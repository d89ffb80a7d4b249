package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// timePrecision keeps elapsed durations readable in summaries.
const timePrecision = 10 * time.Millisecond

// WriteComputeSummary prints a human-readable wrap-up of a compute run.
func WriteComputeSummary(w io.Writer, result *ComputeResult) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, "Compute summary")

	t := newSummaryTable(w)
	t.AppendRow(table.Row{"Input files", result.Files})
	t.AppendRow(table.Row{"Successful units", statusCount(result.Successful, color.FgGreen)})
	t.AppendRow(table.Row{"Failed units", statusCount(result.Failed, color.FgRed)})
	t.AppendRow(table.Row{"Processed windows", result.Windows})
	t.AppendRow(table.Row{"Artifacts written", len(result.Artifacts)})
	t.AppendRow(table.Row{"Bytes written", humanize.Bytes(uint64(result.BytesWritten))})
	t.AppendRow(table.Row{"Elapsed", result.Elapsed.Round(timePrecision)})
	t.Render()

	if result.Failed > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d unit(s) failed, see the log for details\n", result.Failed)
	}
}

// WritePlotSummary prints a human-readable wrap-up of a plot run.
func WritePlotSummary(w io.Writer, result *PlotResult) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, "Plot summary")

	t := newSummaryTable(w)
	t.AppendRow(table.Row{"Artifacts", result.Artifacts})
	t.AppendRow(table.Row{"Channel groups", result.Groups})
	t.AppendRow(table.Row{"Successful groups", statusCount(result.Successful, color.FgGreen)})
	t.AppendRow(table.Row{"Failed groups", statusCount(result.Failed, color.FgRed)})
	t.AppendRow(table.Row{"Plots written", len(result.Images)})
	t.AppendRow(table.Row{"Elapsed", result.Elapsed.Round(timePrecision)})
	t.Render()

	if len(result.Images) > 0 {
		fmt.Fprintln(w, "Plots:")

		for _, image := range result.Images {
			fmt.Fprintf(w, "  %s\n", image)
		}
	}
}

func newSummaryTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false

	return t
}

// statusCount colors a counter green or red depending on whether it reports
// failures, but only when the stream supports it.
func statusCount(n int, ok color.Attribute) string {
	if n == 0 && ok == color.FgRed {
		return "0"
	}

	return color.New(ok).Sprint(n)
}
