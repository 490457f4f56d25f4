package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/salespipe-cli/internal/ai"
	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/pipeline"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
)

func setNoColor(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func printSuccess(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgGreen).Sprintf("✓ "+msg, params...))
}

func printInfo(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgCyan).Sprintf(msg, params...))
}

func printWarning(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgYellow).Sprintf("⚠ "+msg, params...))
}

// printErr prints err with a remediation hint for AI failures.
func printErr(w io.Writer, err error) {
	fmt.Fprintln(w, color.New(color.FgRed).Sprint("✗ Error: "+err.Error()))
	if h := ai.Hint(err); h != "" {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("  hint: "+h))
	}
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.Bold).Sprint(title))
	fmt.Fprintln(w, strings.Repeat("-", len([]rune(title))))
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	return tw
}

// printDataset renders the first n rows and the total row count.
func printDataset(w io.Writer, ds *dataset.Dataset, n int) {
	if ds == nil || ds.Width() == 0 {
		printInfo(w, "(no data)")
		return
	}
	tw := newTable(w, ds.Names()...)
	head := ds.Head(n)
	for i := 0; i < head.Rows(); i++ {
		tw.Append(head.Record(i))
	}
	tw.Render()
	printInfo(w, "Showing %d of %d rows.", head.Rows(), ds.Rows())
}

func printMissing(w io.Writer, stats []steps.MissingStat) {
	tw := newTable(w, "Column", "Missing", "Missing %")
	for _, s := range stats {
		tw.Append([]string{s.Column, fmt.Sprint(s.Count), fmt.Sprintf("%.2f", s.Percent)})
	}
	tw.Render()
}

func printKPIs(w io.Writer, items []kpi.Item) {
	tw := newTable(w, "Metric", "Value")
	for _, it := range items {
		tw.Append([]string{it.Label, it.Value})
	}
	tw.Render()
}

// printStepSummary renders what a step reported.
func printStepSummary(w io.Writer, sum steps.Summary, sampleRows int) {
	heading(w, fmt.Sprintf("Step %d: %s", sum.Step, sum.Title))
	switch sum.Step {
	case 1:
		printMissing(w, sum.Missing)
		if sum.NullRows == 0 {
			printSuccess(w, "No rows with missing values.")
			break
		}
		printInfo(w, "%d rows contain at least one missing value.", sum.NullRows)
		if sum.Sample != nil {
			printDataset(w, sum.Sample, sampleRows)
		}
	case 2:
		if len(sum.Dropped) == 0 {
			printInfo(w, "No columns dropped.")
		} else {
			printMissing(w, sum.Dropped)
		}
	case 3:
		if sum.Skipped {
			printWarning(w, "%s", sum.Note)
			return
		}
		printInfo(w, "Rows: %d -> %d", sum.RowsBefore, sum.RowsAfter)
	default:
		if sum.DataReady {
			printSuccess(w, "Data ready for analysis.")
		}
	}
	if sum.Note != "" {
		printInfo(w, "%s", sum.Note)
	}
}

func printStatus(w io.Writer, st pipeline.Status) {
	tw := newTable(w, "Session", "Loaded", "Mapped", "Step", "Rows", "Columns", "Threshold", "Snapshots")
	snaps := make([]string, len(st.Snapshots))
	for i, s := range st.Snapshots {
		snaps[i] = fmt.Sprint(s)
	}
	tw.Append([]string{
		st.ID[:8], yesNo(st.Loaded), yesNo(st.Mapped), fmt.Sprintf("%d/%d", st.Pointer, steps.Last),
		fmt.Sprint(st.Rows), fmt.Sprint(st.Columns), fmt.Sprintf("%.1f%%", st.Threshold), strings.Join(snaps, ","),
	})
	tw.Render()
	var te *pipeline.TransformError
	if errors.As(st.LastError, &te) {
		printWarning(w, "last failure: %v", te)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
