package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Summary is the one-page snapshot document for a completed step.
type Summary struct {
	RunID        string
	Step         int
	GeneratedAt  time.Time
	TotalRecords int
	TotalSales   float64
	TotalOrders  int
}

// NewSummary computes the snapshot metrics of ds after step.
func NewSummary(ds *dataset.Dataset, step int) Summary {
	return Summary{
		RunID:        uuid.NewString(),
		Step:         step,
		GeneratedAt:  time.Now().UTC(),
		TotalRecords: ds.Rows(),
		TotalSales:   kpi.Sum(ds, schema.Amount),
		TotalOrders:  kpi.Unique(ds, schema.OrderID),
	}
}

// FileName is the base name of the rendered document.
func (s Summary) FileName() string { return fmt.Sprintf("analysis_summary_step_%d.md", s.Step) }

// Lines returns the metric lines in display order.
func (s Summary) Lines() []string {
	return []string{
		"Total Records: " + humanize.Comma(int64(s.TotalRecords)),
		"Total Sales: " + kpi.Rupees(s.TotalSales),
		"Total Orders: " + humanize.Comma(int64(s.TotalOrders)),
		fmt.Sprintf("Current Step Completed: %d", s.Step),
	}
}

// Note is the closing paragraph.
func (s Summary) Note() string {
	return fmt.Sprintf("This report represents the data state after completing Step %d of the pipeline. "+
		"Use this summary to track transformations and key performance indicators.", s.Step)
}

// Markdown renders the document.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Snapshot Report - Step %d\n\n", s.Step)
	b.WriteString("## Key Snapshot Data:\n\n")
	for _, l := range s.Lines() {
		b.WriteString("- " + l + "\n")
	}
	b.WriteString("\n" + s.Note() + "\n\n")
	fmt.Fprintf(&b, "_Run %s, generated %s_\n", s.RunID, s.GeneratedAt.Format(time.RFC3339))
	return b.String()
}
