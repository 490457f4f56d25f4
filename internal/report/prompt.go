package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/dustin/go-humanize"
)

var (
	// ErrMissingAnalysisColumns blocks the final insights report.
	ErrMissingAnalysisColumns = errors.New("Cannot generate detailed AI report: One or more critical analysis columns are missing.")
	// ErrMissingFilteredColumns blocks the insights report over a filtered view.
	ErrMissingFilteredColumns = errors.New("Cannot generate detailed AI report: One or more critical analysis columns are missing from the filtered data.")
)

// InsightsColumns must all be present for the final report.
var InsightsColumns = []string{schema.Amount, schema.OrderID, schema.Category, schema.ShipState, schema.Fulfilment, schema.Month}

// FilteredInsightsColumns must all be present for the filtered-view report.
var FilteredInsightsColumns = []string{schema.Amount, schema.OrderID, schema.Category, schema.ShipState, schema.Fulfilment}

const (
	insightsLead = "Act as a Senior Business Strategist. Analyze the provided Amazon Sales data snapshots and generate a concise business insight report with 3 key findings and 3 actionable recommendations."
	insightsTail = "Focus on inventory strategy (based on categories), regional expansion (based on states), and sales trends."

	filteredLead = "Act as a Senior Business Strategist. Analyze the user's currently filtered sales data and generate a concise business insight report with 3 key findings and 3 actionable recommendations."
	filteredTail = "Focus on inventory strategy, regional performance, and sales trends within this specific segment."
)

// InsightsPrompt builds the final business insight prompt for a fully
// processed dataset.
func InsightsPrompt(ds *dataset.Dataset) (string, error) {
	if !ds.HasColumn(InsightsColumns...) {
		return "", ErrMissingAnalysisColumns
	}
	return insights(ds, insightsLead, insightsTail), nil
}

// FilteredInsightsPrompt is InsightsPrompt for a dashboard view. Month is
// optional; sections whose columns are absent say so in the prompt.
func FilteredInsightsPrompt(ds *dataset.Dataset) (string, error) {
	if !ds.HasColumn(FilteredInsightsColumns...) {
		return "", ErrMissingFilteredColumns
	}
	return insights(ds, filteredLead, filteredTail), nil
}

func insights(ds *dataset.Dataset, lead, tail string) string {
	monthly := "Data not available (Missing Month/Amount columns)"
	if ds.HasColumn(schema.Month, schema.Amount) {
		monthly = totals(kpi.MonthlySales(ds), kpi.Whole)
	}
	categories := "Data not available (Missing Category column)"
	if ds.HasColumn(schema.Category) {
		categories = counts(kpi.TopCounts(kpi.ValueCounts(ds, schema.Category), 5))
	}
	states := "Data not available (Missing ship-state/Amount columns)"
	if ds.HasColumn(schema.ShipState, schema.Amount) {
		states = totals(kpi.Largest(kpi.GroupSum(ds, schema.ShipState, schema.Amount), 5), kpi.Whole)
	}

	var b strings.Builder
	b.WriteString(lead + "\n\n")
	b.WriteString("--- Data Context ---\n")
	fmt.Fprintf(&b, "Total Records: %s\n", humanize.Comma(int64(ds.Rows())))
	fmt.Fprintf(&b, "Total Sales: %s\n", kpi.Whole(kpi.Sum(ds, schema.Amount)))
	fmt.Fprintf(&b, "Avg. Order Value: %s\n\n", humanize.FormatFloat("#,###.##", kpi.Mean(ds, schema.Amount)))
	fmt.Fprintf(&b, "Monthly Sales Trend (Month: Total Sales): %s\n", monthly)
	fmt.Fprintf(&b, "Top 5 Categories (Category: Count): %s\n", categories)
	fmt.Fprintf(&b, "Top 5 States by Sales (State: Total Sales): %s\n", states)
	b.WriteString("---\n\n")
	b.WriteString(tail + "\n")
	return b.String()
}

func totals(ts []kpi.Total, format func(float64) string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.Key + ": " + format(t.Sum)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func counts(cs []kpi.Count) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s: %d", c.Key, c.Count)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
