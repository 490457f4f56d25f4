package chart

import (
	"fmt"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
)

// Kind names the chart type a renderer should draw.
type Kind string

const (
	Bar        Kind = "bar"
	HBar       Kind = "hbar"
	Line       Kind = "line"
	Pie        Kind = "pie"
	GroupedBar Kind = "grouped-bar"
)

// Point is one plotted value. Series is set for grouped charts.
type Point struct {
	X      string
	Y      float64
	Series string
}

// Spec describes a chart without drawing it.
type Spec struct {
	Title  string
	Kind   Kind
	XLabel string
	YLabel string
	Points []Point
	// Empty is set when the data needed for the chart is absent; Title explains why.
	Empty bool
	Note  string
}

func missing(title string) Spec { return Spec{Title: title, Empty: true} }

// MissingValues plots null percentage per column, largest first.
func MissingValues(stats []steps.MissingStat) Spec {
	s := Spec{
		Title:  "Percentage of Missing Values per Column",
		Kind:   Bar,
		XLabel: "Column Name",
		YLabel: "Missing %",
	}
	if len(stats) == 0 {
		s.Empty = true
		s.Note = "No missing values found!"
		return s
	}
	for _, m := range stats {
		s.Points = append(s.Points, Point{X: m.Column, Y: m.Percent})
	}
	return s
}

// MonthlyTrend plots total Amount per Month in chronological order.
func MonthlyTrend(ds *dataset.Dataset) Spec {
	if !ds.HasColumn(schema.Month, schema.Amount) {
		return missing("Monthly Sales Trend (Data/Amount columns missing)")
	}
	s := Spec{Title: "Monthly Sales Revenue Trend", Kind: Line, XLabel: "Month/Year", YLabel: "Total Sales Amount"}
	for _, t := range kpi.MonthlySales(ds) {
		s.Points = append(s.Points, Point{X: t.Key, Y: t.Sum})
	}
	return s
}

// TopValues plots the ten most frequent values of col as horizontal bars.
func TopValues(ds *dataset.Dataset, col, title string) Spec {
	if !ds.HasColumn(col) {
		return missing(fmt.Sprintf("%s (%s column missing)", title, col))
	}
	s := Spec{Title: title, Kind: HBar, XLabel: col, YLabel: "Order Count"}
	for _, c := range kpi.TopCounts(kpi.ValueCounts(ds, col), 10) {
		s.Points = append(s.Points, Point{X: c.Key, Y: float64(c.Count)})
	}
	return s
}

// FulfilmentStatus plots order counts per fulfilment method split by status.
func FulfilmentStatus(ds *dataset.Dataset) Spec {
	if !ds.HasColumn(schema.Fulfilment, schema.Status) {
		return missing("Fulfillment Status (Fulfilment/Status columns missing)")
	}
	s := Spec{
		Title:  "Order Status Breakdown by Fulfillment Method",
		Kind:   GroupedBar,
		XLabel: "Fulfillment Method",
		YLabel: "Order Count",
	}
	for _, c := range kpi.CrossCount(ds, schema.Fulfilment, schema.Status) {
		s.Points = append(s.Points, Point{X: c.A, Y: float64(c.Count), Series: c.B})
	}
	return s
}

// ForStep returns the charts gated by a completed step.
func ForStep(n int, ds *dataset.Dataset, sum steps.Summary) []Spec {
	switch n {
	case 1:
		return []Spec{MissingValues(sum.Missing)}
	case 4:
		return []Spec{MonthlyTrend(ds)}
	case 5:
		return []Spec{
			TopValues(ds, schema.Category, "Top 10 Categories by Orders"),
			TopValues(ds, schema.Size, "Top Sizes by Order Count"),
		}
	case 6:
		return []Spec{FulfilmentStatus(ds)}
	}
	return nil
}
