package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
)

const barWidth = 30

// Render writes a chart as a table with proportional bars.
func Render(w io.Writer, s Spec) {
	fmt.Fprintf(w, "%s\n", s.Title)
	if s.Empty {
		if s.Note != "" {
			fmt.Fprintf(w, "  %s\n", s.Note)
		}
		return
	}
	peak := 0.0
	for _, p := range s.Points {
		peak = math.Max(peak, math.Abs(p.Y))
	}
	tw := tablewriter.NewWriter(w)
	header := []string{s.XLabel}
	if s.Kind == GroupedBar {
		header = append(header, "Series")
	}
	tw.SetHeader(append(header, s.YLabel, ""))
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	for _, p := range s.Points {
		row := []string{p.X}
		if s.Kind == GroupedBar {
			row = append(row, p.Series)
		}
		tw.Append(append(row, formatY(p.Y), bar(p.Y, peak)))
	}
	tw.Render()
}

func bar(v, peak float64) string {
	if peak == 0 {
		return ""
	}
	n := int(math.Round(math.Abs(v) / peak * barWidth))
	return strings.Repeat("█", n)
}

func formatY(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
