package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
)

// Options controls profiling.
type Options struct {
	// SampleRows is how many head rows to include in the report.
	SampleRows int
	// TopValues caps the categorical top list.
	TopValues int
	// MaxCategories is the distinct-value limit under which a string column
	// is reported as categorical rather than free text.
	MaxCategories int
}

// DefaultOptions returns reasonable defaults for dataset profiles.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 5, MaxCategories: 50}
}

// Report is a markdown-friendly profile of a dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|bool|categorical|text
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Datetime range
	First time.Time
	Last  time.Time
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// MissingPct is the share of missing cells in percent.
func (c ColumnSummary) MissingPct() float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100 / float64(total)
}

// Profile summarizes ds. Name labels the report, usually the source file.
func Profile(name string, ds *dataset.Dataset, opt Options) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = 50
	}
	rep := &Report{Name: name, Rows: ds.Rows()}
	for _, c := range ds.Columns() {
		rep.Cols = append(rep.Cols, summarize(ds, c, opt))
	}
	for i := 0; i < ds.Rows() && i < opt.SampleRows; i++ {
		rep.Samples = append(rep.Samples, ds.Record(i))
	}
	for _, cs := range rep.Cols {
		if cs.NonNull == 0 && rep.Rows > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q has no values", cs.Name))
		}
	}
	if rep.Rows == 0 {
		rep.Warnings = append(rep.Warnings, "dataset has no rows")
	}
	return rep
}

func summarize(ds *dataset.Dataset, c *dataset.Column, opt Options) ColumnSummary {
	cs := ColumnSummary{Name: c.Name, Unique: kpi.Unique(ds, c.Name)}
	// Welford accumulators for numeric columns
	var n int
	var mean, m2 float64
	cs.Min, cs.Max = math.Inf(1), math.Inf(-1)
	for i, v := range c.Values {
		if !v.Valid {
			cs.Missing++
			continue
		}
		cs.NonNull++
		switch c.Kind {
		case dataset.KindNumeric:
			n++
			d := v.Num - mean
			mean += d / float64(n)
			m2 += d * (v.Num - mean)
			cs.Min = math.Min(cs.Min, v.Num)
			cs.Max = math.Max(cs.Max, v.Num)
		case dataset.KindDatetime:
			if cs.First.IsZero() || v.Time.Before(cs.First) {
				cs.First = v.Time
			}
			if v.Time.After(cs.Last) {
				cs.Last = v.Time
			}
		case dataset.KindString:
			if len(cs.ExampleTexts) < 3 && c.Format(i) != "" {
				cs.ExampleTexts = append(cs.ExampleTexts, c.Format(i))
			}
		}
	}
	switch c.Kind {
	case dataset.KindNumeric:
		cs.Kind = "numeric"
		if n == 0 {
			cs.Min, cs.Max = 0, 0
		}
		cs.Mean = mean
		if n > 1 {
			cs.Std = math.Sqrt(m2 / float64(n-1))
		}
		return cs
	case dataset.KindDatetime:
		cs.Kind = "datetime"
	case dataset.KindBool:
		cs.Kind = "bool"
	default:
		if cs.Unique <= opt.MaxCategories {
			cs.Kind = "categorical"
		} else {
			cs.Kind = "text"
		}
	}
	cs.Min, cs.Max = 0, 0
	if cs.Kind == "categorical" || cs.Kind == "bool" {
		cs.ExampleTexts = nil
		for _, vc := range kpi.TopCounts(kpi.ValueCounts(ds, c.Name), opt.TopValues) {
			cs.TopValues = append(cs.TopValues, CategoryCount{Value: vc.Key, Count: vc.Count})
		}
	}
	return cs
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(int64(r.Rows))))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d)",
			safeName(c.Name), c.Kind, c.NonNull, c.MissingPct(), c.Unique))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "datetime":
			if !c.First.IsZero() {
				b.WriteString(fmt.Sprintf("; from %s to %s", c.First.Format(dataset.DateLayout), c.Last.Format(dataset.DateLayout)))
			}
		case "categorical", "bool":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				b.WriteString(safeVal(strings.Join(c.ExampleTexts, " | ")))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		names := make([]string, len(r.Cols))
		rule := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			names[i] = safeName(c.Name)
			rule[i] = "---"
		}
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		b.WriteString("| " + strings.Join(rule, " | ") + " |\n")
		for _, row := range r.Samples {
			cells := make([]string, len(r.Cols))
			for i := range r.Cols {
				if i < len(row) {
					val := row[i]
					if len(val) > 80 {
						val = val[:77] + "..."
					}
					cells[i] = safeVal(val)
				}
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
