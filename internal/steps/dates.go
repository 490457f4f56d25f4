package steps

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
)

// Legacy columns that carry no usable data once the date step runs.
var legacyColumns = []string{"New", "PendingS"}

// Order dates are month-day-two-digit-year.
var dateLayouts = []string{"01-02-06", "1-2-06"}

const (
	noteDerived = "The 'Date' column was converted to datetime objects. Derived columns ('Month', 'Year', 'DayOfWeek') added for trend analysis. Critical rows (missing Date/Amount) were dropped."
	noteSkipped = "Date conversion skipped: 'Date' column not found in DataFrame after mapping."
)

// ParseOrderDate parses a month-day-yy date.
func ParseOrderDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DeriveDates renames mapped columns to canonical names, drops rows without
// Amount or a parseable Date, normalizes B2B and adds Month, Year and DayOfWeek.
// A missing Date column is not an error: the renamed data is returned with a note.
func DeriveDates(ds *dataset.Dataset, p Params) (*dataset.Dataset, Summary, error) {
	out, err := ds.Rename(p.Mapping.SourceToCanonical())
	if err != nil {
		return nil, Summary{}, err
	}
	sum := Summary{RowsBefore: ds.Rows()}
	if !out.HasColumn(schema.Date) {
		sum.Skipped = true
		sum.Note = noteSkipped
		sum.RowsAfter = out.Rows()
		return out, sum, nil
	}

	out = out.DropColumns(legacyColumns...)
	if amt, ok := out.Column(schema.Amount); ok {
		out = out.FilterRows(func(i int) bool { return !amt.IsNull(i) })
	}

	dates := parseDateColumn(out)
	out = out.FilterRows(func(i int) bool { return dates.Values[i].Valid })
	dates = &dataset.Column{Name: schema.Date, Kind: dataset.KindDatetime, Values: compact(dates.Values)}
	if out, err = out.WithColumn(dates); err != nil {
		return nil, Summary{}, err
	}

	if c, ok := out.Column(schema.B2B); ok {
		if out, err = out.WithColumn(normalizeB2B(c)); err != nil {
			return nil, Summary{}, err
		}
	}

	month := make([]dataset.Value, len(dates.Values))
	year := make([]dataset.Value, len(dates.Values))
	dow := make([]dataset.Value, len(dates.Values))
	for i, v := range dates.Values {
		month[i] = dataset.String(v.Time.Format("2006-01"))
		year[i] = dataset.Number(float64(v.Time.Year()))
		dow[i] = dataset.String(v.Time.Weekday().String())
	}
	for _, c := range []*dataset.Column{
		dataset.NewColumn(schema.Month, dataset.KindString, month...),
		dataset.NewColumn(schema.Year, dataset.KindNumeric, year...),
		dataset.NewColumn(schema.DayOfWeek, dataset.KindString, dow...),
	} {
		if out, err = out.WithColumn(c); err != nil {
			return nil, Summary{}, fmt.Errorf("derive %s: %w", c.Name, err)
		}
	}
	sum.Note = noteDerived
	sum.RowsAfter = out.Rows()
	return out, sum, nil
}

func parseDateColumn(ds *dataset.Dataset) *dataset.Column {
	c, _ := ds.Column(schema.Date)
	vals := make([]dataset.Value, c.Len())
	for i := range vals {
		if c.IsNull(i) {
			continue
		}
		if c.Kind == dataset.KindDatetime {
			vals[i] = c.Values[i]
			continue
		}
		if t, ok := ParseOrderDate(c.Format(i)); ok {
			vals[i] = dataset.Datetime(t)
		}
	}
	return &dataset.Column{Name: schema.Date, Kind: dataset.KindDatetime, Values: vals}
}

func compact(vals []dataset.Value) []dataset.Value {
	out := make([]dataset.Value, 0, len(vals))
	for _, v := range vals {
		if v.Valid {
			out = append(out, v)
		}
	}
	return out
}

// normalizeB2B maps exactly True/False/Yes/No to bool; anything else,
// including other casings, becomes null.
func normalizeB2B(c *dataset.Column) *dataset.Column {
	vals := make([]dataset.Value, c.Len())
	for i, v := range c.Values {
		if !v.Valid {
			continue
		}
		if c.Kind == dataset.KindBool {
			vals[i] = v
			continue
		}
		switch c.Format(i) {
		case "Yes", "True":
			vals[i] = dataset.Boolean(true)
		case "No", "False":
			vals[i] = dataset.Boolean(false)
		}
	}
	return &dataset.Column{Name: c.Name, Kind: dataset.KindBool, Values: vals}
}
