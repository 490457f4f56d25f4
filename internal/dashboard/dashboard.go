package dashboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"github.com/KaramelBytes/salespipe-cli/internal/pipeline"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
)

// EmptyWarning is shown when the filters leave no rows.
const EmptyWarning = "No data found for the selected custom filters."

const (
	DefaultTopN = 10
	MinTopN     = 5
	MaxTopN     = 20
)

var (
	// ErrDashboardLocked is returned until the pipeline has completed step 7.
	ErrDashboardLocked = errors.New("custom dashboard is available after step 7 completes")
	// ErrTopNRange rejects top state/city counts outside [MinTopN, MaxTopN].
	ErrTopNRange = fmt.Errorf("top N must be between %d and %d", MinTopN, MaxTopN)
)

// Dashboard is a read-only overlay over the completed pipeline dataset.
type Dashboard struct {
	base *dataset.Dataset
}

// Open snapshots the session's current dataset. Later changes to the session
// do not affect the dashboard, and the dashboard never writes back.
func Open(s *pipeline.Session) (*Dashboard, error) {
	if !s.Complete() {
		return nil, ErrDashboardLocked
	}
	return &Dashboard{base: s.Current()}, nil
}

// Rows is the unfiltered row count.
func (d *Dashboard) Rows() int { return d.base.Rows() }

// Filter selects the rows of a view. Zero values select everything.
type Filter struct {
	// From and To bound Date inclusively by calendar day.
	From, To    time.Time
	Categories  []string
	Sizes       []string
	Fulfilments []string
	B2BOnly     bool
	TopStates   int
	TopCities   int
}

func (f Filter) normalize() (Filter, error) {
	for _, n := range []*int{&f.TopStates, &f.TopCities} {
		if *n == 0 {
			*n = DefaultTopN
		}
		if *n < MinTopN || *n > MaxTopN {
			return f, fmt.Errorf("%w: got %d", ErrTopNRange, *n)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && day(f.To).Before(day(f.From)) {
		return f, fmt.Errorf("date range ends before it starts: %s > %s",
			f.From.Format(dataset.DateLayout), f.To.Format(dataset.DateLayout))
	}
	return f, nil
}

// Choices are the values a filter can select from.
type Choices struct {
	MinDate, MaxDate time.Time
	Categories       []string
	Sizes            []string
	Fulfilments      []string
	HasB2B           bool
}

// Options lists the available filter values of the unfiltered data.
func (d *Dashboard) Options() Choices {
	var c Choices
	if col, ok := d.base.Column(schema.Date); ok && col.Kind == dataset.KindDatetime {
		for _, v := range col.Values {
			if !v.Valid {
				continue
			}
			if c.MinDate.IsZero() || v.Time.Before(c.MinDate) {
				c.MinDate = v.Time
			}
			if v.Time.After(c.MaxDate) {
				c.MaxDate = v.Time
			}
		}
	}
	c.Categories = distinct(d.base, schema.Category)
	c.Sizes = distinct(d.base, schema.Size)
	c.Fulfilments = distinct(d.base, schema.Fulfilment)
	c.HasB2B = d.base.HasColumn(schema.B2B)
	return c
}

// Apply filters a copy of the dashboard data and builds every section over
// the result. An empty result wraps pipeline.ErrEmptyDataset.
func (d *Dashboard) Apply(f Filter) (*View, error) {
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	out := d.base.FilterRows(predicate(d.base, f))
	logger.L.Debugw("dashboard filter applied", "before", d.base.Rows(), "after", out.Rows())
	if out.Rows() == 0 {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrEmptyDataset, EmptyWarning)
	}
	return build(out, f), nil
}

// predicate combines the filters. Each test reads a disjoint set of columns,
// so the order of the tests does not change the selected rows.
func predicate(ds *dataset.Dataset, f Filter) func(int) bool {
	var tests []func(int) bool
	if date, ok := ds.Column(schema.Date); ok && date.Kind == dataset.KindDatetime && (!f.From.IsZero() || !f.To.IsZero()) {
		from, to := day(f.From), day(f.To)
		tests = append(tests, func(i int) bool {
			v := date.Values[i]
			if !v.Valid {
				return false
			}
			d := day(v.Time)
			return (f.From.IsZero() || !d.Before(from)) && (f.To.IsZero() || !d.After(to))
		})
	}
	if ds.HasColumn(schema.Category, schema.Size) {
		cat, _ := ds.Column(schema.Category)
		size, _ := ds.Column(schema.Size)
		if t := memberOf(cat, f.Categories); t != nil {
			tests = append(tests, t)
		}
		if t := memberOf(size, f.Sizes); t != nil {
			tests = append(tests, t)
		}
	}
	if ful, ok := ds.Column(schema.Fulfilment); ok {
		if t := memberOf(ful, f.Fulfilments); t != nil {
			tests = append(tests, t)
		}
	}
	if b2b, ok := ds.Column(schema.B2B); ok && f.B2BOnly {
		tests = append(tests, func(i int) bool {
			v := b2b.Values[i]
			return v.Valid && isTrue(b2b.Kind, v)
		})
	}
	return func(i int) bool {
		for _, t := range tests {
			if !t(i) {
				return false
			}
		}
		return true
	}
}

// memberOf returns nil when want is empty, meaning no restriction.
func memberOf(c *dataset.Column, want []string) func(int) bool {
	if len(want) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(want))
	for _, w := range want {
		set[w] = struct{}{}
	}
	return func(i int) bool {
		k, ok := c.Key(i)
		if !ok {
			return false
		}
		_, hit := set[k]
		return hit
	}
}

func isTrue(k dataset.Kind, v dataset.Value) bool {
	switch k {
	case dataset.KindBool:
		return v.Bool
	case dataset.KindNumeric:
		return v.Num != 0
	default:
		b, ok := parseBool(v.Str)
		return ok && b
	}
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true", "yes", "Yes":
		return true, true
	case "False", "FALSE", "false", "no", "No":
		return false, true
	}
	return false, false
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func distinct(ds *dataset.Dataset, col string) []string {
	c, ok := ds.Column(col)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for i := 0; i < c.Len(); i++ {
		k, ok := c.Key(i)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
