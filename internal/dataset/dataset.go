package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindNumeric
	KindDatetime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDatetime:
		return "datetime"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// DateLayout is used when rendering datetime cells.
const DateLayout = "2006-01-02"

// Value is a single cell. Only the field matching the column Kind is meaningful.
type Value struct {
	Valid bool
	Str   string
	Num   float64
	Time  time.Time
	Bool  bool
}

// Null is the missing value.
var Null = Value{}

func String(s string) Value { return Value{Valid: true, Str: s} }
func Number(f float64) Value { return Value{Valid: true, Num: f} }
func Datetime(t time.Time) Value { return Value{Valid: true, Time: t} }
func Boolean(b bool) Value { return Value{Valid: true, Bool: b} }

// Column is a named, typed vector of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn builds a column from values.
func NewColumn(name string, kind Kind, values ...Value) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return !c.Values[i].Valid }

// Format renders cell i as display text; nulls render as "".
func (c *Column) Format(i int) string {
	v := c.Values[i]
	if !v.Valid {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDatetime:
		return v.Time.Format(DateLayout)
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	default:
		return v.Str
	}
}

// Key returns a comparable grouping key for cell i; ok is false for nulls.
func (c *Column) Key(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	return c.Format(i), true
}

func (c *Column) clone() *Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

func (c *Column) equal(o *Column) bool {
	if c.Name != o.Name || c.Kind != o.Kind || len(c.Values) != len(o.Values) {
		return false
	}
	for i := range c.Values {
		a, b := c.Values[i], o.Values[i]
		if a.Valid != b.Valid {
			return false
		}
		if !a.Valid {
			continue
		}
		switch c.Kind {
		case KindNumeric:
			if a.Num != b.Num {
				return false
			}
		case KindDatetime:
			if !a.Time.Equal(b.Time) {
				return false
			}
		case KindBool:
			if a.Bool != b.Bool {
				return false
			}
		default:
			if a.Str != b.Str {
				return false
			}
		}
	}
	return true
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	cols  []*Column
	index map[string]int
	rows  int
}

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
)

// New assembles a Dataset. Columns are used as given, not copied.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, c.Len(), d.rows)
		}
		d.index[c.Name] = i
		d.cols = append(d.cols, c)
	}
	return d, nil
}

// MustNew is New for literals in tests and fixed tables.
func MustNew(cols ...*Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}

// Empty returns a dataset with no columns and no rows.
func Empty() *Dataset { return &Dataset{index: map[string]int{}} }

func (d *Dataset) Rows() int  { return d.rows }
func (d *Dataset) Width() int { return len(d.cols) }

// Names lists column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in order. Callers must not mutate them.
func (d *Dataset) Columns() []*Column { return d.cols }

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// HasColumn reports whether every named column is present.
func (d *Dataset) HasColumn(names ...string) bool {
	for _, n := range names {
		if _, ok := d.index[n]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy that shares no cell storage with d.
func (d *Dataset) Clone() *Dataset {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.clone()
	}
	out := &Dataset{cols: cols, index: make(map[string]int, len(cols)), rows: d.rows}
	for i, c := range cols {
		out.index[c.Name] = i
	}
	return out
}

// Equal reports value equality: same columns in the same order with the same cells.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.rows != o.rows || len(d.cols) != len(o.cols) {
		return false
	}
	for i := range d.cols {
		if !d.cols[i].equal(o.cols[i]) {
			return false
		}
	}
	return true
}

// NullCount counts missing cells in the named column.
func (d *Dataset) NullCount(name string) int {
	c, ok := d.Column(name)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

// NullPct is the share of missing cells in percent. It is 0 for an empty dataset.
func (d *Dataset) NullPct(name string) float64 {
	if d.rows == 0 {
		return 0
	}
	return float64(d.NullCount(name)) / float64(d.rows) * 100
}

// DropColumns returns a copy without the named columns. Unknown names are ignored.
func (d *Dataset) DropColumns(names ...string) *Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []*Column
	for _, c := range d.cols {
		if !drop[c.Name] {
			keep = append(keep, c.clone())
		}
	}
	out := MustNew(keep...)
	if len(keep) == 0 {
		out.rows = d.rows
	}
	return out
}

// FilterRows returns a copy holding only rows for which keep returns true.
func (d *Dataset) FilterRows(keep func(row int) bool) *Dataset {
	var idx []int
	for i := 0; i < d.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return d.Take(idx)
}

// Take returns a copy holding the given rows in the given order.
func (d *Dataset) Take(rows []int) *Dataset {
	cols := make([]*Column, len(d.cols))
	for ci, c := range d.cols {
		vals := make([]Value, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		cols[ci] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	out := MustNew(cols...)
	out.rows = len(rows)
	return out
}

// Head returns the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n > d.rows {
		n = d.rows
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.Take(idx)
}

// Rename returns a copy with columns renamed by from->to. A rename that would
// collide with an existing column name is an error.
func (d *Dataset) Rename(names map[string]string) (*Dataset, error) {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		nc := c.clone()
		if to, ok := names[c.Name]; ok && to != "" {
			nc.Name = to
		}
		cols[i] = nc
	}
	out, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	if len(cols) == 0 {
		out.rows = d.rows
	}
	return out, nil
}

// WithColumn returns a copy where c replaces the same-named column, or is appended.
func (d *Dataset) WithColumn(c *Column) (*Dataset, error) {
	if c.Len() != d.rows && len(d.cols) > 0 {
		return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, c.Len(), d.rows)
	}
	out := d.Clone()
	if i, ok := out.index[c.Name]; ok {
		out.cols[i] = c.clone()
		return out, nil
	}
	out.index[c.Name] = len(out.cols)
	out.cols = append(out.cols, c.clone())
	out.rows = c.Len()
	return out, nil
}

// RowsWithNull returns the indexes of rows that have at least one missing cell.
func (d *Dataset) RowsWithNull() []int {
	var out []int
	for i := 0; i < d.rows; i++ {
		for _, c := range d.cols {
			if !c.Values[i].Valid {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Record renders row i as display strings in column order.
func (d *Dataset) Record(i int) []string {
	rec := make([]string, len(d.cols))
	for ci, c := range d.cols {
		rec[ci] = c.Format(i)
	}
	return rec
}
