package schema

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is a canonical column the pipeline understands.
type Field struct {
	Name        string
	Description string
}

// Canonical names referenced by the transforms and reports.
const (
	Date       = "Date"
	Amount     = "Amount"
	Qty        = "Qty"
	Category   = "Category"
	Size       = "Size"
	ShipState  = "ship-state"
	ShipCity   = "ship-city"
	Fulfilment = "Fulfilment"
	Status     = "Status"
	OrderID    = "Order ID"
	B2B        = "B2B"

	// Derived by the date step.
	Month     = "Month"
	Year      = "Year"
	DayOfWeek = "DayOfWeek"
)

// Canonical is the ordered canonical schema.
var Canonical = []Field{
	{Date, "Date Column"},
	{Amount, "Sales Amount"},
	{Qty, "Quantity Sold"},
	{Category, "Product Category"},
	{Size, "Product Size"},
	{ShipState, "Shipping State"},
	{ShipCity, "Shipping City"},
	{Fulfilment, "Fulfillment Method"},
	{Status, "Order Status"},
	{OrderID, "Order ID"},
	{B2B, "B2B Flag (Optional)"},
}

// Critical lists canonical names that must be mapped before the pipeline can run.
var Critical = []string{Date, Amount, OrderID}

// ErrMissingCriticalColumn is matched by MissingCriticalColumnError.
var ErrMissingCriticalColumn = errors.New("missing critical column")

// MissingCriticalColumnError lists critical names with no source column.
type MissingCriticalColumnError struct {
	Missing []string
}

func (e *MissingCriticalColumnError) Error() string {
	return fmt.Sprintf("Critical columns must be mapped: %s.", strings.Join(e.Missing, ", "))
}

func (e *MissingCriticalColumnError) Is(target error) bool { return target == ErrMissingCriticalColumn }

// ErrDuplicateSource is matched by DuplicateSourceError.
var ErrDuplicateSource = errors.New("source column assigned more than once")

// DuplicateSourceError reports a source column claimed by several canonical names.
type DuplicateSourceError struct {
	Source     string
	Canonicals []string
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("Source column %q is mapped to more than one canonical column: %s.", e.Source, strings.Join(e.Canonicals, ", "))
}

func (e *DuplicateSourceError) Is(target error) bool { return target == ErrDuplicateSource }

// Draft is an editable canonical -> source assignment.
type Draft struct {
	fields  []Field
	sources []string
	assign  map[string]string
}

// ProposeMapping guesses identity matches between raw columns and the canonical
// fields; everything else starts unset.
func ProposeMapping(raw []string, fields []Field) *Draft {
	d := &Draft{fields: fields, sources: append([]string(nil), raw...), assign: map[string]string{}}
	have := make(map[string]bool, len(raw))
	for _, r := range raw {
		have[r] = true
	}
	for _, f := range fields {
		if have[f.Name] {
			d.assign[f.Name] = f.Name
		}
	}
	return d
}

// Fields returns the canonical fields in order.
func (d *Draft) Fields() []Field { return d.fields }

// Sources returns the raw column names the draft was proposed from.
func (d *Draft) Sources() []string { return d.sources }

// Source returns the source assigned to a canonical name.
func (d *Draft) Source(canonical string) (string, bool) {
	s, ok := d.assign[canonical]
	return s, ok
}

// Assign maps canonical to source. Both must be known to the draft.
func (d *Draft) Assign(canonical, source string) error {
	if !d.isCanonical(canonical) {
		return fmt.Errorf("unknown canonical column %q", canonical)
	}
	for _, s := range d.sources {
		if s == source {
			d.assign[canonical] = source
			return nil
		}
	}
	return fmt.Errorf("source column %q not found in data", source)
}

// Unset clears an assignment.
func (d *Draft) Unset(canonical string) { delete(d.assign, canonical) }

// duplicateSource returns the first shared source in canonical field order.
func (d *Draft) duplicateSource() error {
	claimed := map[string][]string{}
	var order []string
	for _, f := range d.fields {
		src, ok := d.assign[f.Name]
		if !ok {
			continue
		}
		if len(claimed[src]) == 0 {
			order = append(order, src)
		}
		claimed[src] = append(claimed[src], f.Name)
	}
	for _, src := range order {
		if len(claimed[src]) > 1 {
			return &DuplicateSourceError{Source: src, Canonicals: claimed[src]}
		}
	}
	return nil
}

func (d *Draft) isCanonical(name string) bool {
	for _, f := range d.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Mapping is a confirmed canonical -> source assignment. It is immutable.
type Mapping struct {
	pairs map[string]string
}

// ConfirmMapping freezes the draft if every critical name has a source and no
// source is shared by two canonical names.
func ConfirmMapping(d *Draft, critical []string) (Mapping, error) {
	var missing []string
	for _, c := range critical {
		if _, ok := d.assign[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Mapping{}, &MissingCriticalColumnError{Missing: missing}
	}
	if err := d.duplicateSource(); err != nil {
		return Mapping{}, err
	}
	pairs := make(map[string]string, len(d.assign))
	for k, v := range d.assign {
		pairs[k] = v
	}
	return Mapping{pairs: pairs}, nil
}

// Source returns the source column for a canonical name.
func (m Mapping) Source(canonical string) (string, bool) {
	s, ok := m.pairs[canonical]
	return s, ok
}

// Len is the number of mapped canonical names.
func (m Mapping) Len() int { return len(m.pairs) }

// SourceToCanonical returns the rename table applied to the raw data.
func (m Mapping) SourceToCanonical() map[string]string {
	out := make(map[string]string, len(m.pairs))
	for canon, src := range m.pairs {
		out[src] = canon
	}
	return out
}

// Canonicals lists mapped canonical names in sorted order.
func (m Mapping) Canonicals() []string {
	out := make([]string, 0, len(m.pairs))
	for k := range m.pairs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadDraftFile applies a YAML file of `canonical: source` pairs on top of a
// proposed draft. Empty values unset the canonical name.
func LoadDraftFile(path string, d *Draft) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mapping file: %w", err)
	}
	var pairs map[string]string
	if err := yaml.Unmarshal(b, &pairs); err != nil {
		return fmt.Errorf("parse mapping file: %w", err)
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if pairs[k] == "" {
			d.Unset(k)
			continue
		}
		if err := d.Assign(k, pairs[k]); err != nil {
			return err
		}
	}
	return nil
}
