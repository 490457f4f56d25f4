package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var nullTokens = map[string]bool{
	"": true, "NaN": true, "nan": true, "-NaN": true, "NA": true, "N/A": true, "n/a": true,
	"#N/A": true, "<NA>": true, "NULL": true, "null": true, "None": true,
}

// IsNullToken reports whether a raw text cell denotes a missing value.
func IsNullToken(s string) bool { return nullTokens[strings.TrimSpace(s)] }

// FromRecords builds a Dataset from a header and string rows, inferring a
// Kind per column. Short rows are padded with nulls; extra cells are ignored.
func FromRecords(header []string, rows [][]string) (*Dataset, error) {
	cols := make([]*Column, len(header))
	for ci, name := range header {
		raw := make([]string, len(rows))
		for ri, r := range rows {
			if ci < len(r) {
				raw[ri] = r[ci]
			}
		}
		cols[ci] = inferColumn(uniqueName(strings.TrimSpace(name), ci, header), raw)
	}
	d, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		d.rows = len(rows)
	}
	return d, nil
}

// uniqueName disambiguates repeated header names the way spreadsheet tools do ("x", "x.1").
func uniqueName(name string, pos int, header []string) string {
	if name == "" {
		name = fmt.Sprintf("Unnamed: %d", pos)
	}
	seen := 0
	for i := 0; i < pos; i++ {
		if strings.TrimSpace(header[i]) == name {
			seen++
		}
	}
	if seen == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, seen)
}

func inferColumn(name string, raw []string) *Column {
	numeric, boolean := true, true
	for _, s := range raw {
		if IsNullToken(s) {
			continue
		}
		t := strings.TrimSpace(s)
		if numeric {
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				numeric = false
			}
		}
		if boolean {
			if _, ok := parseBoolLiteral(t); !ok {
				boolean = false
			}
		}
		if !numeric && !boolean {
			break
		}
	}
	// An all-null column is numeric, matching common dataframe loaders.
	kind := KindString
	switch {
	case numeric:
		kind = KindNumeric
	case boolean:
		kind = KindBool
	}
	vals := make([]Value, len(raw))
	for i, s := range raw {
		if IsNullToken(s) {
			continue
		}
		t := strings.TrimSpace(s)
		switch kind {
		case KindNumeric:
			f, _ := strconv.ParseFloat(t, 64)
			vals[i] = Number(f)
		case KindBool:
			b, _ := parseBoolLiteral(t)
			vals[i] = Boolean(b)
		default:
			vals[i] = String(s)
		}
	}
	return &Column{Name: name, Kind: kind, Values: vals}
}

func parseBoolLiteral(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// WriteCSV serializes the dataset with a header row. Nulls are written as empty cells.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < d.rows; i++ {
		if err := cw.Write(d.Record(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
