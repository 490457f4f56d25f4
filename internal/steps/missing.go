package steps

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/dustin/go-humanize"
)

var (
	ErrThresholdRange = errors.New("threshold must be within [0,100]")
	ErrNoRows         = errors.New("dataset has no rows")
)

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// MissingStats returns per-column null statistics for columns with at least
// one null, ordered by count descending. Ties keep column order.
func MissingStats(ds *dataset.Dataset) []MissingStat {
	var out []MissingStat
	for _, name := range ds.Names() {
		n := ds.NullCount(name)
		if n == 0 {
			continue
		}
		out = append(out, MissingStat{Column: name, Count: n, Percent: round2(ds.NullPct(name))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// InspectMissing summarises missing values. The dataset is returned unchanged.
func InspectMissing(ds *dataset.Dataset, p Params) (*dataset.Dataset, Summary, error) {
	limit := p.SampleRows
	if limit <= 0 {
		limit = DefaultSampleRows
	}
	stats := MissingStats(ds)
	rows := ds.RowsWithNull()
	sample := rows
	if len(sample) > limit {
		sample = sample[:limit]
	}
	return ds.Clone(), Summary{
		Missing:    stats,
		NullRows:   len(rows),
		Sample:     ds.Take(sample),
		RowsBefore: ds.Rows(),
		RowsAfter:  ds.Rows(),
		Note: fmt.Sprintf("Found %d columns with missing data across %s total rows. The following summary shows the count and percentage of NaN values per column.",
			len(stats), humanize.Comma(int64(len(rows)))),
	}, nil
}

// DropMissingColumns removes every column whose null percentage is strictly
// greater than the threshold. Row count is unchanged.
func DropMissingColumns(ds *dataset.Dataset, p Params) (*dataset.Dataset, Summary, error) {
	t := p.Threshold
	if t < 0 || t > 100 || math.IsNaN(t) {
		return nil, Summary{}, fmt.Errorf("%w: got %v", ErrThresholdRange, t)
	}
	if ds.Rows() == 0 {
		return nil, Summary{}, fmt.Errorf("missing percentages: %w", ErrNoRows)
	}
	var dropped []MissingStat
	var names []string
	for _, name := range ds.Names() {
		pct := ds.NullPct(name)
		if pct > t {
			dropped = append(dropped, MissingStat{Column: name, Count: ds.NullCount(name), Percent: round2(pct)})
			names = append(names, name)
		}
	}
	out := ds.DropColumns(names...)
	note := fmt.Sprintf("Columns with > %s%% missing values were dropped. %d columns removed.", formatThreshold(t), len(names))
	if len(names) == 0 {
		note = fmt.Sprintf("No columns exceeded the %s%% missing threshold.", formatThreshold(t))
	}
	return out, Summary{
		Dropped:    dropped,
		RowsBefore: ds.Rows(),
		RowsAfter:  out.Rows(),
		Note:       note,
	}, nil
}

func formatThreshold(t float64) string {
	if t == math.Trunc(t) {
		return fmt.Sprintf("%d", int(t))
	}
	return fmt.Sprintf("%g", t)
}
