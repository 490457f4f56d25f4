package kpi

import (
	"sort"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
)

// Count is the number of rows holding a key.
type Count struct {
	Key   string
	Count int
}

// Total is a numeric sum per key.
type Total struct {
	Key string
	Sum float64
}

// Cross is the row count of one (A, B) key pair.
type Cross struct {
	A, B  string
	Count int
}

// ValueCounts counts non-null values of col, most frequent first. Ties keep
// first-occurrence order.
func ValueCounts(ds *dataset.Dataset, col string) []Count {
	c, ok := ds.Column(col)
	if !ok {
		return nil
	}
	pos := map[string]int{}
	var out []Count
	for i := 0; i < c.Len(); i++ {
		k, ok := c.Key(i)
		if !ok {
			continue
		}
		if p, seen := pos[k]; seen {
			out[p].Count++
			continue
		}
		pos[k] = len(out)
		out = append(out, Count{Key: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Mode returns the most frequent value of col, or "N/A".
func Mode(ds *dataset.Dataset, col string) string {
	vc := ValueCounts(ds, col)
	if len(vc) == 0 {
		return "N/A"
	}
	return vc[0].Key
}

// GroupSum sums val per non-null key, ordered by key.
func GroupSum(ds *dataset.Dataset, key, val string) []Total {
	kc, ok := ds.Column(key)
	if !ok {
		return nil
	}
	vc, ok := ds.Column(val)
	if !ok || vc.Kind != dataset.KindNumeric {
		return nil
	}
	sums := map[string]float64{}
	for i := 0; i < kc.Len(); i++ {
		k, ok := kc.Key(i)
		if !ok {
			continue
		}
		if _, seen := sums[k]; !seen {
			sums[k] = 0
		}
		if !vc.IsNull(i) {
			sums[k] += vc.Values[i].Num
		}
	}
	out := make([]Total, 0, len(sums))
	for k, v := range sums {
		out = append(out, Total{Key: k, Sum: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Largest returns the n biggest totals, biggest first. Ties keep input order.
func Largest(totals []Total, n int) []Total {
	cp := append([]Total(nil), totals...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Sum > cp[j].Sum })
	if n >= 0 && len(cp) > n {
		cp = cp[:n]
	}
	return cp
}

// TopCounts returns the first n value counts.
func TopCounts(counts []Count, n int) []Count {
	if n >= 0 && len(counts) > n {
		return counts[:n]
	}
	return counts
}

// MonthlySales sums Amount per Month label in chronological order.
func MonthlySales(ds *dataset.Dataset) []Total {
	// YYYY-MM labels sort chronologically as strings.
	return GroupSum(ds, "Month", "Amount")
}

// CrossCount counts rows per (a, b) pair, ordered by a then b.
func CrossCount(ds *dataset.Dataset, a, b string) []Cross {
	ac, ok := ds.Column(a)
	if !ok {
		return nil
	}
	bc, ok := ds.Column(b)
	if !ok {
		return nil
	}
	type pair struct{ a, b string }
	counts := map[pair]int{}
	for i := 0; i < ac.Len(); i++ {
		ka, ok1 := ac.Key(i)
		kb, ok2 := bc.Key(i)
		if !ok1 || !ok2 {
			continue
		}
		counts[pair{ka, kb}]++
	}
	out := make([]Cross, 0, len(counts))
	for p, n := range counts {
		out = append(out, Cross{A: p.a, B: p.b, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Sum adds the non-null values of a numeric column.
func Sum(ds *dataset.Dataset, col string) float64 {
	c, ok := ds.Column(col)
	if !ok || c.Kind != dataset.KindNumeric {
		return 0
	}
	var s float64
	for _, v := range c.Values {
		if v.Valid {
			s += v.Num
		}
	}
	return s
}

// Mean averages the non-null values of a numeric column; 0 when there are none.
func Mean(ds *dataset.Dataset, col string) float64 {
	c, ok := ds.Column(col)
	if !ok || c.Kind != dataset.KindNumeric {
		return 0
	}
	var s float64
	n := 0
	for _, v := range c.Values {
		if v.Valid {
			s += v.Num
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return s / float64(n)
}

// Unique counts distinct non-null values.
func Unique(ds *dataset.Dataset, col string) int {
	c, ok := ds.Column(col)
	if !ok {
		return 0
	}
	seen := map[string]struct{}{}
	for i := 0; i < c.Len(); i++ {
		if k, ok := c.Key(i); ok {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}
