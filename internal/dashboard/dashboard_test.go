package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/pipeline"
	"github.com/google/go-cmp/cmp"
)

type order struct {
	date, category, size, fulfilment, status, state, city string
	amount, qty                                           float64
	b2b                                                   bool
}

var orders = []order{
	{"04-30-22", "Set", "M", "Amazon", "Shipped", "GOA", "PANAJI", 500, 1, false},
	{"04-30-22", "kurta", "L", "Merchant", "Cancelled", "KERALA", "KOCHI", 300, 2, true},
	{"05-01-22", "Set", "L", "Amazon", "Shipped", "GOA", "PANAJI", 700, 1, false},
	{"05-15-22", "Top", "S", "Amazon", "Shipped", "DELHI", "NEW DELHI", 200, 3, true},
	{"06-02-22", "kurta", "M", "Merchant", "Shipped", "KERALA", "KOCHI", 400, 1, false},
}

func completeSession(t *testing.T) *pipeline.Session {
	t.Helper()
	n := len(orders)
	cols := map[string][]dataset.Value{}
	names := []string{"Order ID", "Date", "Amount", "Qty", "Category", "Size", "Fulfilment", "Status", "ship-state", "ship-city", "B2B"}
	for _, name := range names {
		cols[name] = make([]dataset.Value, n)
	}
	for i, o := range orders {
		cols["Order ID"][i] = dataset.String(string(rune('a' + i)))
		cols["Date"][i] = dataset.String(o.date)
		cols["Amount"][i] = dataset.Number(o.amount)
		cols["Qty"][i] = dataset.Number(o.qty)
		cols["Category"][i] = dataset.String(o.category)
		cols["Size"][i] = dataset.String(o.size)
		cols["Fulfilment"][i] = dataset.String(o.fulfilment)
		cols["Status"][i] = dataset.String(o.status)
		cols["ship-state"][i] = dataset.String(o.state)
		cols["ship-city"][i] = dataset.String(o.city)
		cols["B2B"][i] = dataset.Boolean(o.b2b)
	}
	var built []*dataset.Column
	for _, name := range names {
		kind := dataset.KindString
		switch name {
		case "Amount", "Qty":
			kind = dataset.KindNumeric
		case "B2B":
			kind = dataset.KindBool
		}
		built = append(built, dataset.NewColumn(name, kind, cols[name]...))
	}

	s := pipeline.NewSession()
	if err := s.Load(dataset.MustNew(built...)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := s.ProposeMapping()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyMapping(d); err != nil {
		t.Fatalf("ApplyMapping: %v", err)
	}
	if err := s.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	return s
}

func TestOpenRequiresCompletedPipeline(t *testing.T) {
	s := completeSession(t)
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(s); !errors.Is(err, ErrDashboardLocked) {
		t.Fatalf("expected ErrDashboardLocked, got %v", err)
	}
}

func TestApplyUnfiltered(t *testing.T) {
	d, err := Open(completeSession(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v, err := d.Apply(Filter{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.Data.Rows() != 5 {
		t.Fatalf("rows = %d", v.Data.Rows())
	}
	if v.Metrics.TotalSales != 2100 || v.Metrics.TotalOrders != 5 || v.Metrics.AvgOrderValue != 420 {
		t.Fatalf("metrics = %+v", v.Metrics)
	}
	var names []string
	for _, s := range v.Sections {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff(SectionNames, names); diff != "" {
		t.Fatalf("sections (-want +got):\n%s", diff)
	}
	trend, _ := v.Section(SectionTrends)
	wantTrend := []string{"2022-04", "2022-05", "2022-06"}
	var gotTrend []string
	for _, p := range trend.Charts[0].Points {
		gotTrend = append(gotTrend, p.X)
	}
	if diff := cmp.Diff(wantTrend, gotTrend); diff != "" {
		t.Fatalf("trend months (-want +got):\n%s", diff)
	}
	seg, _ := v.Section(SectionSegments)
	if !strings.Contains(seg.Prompt, "B2B") || !strings.Contains(seg.Prompt, "B2C") {
		t.Fatalf("segments prompt:\n%s", seg.Prompt)
	}
	if v.InsightsErr != nil || !strings.Contains(v.InsightsPrompt, "Total Records: 5") {
		t.Fatalf("insights prompt err=%v\n%s", v.InsightsErr, v.InsightsPrompt)
	}
}

func TestFiltersCombine(t *testing.T) {
	d, err := Open(completeSession(t))
	if err != nil {
		t.Fatal(err)
	}
	parse := func(s string) time.Time {
		tm, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatal(err)
		}
		return tm
	}
	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"date range is inclusive", Filter{From: parse("2022-04-30"), To: parse("2022-05-01")}, 3},
		{"category", Filter{Categories: []string{"Set"}}, 2},
		{"category and size", Filter{Categories: []string{"Set", "kurta"}, Sizes: []string{"L"}}, 2},
		{"fulfilment", Filter{Fulfilments: []string{"Merchant"}}, 2},
		{"b2b only", Filter{B2BOnly: true}, 2},
		{"all together", Filter{From: parse("2022-04-01"), Fulfilments: []string{"Merchant"}, B2BOnly: true}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := d.Apply(tc.f)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if v.Data.Rows() != tc.want {
				t.Fatalf("rows = %d, want %d", v.Data.Rows(), tc.want)
			}
		})
	}
}

func TestFilterOrderDoesNotMatter(t *testing.T) {
	d, err := Open(completeSession(t))
	if err != nil {
		t.Fatal(err)
	}
	a, err := d.Apply(Filter{Categories: []string{"Set", "Top"}, Fulfilments: []string{"Amazon"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Apply(Filter{Fulfilments: []string{"Amazon"}, Categories: []string{"Top", "Set"}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Data.Equal(b.Data) {
		t.Fatalf("filter results differ")
	}
}

func TestApplyEmptyAndInvalid(t *testing.T) {
	s := completeSession(t)
	d, err := Open(s)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Apply(Filter{Categories: []string{"Blazzer"}})
	if !errors.Is(err, pipeline.ErrEmptyDataset) || !strings.Contains(err.Error(), EmptyWarning) {
		t.Fatalf("expected empty dataset warning, got %v", err)
	}
	if _, err := d.Apply(Filter{TopStates: 3}); !errors.Is(err, ErrTopNRange) {
		t.Fatalf("expected ErrTopNRange, got %v", err)
	}
	if s.Current().Rows() != 5 || s.Pointer() != 7 {
		t.Fatalf("dashboard changed pipeline state: rows=%d pointer=%d", s.Current().Rows(), s.Pointer())
	}
}

func TestOptions(t *testing.T) {
	d, err := Open(completeSession(t))
	if err != nil {
		t.Fatal(err)
	}
	c := d.Options()
	if diff := cmp.Diff([]string{"Set", "kurta", "Top"}, c.Categories); diff != "" {
		t.Fatalf("categories (-want +got):\n%s", diff)
	}
	if c.MinDate.Format("2006-01-02") != "2022-04-30" || c.MaxDate.Format("2006-01-02") != "2022-06-02" {
		t.Fatalf("date bounds = %v..%v", c.MinDate, c.MaxDate)
	}
	if !c.HasB2B {
		t.Fatalf("B2B should be available")
	}
}
