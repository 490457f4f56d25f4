package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
	"github.com/google/go-cmp/cmp"
)

func strs(vals ...string) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i, v := range vals {
		out[i] = dataset.String(v)
	}
	return out
}

func TestMissingValues(t *testing.T) {
	s := MissingValues(nil)
	if !s.Empty || s.Note != "No missing values found!" {
		t.Fatalf("empty chart = %+v", s)
	}
	s = MissingValues([]steps.MissingStat{{Column: "Notes", Count: 6, Percent: 60}})
	if diff := cmp.Diff([]Point{{X: "Notes", Y: 60}}, s.Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
}

func TestMissingColumnsProduceTitledPlaceholders(t *testing.T) {
	ds := dataset.MustNew(dataset.NewColumn("Order ID", dataset.KindString, strs("a")...))
	tests := []struct {
		spec Spec
		want string
	}{
		{MonthlyTrend(ds), "Monthly Sales Trend (Data/Amount columns missing)"},
		{TopValues(ds, "Size", "Top Sizes by Order Count"), "Top Sizes by Order Count (Size column missing)"},
		{FulfilmentStatus(ds), "Fulfillment Status (Fulfilment/Status columns missing)"},
	}
	for _, tc := range tests {
		if !tc.spec.Empty || tc.spec.Title != tc.want {
			t.Fatalf("got %q empty=%v, want %q", tc.spec.Title, tc.spec.Empty, tc.want)
		}
	}
}

func TestForStepGating(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewColumn("Fulfilment", dataset.KindString, strs("Amazon", "Merchant", "Amazon")...),
		dataset.NewColumn("Status", dataset.KindString, strs("Shipped", "Shipped", "Cancelled")...),
	)
	for _, n := range []int{2, 3, 7} {
		if got := ForStep(n, ds, steps.Summary{}); got != nil {
			t.Fatalf("step %d should have no charts, got %d", n, len(got))
		}
	}
	if got := ForStep(5, ds, steps.Summary{}); len(got) != 2 {
		t.Fatalf("step 5 charts = %d", len(got))
	}
	got := ForStep(6, ds, steps.Summary{})
	want := []Point{
		{X: "Amazon", Y: 1, Series: "Cancelled"},
		{X: "Amazon", Y: 1, Series: "Shipped"},
		{X: "Merchant", Y: 1, Series: "Shipped"},
	}
	if diff := cmp.Diff(want, got[0].Points); diff != "" {
		t.Fatalf("fulfilment points (-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Spec{Title: "Top", Kind: HBar, XLabel: "Category", YLabel: "Order Count",
		Points: []Point{{X: "Set", Y: 4}, {X: "kurta", Y: 2}}})
	out := buf.String()
	if !strings.HasPrefix(out, "Top\n") || !strings.Contains(out, "kurta") {
		t.Fatalf("unexpected render:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("█", barWidth)) {
		t.Fatalf("largest bar should be full width:\n%s", out)
	}
	buf.Reset()
	Render(&buf, MissingValues(nil))
	if !strings.Contains(buf.String(), "No missing values found!") {
		t.Fatalf("empty render = %q", buf.String())
	}
}
