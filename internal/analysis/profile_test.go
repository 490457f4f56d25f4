package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/google/go-cmp/cmp"
)

func salesSample() *dataset.Dataset {
	day := func(s string) dataset.Value {
		t, _ := time.Parse(dataset.DateLayout, s)
		return dataset.Datetime(t)
	}
	return dataset.MustNew(
		dataset.NewColumn("Order ID", dataset.KindString,
			dataset.String("o1"), dataset.String("o2"), dataset.String("o3"), dataset.String("o4")),
		dataset.NewColumn("Amount", dataset.KindNumeric,
			dataset.Number(2), dataset.Number(4), dataset.Null, dataset.Number(6)),
		dataset.NewColumn("Date", dataset.KindDatetime,
			day("2022-05-01"), day("2022-04-03"), day("2022-06-30"), dataset.Null),
		dataset.NewColumn("Category", dataset.KindString,
			dataset.String("Set"), dataset.String("kurta"), dataset.String("Set"), dataset.Null),
		dataset.NewColumn("B2B", dataset.KindBool,
			dataset.Boolean(false), dataset.Boolean(true), dataset.Boolean(false), dataset.Boolean(false)),
		dataset.NewColumn("Note", dataset.KindString, dataset.Null, dataset.Null, dataset.Null, dataset.Null),
	)
}

func TestProfileColumns(t *testing.T) {
	rep := Profile("sales.csv", salesSample(), Options{SampleRows: 2, MaxCategories: 2})
	if rep.Rows != 4 || len(rep.Cols) != 6 || len(rep.Samples) != 2 {
		t.Fatalf("rows=%d cols=%d samples=%d", rep.Rows, len(rep.Cols), len(rep.Samples))
	}
	byName := map[string]ColumnSummary{}
	for _, c := range rep.Cols {
		byName[c.Name] = c
	}

	amt := byName["Amount"]
	if amt.Kind != "numeric" || amt.Min != 2 || amt.Max != 6 || amt.Mean != 4 || amt.Std != 2 || amt.Missing != 1 {
		t.Fatalf("amount summary: %+v", amt)
	}
	if amt.MissingPct() != 25 {
		t.Fatalf("missing pct = %v", amt.MissingPct())
	}

	date := byName["Date"]
	if date.Kind != "datetime" || date.First.Format(dataset.DateLayout) != "2022-04-03" || date.Last.Format(dataset.DateLayout) != "2022-06-30" {
		t.Fatalf("date summary: %+v", date)
	}

	cat := byName["Category"]
	if cat.Kind != "categorical" {
		t.Fatalf("category kind = %s", cat.Kind)
	}
	if diff := cmp.Diff([]CategoryCount{{"Set", 2}, {"kurta", 1}}, cat.TopValues); diff != "" {
		t.Fatalf("top values (-want +got):\n%s", diff)
	}

	if ids := byName["Order ID"]; ids.Kind != "text" || len(ids.ExampleTexts) != 3 {
		t.Fatalf("order id summary: %+v", ids)
	}
	if b2b := byName["B2B"]; b2b.Kind != "bool" || b2b.TopValues[0] != (CategoryCount{"False", 3}) {
		t.Fatalf("b2b summary: %+v", b2b)
	}
	if diff := cmp.Diff([]string{`column "Note" has no values`}, rep.Warnings); diff != "" {
		t.Fatalf("warnings (-want +got):\n%s", diff)
	}
}

func TestMarkdown(t *testing.T) {
	md := Profile("sales.csv", salesSample(), DefaultOptions()).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: sales.csv",
		"Rows: 4",
		"Columns: 6",
		"- Amount: numeric (non-null 3, missing 25.0%, unique 3); min 2, max 6, mean 4, std 2",
		"- Date: datetime (non-null 3, missing 25.0%, unique 3); from 2022-04-03 to 2022-06-30",
		"- Category: categorical (non-null 3, missing 25.0%, unique 2); top: Set(2), kurta(1)",
		"| Order ID | Amount | Date | Category | B2B | Note |",
		"| o1 | 2 | 2022-05-01 | Set | False |  |",
		"[NOTES]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestProfileEmptyDataset(t *testing.T) {
	rep := Profile("", dataset.Empty(), DefaultOptions())
	if rep.Rows != 0 || len(rep.Samples) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if !strings.Contains(rep.Markdown(), "dataset has no rows") {
		t.Fatalf("expected empty-dataset note")
	}
}
