package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/report"
)

func cleaned() *dataset.Dataset {
	return dataset.MustNew(
		dataset.NewColumn("Order ID", dataset.KindString, dataset.String("o1"), dataset.String("o2"), dataset.String("o2")),
		dataset.NewColumn("Amount", dataset.KindNumeric, dataset.Number(1000), dataset.Number(250.5), dataset.Null),
		dataset.NewColumn("Category", dataset.KindString, dataset.String("Set"), dataset.String("kurta, cotton"), dataset.String("Set")),
	)
}

func TestCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := e.CSV(cleaned())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if filepath.Base(p) != CSVName {
		t.Fatalf("path = %s", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	want := "Order ID,Amount,Category\no1,1000,Set\no2,250.5,\"kurta, cotton\"\no2,,Set\n"
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Fatalf("csv (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestCSVWithBOM(t *testing.T) {
	e, err := New(t.TempDir(), Options{BOM: true})
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.CSV(cleaned())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(p)
	if !bytes.HasPrefix(b, utf8BOM) {
		t.Fatalf("expected BOM prefix")
	}
}

func TestSummaryDocument(t *testing.T) {
	e, err := New(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.Summary(report.NewSummary(cleaned(), 3))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if filepath.Base(p) != "analysis_summary_step_3.md" {
		t.Fatalf("path = %s", p)
	}
	b, _ := os.ReadFile(p)
	for _, want := range []string{"# Analysis Snapshot Report - Step 3", "Total Records: 3", "Total Orders: 2"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("summary missing %q:\n%s", want, b)
		}
	}
}

func TestWorkbook(t *testing.T) {
	e, err := New(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.Workbook(cleaned(), report.NewSummary(cleaned(), 7))
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{DataSheet, SummarySheet, KPISheet}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows(DataSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || !cmp.Equal(rows[0], []string{"Order ID", "Amount", "Category"}) {
		t.Fatalf("data rows: %v", rows)
	}
	if rows[1][1] != "1000" || rows[2][2] != "kurta, cotton" {
		t.Fatalf("data cells: %v", rows)
	}
	kpis, err := f.GetRows(KPISheet)
	if err != nil {
		t.Fatal(err)
	}
	if kpis[0][0] != "Metric" || kpis[1][0] != "Total Sales" || len(kpis) != 9 {
		t.Fatalf("kpi rows: %v", kpis)
	}
	summary, _ := f.GetRows(SummarySheet)
	if summary[1][0] != "Total Records: 3" {
		t.Fatalf("summary rows: %v", summary)
	}
}

func TestAllWritesManifest(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	s := report.NewSummary(cleaned(), 7)
	m, err := e.All(cleaned(), s)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	want := []string{CSVName, "analysis_summary_step_7.md", "cleaned_data_step_7.xlsx"}
	if diff := cmp.Diff(want, m.Files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	var got Manifest
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("manifest json: %v", err)
	}
	if got.RunID != s.RunID || got.Rows != 3 || len(got.Files) != 3 {
		t.Fatalf("manifest: %+v", got)
	}
}
