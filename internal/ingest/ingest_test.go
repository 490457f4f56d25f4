package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	content := "\xef\xbb\xbfOrder ID,Date,Amount,B2B\n171-1,04-30-22,647.62,False\n171-2,04-30-22,,True\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"Order ID", "Date", "Amount", "B2B"}, ds.Names()); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
	if ds.Rows() != 2 || ds.NullCount("Amount") != 1 {
		t.Fatalf("rows=%d amount nulls=%d", ds.Rows(), ds.NullCount("Amount"))
	}
}

func TestLoadCSVLatin1Fallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latin.csv")
	// 0xE9 is "é" in Latin-1 and invalid as standalone UTF-8.
	content := []byte("Order ID,ship-city\n1,Chennai\n2,Mont\xe9al\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	city, _ := ds.Column("ship-city")
	if got := city.Format(1); got != "Montéal" {
		t.Fatalf("city = %q", got)
	}
}

func TestLoadTSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.tsv")
	if err := os.WriteFile(path, []byte("a\tb\n1\tx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Width() != 2 {
		t.Fatalf("width = %d", ds.Width())
	}
}

func TestLoadXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.xlsx")
	f := excelize.NewFile()
	sheet := "Orders"
	f.SetSheetName(f.GetSheetName(0), sheet)
	rows := [][]any{
		{"Order ID", "Amount", "Category"},
		{"171-1", 647.62, "Set"},
		{"171-2", 406, "kurta"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	ds, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d", ds.Rows())
	}
	amt, _ := ds.Column("Amount")
	if amt.Values[1].Num != 406 {
		t.Fatalf("amount = %v", amt.Values[1])
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load("report.pdf", Options{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
