// Package export writes the cleaned dataset and its reports to disk.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"github.com/KaramelBytes/salespipe-cli/internal/report"
	"github.com/KaramelBytes/salespipe-cli/internal/utils"
)

// File names inside the export directory.
const (
	CSVName      = "cleaned_data_snapshot.csv"
	ManifestName = "manifest.json"
)

// Sheet names of the workbook export.
const (
	DataSheet    = "Data"
	SummarySheet = "Summary"
	KPISheet     = "KPIs"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures an Exporter.
type Options struct {
	// BOM prefixes CSV output with a UTF-8 byte order mark for spreadsheet tools.
	BOM bool
}

// Exporter writes files into one directory.
type Exporter struct {
	dir string
	opt Options
}

// New prepares dir for writing.
func New(dir string, opt Options) (*Exporter, error) {
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &Exporter{dir: dir, opt: opt}, nil
}

// Dir is the export directory.
func (e *Exporter) Dir() string { return e.dir }

// CSV writes the dataset as CSV and returns the file path.
func (e *Exporter) CSV(ds *dataset.Dataset) (string, error) {
	var buf bytes.Buffer
	if e.opt.BOM {
		buf.Write(utf8BOM)
	}
	if err := ds.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}
	return e.write(CSVName, buf.Bytes())
}

// Summary writes the snapshot document for a step.
func (e *Exporter) Summary(s report.Summary) (string, error) {
	return e.write(s.FileName(), []byte(s.Markdown()))
}

// WorkbookName is the base name of the workbook for a step.
func WorkbookName(step int) string { return fmt.Sprintf("cleaned_data_step_%d.xlsx", step) }

// Workbook writes an XLSX file with the data, the snapshot summary and the KPIs.
func (e *Exporter) Workbook(ds *dataset.Dataset, s report.Summary) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("create style: %w", err)
	}
	if err := writeData(f, ds, bold); err != nil {
		return "", err
	}

	summary := [][]any{{"Analysis Snapshot Report", fmt.Sprintf("Step %d", s.Step)}}
	for _, l := range s.Lines() {
		summary = append(summary, []any{l})
	}
	summary = append(summary, []any{s.Note()}, []any{"Run", s.RunID})
	if err := writeSheet(f, SummarySheet, summary, bold); err != nil {
		return "", err
	}

	metrics := [][]any{{"Metric", "Value"}}
	for _, it := range kpi.Compute(ds).Items() {
		metrics = append(metrics, []any{it.Label, it.Value})
	}
	if err := writeSheet(f, KPISheet, metrics, bold); err != nil {
		return "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("encode workbook: %w", err)
	}
	return e.write(WorkbookName(s.Step), buf.Bytes())
}

// writeData streams the dataset rows; numeric cells stay numeric.
func writeData(f *excelize.File, ds *dataset.Dataset, headerStyle int) error {
	sw, err := f.NewStreamWriter(DataSheet)
	if err != nil {
		return fmt.Errorf("open data sheet: %w", err)
	}
	header := make([]any, ds.Width())
	for i, n := range ds.Names() {
		header[i] = n
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := ds.Columns()
	for r := 0; r < ds.Rows(); r++ {
		row := make([]any, len(cols))
		for ci, c := range cols {
			v := c.Values[r]
			switch {
			case !v.Valid:
				row[ci] = nil
			case c.Kind == dataset.KindNumeric:
				row[ci] = v.Num
			case c.Kind == dataset.KindBool:
				row[ci] = v.Bool
			default:
				row[ci] = c.Format(r)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	return sw.Flush()
}

func writeSheet(f *excelize.File, name string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(name, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i, err)
		}
	}
	return f.SetCellStyle(name, "A1", "A1", headerStyle)
}

// Manifest records what one export run wrote.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Step       int       `json:"step"`
	ExportedAt time.Time `json:"exported_at"`
	Rows       int       `json:"rows"`
	Files      []string  `json:"files"`
}

// All writes the CSV, the summary document, the workbook and a manifest.
func (e *Exporter) All(ds *dataset.Dataset, s report.Summary) (*Manifest, error) {
	m := &Manifest{RunID: s.RunID, Step: s.Step, ExportedAt: time.Now().UTC(), Rows: ds.Rows()}
	writers := []func() (string, error){
		func() (string, error) { return e.CSV(ds) },
		func() (string, error) { return e.Summary(s) },
		func() (string, error) { return e.Workbook(ds, s) },
	}
	for _, w := range writers {
		p, err := w()
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, filepath.Base(p))
	}
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.write(ManifestName, b); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	p := filepath.Join(e.dir, name)
	if err := utils.SafeWriteFile(p, data); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	logger.With("file", p, "bytes", len(data)).Infow("exported")
	return p, nil
}
