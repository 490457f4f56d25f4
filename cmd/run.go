package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/salespipe-cli/internal/ingest"
)

var (
	runMapFile   string
	runDelimiter string
	runSheet     string
	runCharts    bool
	runShowRows  int
	runKPIs      bool
	runReport    bool
	runPrompt    bool
	runExportDir string
	runExport    bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Load a sales export and run all seven pipeline steps",
	Example: `  salespipe run sales.csv
  salespipe run sales.xlsx --map mapping.yaml --charts
  salespipe run sales.csv --threshold 25 --report --export --export-dir out/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.OutOrStdout())
		wb.charts = runCharts
		if err := loadArgs(wb, args[0], runDelimiter, runSheet, runMapFile); err != nil {
			return err
		}
		if err := wb.runAll(cmd.Context()); err != nil {
			return err
		}
		if runShowRows > 0 {
			if err := wb.show(runShowRows); err != nil {
				return err
			}
		}
		if runKPIs || runReport || runPrompt {
			if err := wb.kpis(); err != nil {
				return err
			}
		}
		if runReport || runPrompt {
			if err := wb.report(cmd.Context(), runPrompt); err != nil {
				return err
			}
		}
		if runExport || cmd.Flags().Changed("export-dir") {
			return wb.export(runExportDir)
		}
		return nil
	},
}

// loadArgs loads path and applies the identity mapping overlaid with mapFile.
func loadArgs(wb *workbench, path, delimiter, sheet, mapFile string) error {
	delim, err := parseDelimiter(delimiter)
	if err != nil {
		return err
	}
	if err := wb.load(path, ingest.Options{Delimiter: delim, Sheet: sheet}); err != nil {
		return err
	}
	return wb.mapColumns(mapFile)
}

func addLoadFlags(cmd *cobra.Command, mapFile, delimiter, sheet *string) {
	cmd.Flags().StringVar(mapFile, "map", "", "YAML file of `canonical: source` column assignments")
	cmd.Flags().StringVar(delimiter, "delimiter", "", "CSV delimiter: ',', ';', '|' or 'tab' (default by extension)")
	cmd.Flags().StringVar(sheet, "sheet", "", "XLSX sheet name (default first sheet)")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addLoadFlags(runCmd, &runMapFile, &runDelimiter, &runSheet)
	runCmd.Flags().BoolVar(&runCharts, "charts", false, "print the charts of each step")
	runCmd.Flags().IntVar(&runShowRows, "show", 0, "print the first N rows of the cleaned data")
	runCmd.Flags().BoolVar(&runKPIs, "kpis", true, "print the final KPIs")
	runCmd.Flags().BoolVar(&runReport, "report", false, "generate the AI business insights report")
	runCmd.Flags().BoolVar(&runPrompt, "print-prompt", false, "print the AI report prompt instead of sending it")
	runCmd.Flags().BoolVar(&runExport, "export", false, "export CSV, summary and workbook to the output directory")
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "", "export directory (default output_dir from config; implies --export)")
}
