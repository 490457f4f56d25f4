package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/salespipe-cli/internal/export"
	"github.com/KaramelBytes/salespipe-cli/internal/report"
)

var (
	repMapFile    string
	repDelimiter  string
	repSheet      string
	repPrompt     bool
	repSummaryDir string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Run the pipeline and generate the KPI and AI business insights report",
	Example: `  salespipe report sales.csv
  salespipe report sales.csv --print-prompt
  SALESPIPE_AI_KEYS=key1,key2 salespipe report sales.csv --summary-dir out/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.OutOrStdout())
		if err := loadArgs(wb, args[0], repDelimiter, repSheet, repMapFile); err != nil {
			return err
		}
		if err := wb.s.RunAll(cmd.Context()); err != nil {
			return err
		}
		if err := wb.kpis(); err != nil {
			return err
		}
		if err := wb.report(cmd.Context(), repPrompt); err != nil {
			return err
		}
		if repSummaryDir == "" {
			return nil
		}
		e, err := export.New(repSummaryDir, export.Options{})
		if err != nil {
			return err
		}
		p, err := e.Summary(report.NewSummary(wb.s.Current(), wb.s.Pointer()))
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		printSuccess(wb.out, "Wrote %s", p)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addLoadFlags(reportCmd, &repMapFile, &repDelimiter, &repSheet)
	reportCmd.Flags().BoolVar(&repPrompt, "print-prompt", false, "print the AI prompt instead of sending it")
	reportCmd.Flags().StringVar(&repSummaryDir, "summary-dir", "", "also write the step 7 summary document to this directory")
}
