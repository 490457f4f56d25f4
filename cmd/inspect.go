package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/salespipe-cli/internal/analysis"
	"github.com/KaramelBytes/salespipe-cli/internal/ingest"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
	"github.com/KaramelBytes/salespipe-cli/internal/utils"
)

var (
	inspDelimiter  string
	inspSheet      string
	inspSampleRows int
	inspOutput     string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Profile a sales export without changing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(inspDelimiter)
		if err != nil {
			return err
		}
		ds, err := ingest.Load(args[0], ingest.Options{Delimiter: delim, Sheet: inspSheet})
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if inspSampleRows > 0 {
			opt.SampleRows = inspSampleRows
		}
		md := analysis.Profile(filepath.Base(args[0]), ds, opt).Markdown()
		out := cmd.OutOrStdout()
		if inspOutput != "" {
			if err := utils.SafeWriteFile(inspOutput, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			printSuccess(out, "Wrote profile to %s", inspOutput)
			return nil
		}
		fmt.Fprint(out, md)
		heading(out, "Missing values")
		printMissing(out, steps.MissingStats(ds))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspDelimiter, "delimiter", "", "CSV delimiter: ',', ';', '|' or 'tab' (default by extension)")
	inspectCmd.Flags().StringVar(&inspSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	inspectCmd.Flags().IntVar(&inspSampleRows, "sample-rows", 0, "number of head rows to include")
	inspectCmd.Flags().StringVarP(&inspOutput, "output", "o", "", "write the profile to a file instead of stdout")
}
