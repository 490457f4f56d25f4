package cmd

import (
	"github.com/spf13/cobra"
)

var (
	dashMapFile   string
	dashDelimiter string
	dashSheet     string
	dashOpt       dashOpts
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <file>",
	Short: "Run the pipeline, then show a filtered dashboard over the cleaned data",
	Example: `  salespipe dashboard sales.csv --options
  salespipe dashboard sales.csv --from 2022-04-01 --to 2022-04-30 --category Set --category kurta
  salespipe dashboard sales.csv --fulfilment Amazon --b2b-only --top-states 5 --section geography --ai`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.OutOrStdout())
		if err := loadArgs(wb, args[0], dashDelimiter, dashSheet, dashMapFile); err != nil {
			return err
		}
		if err := wb.s.RunAll(cmd.Context()); err != nil {
			return err
		}
		return wb.dashboard(cmd.Context(), &dashOpt)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	addLoadFlags(dashboardCmd, &dashMapFile, &dashDelimiter, &dashSheet)
	dashOpt.register(dashboardCmd.Flags())
}
