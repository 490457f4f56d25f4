package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/salespipe-cli/internal/ingest"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
)

var (
	sessMapFile   string
	sessDelimiter string
	sessSheet     string
)

var sessionCmd = &cobra.Command{
	Use:   "session [file]",
	Short: "Interactive session: run steps one at a time with undo",
	Long: `Starts an interactive prompt over one pipeline session. Type "help" for the
command list. Errors are reported and the session continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.OutOrStdout())
		wb.charts = true
		if len(args) == 1 {
			delim, err := parseDelimiter(sessDelimiter)
			if err != nil {
				return err
			}
			if err := wb.load(args[0], ingest.Options{Delimiter: delim, Sheet: sessSheet}); err != nil {
				return err
			}
			if sessMapFile != "" {
				if err := wb.mapColumns(sessMapFile); err != nil {
					printErr(wb.out, err)
				}
			}
		}
		return repl(cmd.Context(), wb, cmd.InOrStdin())
	},
}

const replHelp = `Commands:
  load <file>                 load a CSV/XLSX file (resets the session)
  map                         show the pending column mapping
  map <Canonical>=<source>    assign a source column (empty source unsets)
  map file <path>             overlay a YAML mapping file
  apply                       confirm the mapping
  step <n>                    run step n (1-7)
  run-all                     restart from raw data and run steps 1-7
  undo                        revert the last step
  reset                       back to the raw data, mapping cleared
  threshold <pct>             set the step 2 missing-value threshold
  status                      session state
  show [n]                    print the first n rows (default page size)
  info                        profile of the current data
  summary <n>                 re-print the summary of step n
  chart <n>                   print the charts of step n
  kpis                        final KPIs (after step 7)
  report [--print-prompt]     AI business insights (after step 7)
  dashboard [flags]           filtered dashboard; see "salespipe dashboard --help"
  export [dir]                write CSV, summary and workbook
  quit                        leave the session`

func repl(ctx context.Context, wb *workbench, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprintf(wb.out, "salespipe[%d/%d]> ", wb.s.Pointer(), steps.Last)
		if !sc.Scan() {
			fmt.Fprintln(wb.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := dispatch(ctx, wb, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			printErr(wb.out, err)
		}
	}
}

func dispatch(ctx context.Context, wb *workbench, line string) error {
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, verb))
	switch verb {
	case "help", "?":
		fmt.Fprintln(wb.out, replHelp)
		return nil
	case "load":
		if rest == "" {
			return errors.New("usage: load <file>")
		}
		return wb.load(rest, ingest.Options{})
	case "map":
		return mapCommand(wb, rest)
	case "apply":
		return wb.apply()
	case "step":
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return wb.step(ctx, n)
	case "run-all":
		return wb.runAll(ctx)
	case "undo":
		return wb.undo()
	case "reset":
		return wb.reset()
	case "threshold":
		if len(args) != 1 {
			printInfo(wb.out, "Threshold: %.1f%%", wb.s.Threshold())
			return nil
		}
		t, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q", args[0])
		}
		if err := wb.s.SetThreshold(t); err != nil {
			return err
		}
		printSuccess(wb.out, "Threshold set to %.1f%%; it applies the next time step 2 runs.", t)
		return nil
	case "status":
		printStatus(wb.out, wb.s.Status())
		return nil
	case "show":
		n := 0
		if len(args) > 0 {
			var err error
			if n, err = intArg(args, "show [n]"); err != nil {
				return err
			}
		}
		return wb.show(n)
	case "info":
		return wb.info()
	case "summary":
		n, err := intArg(args, "summary <n>")
		if err != nil {
			return err
		}
		sum, ok := wb.s.Summary(n)
		if !ok {
			return fmt.Errorf("step %d has not been run", n)
		}
		printStepSummary(wb.out, sum, cfg.SampleRows)
		return nil
	case "chart":
		n, err := intArg(args, "chart <n>")
		if err != nil {
			return err
		}
		wb.printCharts(n)
		return nil
	case "kpis":
		return wb.kpis()
	case "report":
		return wb.report(ctx, len(args) > 0 && args[0] == "--print-prompt")
	case "dashboard":
		var o dashOpts
		fs := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
		fs.SetOutput(wb.out)
		o.register(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return wb.dashboard(ctx, &o)
	case "export":
		return wb.export(rest)
	}
	return fmt.Errorf("unknown command %q (type help)", verb)
}

// mapCommand handles "map", "map file <path>" and "map <Canonical>=<source>".
func mapCommand(wb *workbench, rest string) error {
	if rest == "" {
		return wb.printDraft()
	}
	d, err := wb.pending()
	if err != nil {
		return err
	}
	if p, ok := strings.CutPrefix(rest, "file "); ok {
		return wb.loadDraft(strings.TrimSpace(p))
	}
	canon, src, ok := strings.Cut(rest, "=")
	if !ok {
		return errors.New("usage: map <Canonical>=<source>")
	}
	canon, src = strings.TrimSpace(canon), strings.TrimSpace(src)
	if src == "" {
		d.Unset(canon)
		printSuccess(wb.out, "%s unset.", canon)
		return nil
	}
	if err := d.Assign(canon, src); err != nil {
		return err
	}
	printSuccess(wb.out, "%s <- %s", canon, src)
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	addLoadFlags(sessionCmd, &sessMapFile, &sessDelimiter, &sessSheet)
}
