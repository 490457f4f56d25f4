package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/salespipe-cli/internal/ai"
	"github.com/KaramelBytes/salespipe-cli/internal/analysis"
	"github.com/KaramelBytes/salespipe-cli/internal/chart"
	"github.com/KaramelBytes/salespipe-cli/internal/dashboard"
	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/export"
	"github.com/KaramelBytes/salespipe-cli/internal/ingest"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"github.com/KaramelBytes/salespipe-cli/internal/pipeline"
	"github.com/KaramelBytes/salespipe-cli/internal/report"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
)

var errNotComplete = errors.New("KPIs and the AI report are available after step 7 completes")

// workbench drives one pipeline session for the commands and the REPL.
type workbench struct {
	out   io.Writer
	name  string
	s     *pipeline.Session
	draft *schema.Draft
	rot   *ai.Rotator
	// charts prints chart specs after each step.
	charts bool
}

func newWorkbench(out io.Writer) *workbench {
	return &workbench{
		out: out,
		s: pipeline.NewSession(
			pipeline.WithThreshold(cfg.MissingThreshold),
			pipeline.WithSampleRows(cfg.SampleRows),
		),
	}
}

// parseDelimiter accepts the spellings the --delimiter flag documents.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

func (wb *workbench) load(path string, opt ingest.Options) error {
	ds, err := ingest.Load(path, opt)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := wb.s.Load(ds); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	wb.name = filepath.Base(path)
	wb.draft = nil
	printSuccess(wb.out, "Loaded %s: %d rows, %d columns", wb.name, ds.Rows(), ds.Width())
	return nil
}

// pending returns the draft being edited, proposing one on first use.
func (wb *workbench) pending() (*schema.Draft, error) {
	if wb.draft != nil {
		return wb.draft, nil
	}
	d, err := wb.s.ProposeMapping()
	if err != nil {
		return nil, err
	}
	wb.draft = d
	return d, nil
}

// mapColumns proposes a mapping, overlays file when given and applies it.
func (wb *workbench) mapColumns(file string) error {
	d, err := wb.pending()
	if err != nil {
		return err
	}
	if file != "" {
		if err := schema.LoadDraftFile(file, d); err != nil {
			return err
		}
	}
	return wb.apply()
}

// loadDraft overlays a mapping file on the pending draft without applying it.
func (wb *workbench) loadDraft(file string) error {
	d, err := wb.pending()
	if err != nil {
		return err
	}
	if err := schema.LoadDraftFile(file, d); err != nil {
		return err
	}
	printSuccess(wb.out, "Mapping file %s loaded; type apply to confirm.", file)
	return nil
}

func (wb *workbench) apply() error {
	d, err := wb.pending()
	if err != nil {
		return err
	}
	if err := wb.s.ApplyMapping(d); err != nil {
		return err
	}
	m := wb.s.Mapping()
	printSuccess(wb.out, "Column mapping applied (%d of %d canonical columns mapped).", m.Len(), len(schema.Canonical))
	return nil
}

func (wb *workbench) printDraft() error {
	d, err := wb.pending()
	if err != nil {
		return err
	}
	tw := newTable(wb.out, "Canonical", "Description", "Source column")
	for _, f := range d.Fields() {
		src, ok := d.Source(f.Name)
		if !ok {
			src = "-"
		}
		tw.Append([]string{f.Name, f.Description, src})
	}
	tw.Render()
	printInfo(wb.out, "Available columns: %s", strings.Join(d.Sources(), ", "))
	return nil
}

// step runs step n and prints its summary.
func (wb *workbench) step(ctx context.Context, n int) error {
	if err := wb.s.RunStep(ctx, n); err != nil {
		return err
	}
	wb.printSummary(n)
	return nil
}

func (wb *workbench) runAll(ctx context.Context) error {
	err := wb.s.RunAll(ctx)
	for n := 1; n <= wb.s.Pointer(); n++ {
		wb.printSummary(n)
	}
	if err != nil {
		return err
	}
	printSuccess(wb.out, "All %d steps completed: %d rows remain.", steps.Last, wb.s.Current().Rows())
	return nil
}

func (wb *workbench) printSummary(n int) {
	sum, ok := wb.s.Summary(n)
	if !ok {
		printWarning(wb.out, "Step %d has not been run.", n)
		return
	}
	printStepSummary(wb.out, sum, cfg.SampleRows)
	if wb.charts {
		wb.printCharts(n)
	}
}

// printCharts renders the charts gated by step n over its snapshot.
func (wb *workbench) printCharts(n int) {
	sum, ok := wb.s.Summary(n)
	ds, snap := wb.s.Snapshot(n)
	if !ok || !snap {
		printWarning(wb.out, "Step %d has not been run.", n)
		return
	}
	specs := chart.ForStep(n, ds, sum)
	if len(specs) == 0 {
		printInfo(wb.out, "Step %d has no charts.", n)
		return
	}
	for _, s := range specs {
		fmt.Fprintln(wb.out)
		chart.Render(wb.out, s)
	}
}

func (wb *workbench) undo() error {
	from := wb.s.Pointer()
	if err := wb.s.Undo(); err != nil {
		return err
	}
	printSuccess(wb.out, "Undid step %d; now at step %d.", from, wb.s.Pointer())
	return nil
}

func (wb *workbench) reset() error {
	if err := wb.s.Reset(); err != nil {
		return err
	}
	wb.draft = nil
	printSuccess(wb.out, "Session reset to the raw data; mapping cleared.")
	return nil
}

func (wb *workbench) show(n int) error {
	if !wb.s.Loaded() {
		return pipeline.ErrNotLoaded
	}
	if n <= 0 {
		n = cfg.PageRows
	}
	printDataset(wb.out, wb.s.Current(), n)
	return nil
}

func (wb *workbench) info() error {
	if !wb.s.Loaded() {
		return pipeline.ErrNotLoaded
	}
	opt := analysis.DefaultOptions()
	fmt.Fprint(wb.out, analysis.Profile(wb.name, wb.s.Current(), opt).Markdown())
	return nil
}

func (wb *workbench) kpis() error {
	if !wb.s.Complete() {
		return errNotComplete
	}
	heading(wb.out, "Key Performance Indicators")
	printKPIs(wb.out, kpi.Compute(wb.s.Current()).Items())
	return nil
}

func (wb *workbench) rotator() (*ai.Rotator, error) {
	if wb.rot != nil {
		return wb.rot, nil
	}
	r, err := newRotator()
	if err != nil {
		return nil, err
	}
	wb.rot = r
	return r, nil
}

// generate sends prompt through the key rotator. Exhaustion is a warning, not an error.
func (wb *workbench) generate(ctx context.Context, title, prompt string) error {
	r, err := wb.rotator()
	if err != nil {
		return err
	}
	printInfo(wb.out, "Generating %s with %s...", strings.ToLower(title), r.Model())
	res := r.Generate(ctx, prompt)
	if !res.OK() {
		printWarning(wb.out, "%s", res.Text)
		if res.Err != nil {
			logger.L.Debugw("AI generation exhausted", "attempts", res.Attempts, "error", res.Err)
			if h := ai.Hint(res.Err); h != "" {
				printInfo(wb.out, "  hint: %s", h)
			}
		}
		return nil
	}
	heading(wb.out, title)
	fmt.Fprintln(wb.out, strings.TrimSpace(res.Text))
	return nil
}

// report prints the final AI insights, or only the prompt when promptOnly.
func (wb *workbench) report(ctx context.Context, promptOnly bool) error {
	if !wb.s.Complete() {
		return errNotComplete
	}
	prompt, err := report.InsightsPrompt(wb.s.Current())
	if err != nil {
		printWarning(wb.out, "%s", err)
		return nil
	}
	if promptOnly {
		heading(wb.out, "AI Prompt")
		fmt.Fprintln(wb.out, prompt)
		return nil
	}
	return wb.generate(ctx, "AI Business Insights", prompt)
}

// dashOpts are the dashboard filter flags shared by the command and the REPL.
type dashOpts struct {
	from, to    string
	categories  []string
	sizes       []string
	fulfilments []string
	b2bOnly     bool
	topStates   int
	topCities   int
	section     string
	ai          bool
	promptOnly  bool
	options     bool
}

func (o *dashOpts) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.from, "from", "", "first order date to include (YYYY-MM-DD)")
	fs.StringVar(&o.to, "to", "", "last order date to include (YYYY-MM-DD)")
	fs.StringSliceVar(&o.categories, "category", nil, "categories to include (repeatable)")
	fs.StringSliceVar(&o.sizes, "size", nil, "sizes to include (repeatable)")
	fs.StringSliceVar(&o.fulfilments, "fulfilment", nil, "fulfilment methods to include (repeatable)")
	fs.BoolVar(&o.b2bOnly, "b2b-only", false, "only business orders")
	fs.IntVar(&o.topStates, "top-states", 0, "number of states in the geography section (5-20, default from config)")
	fs.IntVar(&o.topCities, "top-cities", 0, "number of cities in the geography section (5-20, default from config)")
	fs.StringVar(&o.section, "section", "", "only show one section: "+strings.Join(dashboard.SectionNames, "|"))
	fs.BoolVar(&o.ai, "ai", false, "generate AI insights for the filtered view (or the chosen section)")
	fs.BoolVar(&o.promptOnly, "print-prompt", false, "print the AI prompt instead of sending it")
	fs.BoolVar(&o.options, "options", false, "list the available filter values and exit")
}

func (o *dashOpts) filter() (dashboard.Filter, error) {
	f := dashboard.Filter{
		Categories:  o.categories,
		Sizes:       o.sizes,
		Fulfilments: o.fulfilments,
		B2BOnly:     o.b2bOnly,
		TopStates:   o.topStates,
		TopCities:   o.topCities,
	}
	if f.TopStates == 0 {
		f.TopStates = cfg.TopStates
	}
	if f.TopCities == 0 {
		f.TopCities = cfg.TopCities
	}
	var err error
	if o.from != "" {
		if f.From, err = time.Parse(dataset.DateLayout, o.from); err != nil {
			return f, fmt.Errorf("invalid --from %q: use YYYY-MM-DD", o.from)
		}
	}
	if o.to != "" {
		if f.To, err = time.Parse(dataset.DateLayout, o.to); err != nil {
			return f, fmt.Errorf("invalid --to %q: use YYYY-MM-DD", o.to)
		}
	}
	return f, nil
}

func (wb *workbench) dashboard(ctx context.Context, o *dashOpts) error {
	d, err := dashboard.Open(wb.s)
	if err != nil {
		return err
	}
	if o.options {
		wb.printChoices(d.Options())
		return nil
	}
	f, err := o.filter()
	if err != nil {
		return err
	}
	v, err := d.Apply(f)
	if errors.Is(err, pipeline.ErrEmptyDataset) {
		printWarning(wb.out, dashboard.EmptyWarning)
		return nil
	}
	if err != nil {
		return err
	}
	printInfo(wb.out, "Filtered view: %d of %d rows.", v.Data.Rows(), d.Rows())
	if v.HasMetrics {
		heading(wb.out, "Key Metrics (Filtered)")
		printKPIs(wb.out, v.Metrics.Items())
	}
	var chosen *dashboard.Section
	for i, sec := range v.Sections {
		if o.section != "" && sec.Name != o.section {
			continue
		}
		chosen = &v.Sections[i]
		if sec.Name == dashboard.SectionKPIs {
			continue
		}
		heading(wb.out, sec.Heading)
		for _, s := range sec.Charts {
			chart.Render(wb.out, s)
			fmt.Fprintln(wb.out)
		}
	}
	if o.section != "" && chosen == nil {
		printWarning(wb.out, "Section %q is not available for this data (have: %s).", o.section, sectionNames(v))
		return nil
	}
	if !o.ai && !o.promptOnly {
		return nil
	}
	title, prompt := "AI Insights (Filtered View)", v.InsightsPrompt
	if o.section != "" {
		title, prompt = "AI Insights: "+chosen.Heading, chosen.Prompt
	} else if v.InsightsErr != nil {
		printWarning(wb.out, "%s", v.InsightsErr)
		return nil
	}
	if o.promptOnly {
		heading(wb.out, "AI Prompt")
		fmt.Fprintln(wb.out, prompt)
		return nil
	}
	return wb.generate(ctx, title, prompt)
}

func sectionNames(v *dashboard.View) string {
	names := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func (wb *workbench) printChoices(c dashboard.Choices) {
	tw := newTable(wb.out, "Filter", "Values")
	if !c.MinDate.IsZero() {
		tw.Append([]string{"Date", c.MinDate.Format(dataset.DateLayout) + " .. " + c.MaxDate.Format(dataset.DateLayout)})
	}
	tw.Append([]string{"Category", strings.Join(c.Categories, ", ")})
	tw.Append([]string{"Size", strings.Join(c.Sizes, ", ")})
	tw.Append([]string{"Fulfilment", strings.Join(c.Fulfilments, ", ")})
	tw.Append([]string{"B2B only", yesNo(c.HasB2B)})
	tw.Render()
}

// export writes the current dataset, its summary document and workbook.
func (wb *workbench) export(dir string) error {
	if !wb.s.Loaded() {
		return pipeline.ErrNotLoaded
	}
	if dir == "" {
		dir = cfg.OutputDir
	}
	e, err := export.New(dir, export.Options{})
	if err != nil {
		return err
	}
	cur := wb.s.Current()
	m, err := e.All(cur, report.NewSummary(cur, wb.s.Pointer()))
	if err != nil {
		return err
	}
	for _, f := range m.Files {
		printSuccess(wb.out, "Wrote %s", filepath.Join(e.Dir(), f))
	}
	return nil
}
