package steps

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
)

// Last is the final step number.
const Last = 7

// DefaultThreshold is the default missing-value percentage for step 2.
const DefaultThreshold = 10.0

// DefaultSampleRows caps the null-row sample kept by step 1.
const DefaultSampleRows = 100

// Params carries step-specific inputs.
type Params struct {
	Threshold  float64
	Mapping    schema.Mapping
	SampleRows int
}

// MissingStat is the null count and percentage of one column.
type MissingStat struct {
	Column  string
	Count   int
	Percent float64
}

// Summary is the display-side record of one step run.
type Summary struct {
	Step  int
	Title string
	Note  string

	// Step 1
	Missing  []MissingStat
	NullRows int
	Sample   *dataset.Dataset

	// Step 2 and 3
	Dropped    []MissingStat
	RowsBefore int
	RowsAfter  int

	// Step 3
	Skipped bool

	// Steps 4-7
	DataReady bool
}

// Func transforms a dataset. It must not modify its input.
type Func func(ds *dataset.Dataset, p Params) (*dataset.Dataset, Summary, error)

// Step is a numbered pipeline stage.
type Step struct {
	Number int
	Title  string
	Run    Func
}

var registry = map[int]Step{}

// Register adds or replaces a step.
func Register(s Step) { registry[s.Number] = s }

// Lookup returns the step with the given number.
func Lookup(n int) (Step, bool) {
	s, ok := registry[n]
	return s, ok
}

// All returns registered steps in order.
func All() []Step {
	out := make([]Step, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Run executes step n and stamps the summary with its number and title.
func Run(n int, ds *dataset.Dataset, p Params) (*dataset.Dataset, Summary, error) {
	s, ok := Lookup(n)
	if !ok {
		return nil, Summary{}, fmt.Errorf("unknown step %d", n)
	}
	out, sum, err := s.Run(ds, p)
	if err != nil {
		return nil, Summary{}, err
	}
	sum.Step, sum.Title = s.Number, s.Title
	return out, sum, nil
}

func checkpoint(ds *dataset.Dataset, _ Params) (*dataset.Dataset, Summary, error) {
	return ds.Clone(), Summary{DataReady: true}, nil
}

func init() {
	Register(Step{Number: 1, Title: "Inspect Missing Values", Run: InspectMissing})
	Register(Step{Number: 2, Title: "Drop Columns by Threshold", Run: DropMissingColumns})
	Register(Step{Number: 3, Title: "Feature Engineering (Date/Time)", Run: DeriveDates})
	Register(Step{Number: 4, Title: "Sales Trend Analysis", Run: checkpoint})
	Register(Step{Number: 5, Title: "Product & Size Distribution", Run: checkpoint})
	Register(Step{Number: 6, Title: "Fulfillment & Status Check", Run: checkpoint})
	Register(Step{Number: 7, Title: "Final KPI & AI Insights Report", Run: checkpoint})
}
