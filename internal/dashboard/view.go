package dashboard

import (
	"fmt"

	"github.com/KaramelBytes/salespipe-cli/internal/chart"
	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/KaramelBytes/salespipe-cli/internal/report"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
)

// Section names, usable with View.Section.
const (
	SectionKPIs       = "kpis"
	SectionTrends     = "trends"
	SectionProducts   = "products"
	SectionFulfilment = "fulfilment"
	SectionSegments   = "segments"
	SectionGeography  = "geography"
)

// SectionNames lists the sections in display order.
var SectionNames = []string{SectionKPIs, SectionTrends, SectionProducts, SectionFulfilment, SectionSegments, SectionGeography}

// Metrics are the headline numbers of a filtered view.
type Metrics struct {
	TotalSales    float64
	TotalOrders   int
	AvgOrderValue float64
}

// Items formats the metrics for display.
func (m Metrics) Items() []kpi.Item {
	return []kpi.Item{
		{Label: "Total Sales", Value: kpi.RupeesWhole(m.TotalSales)},
		{Label: "Total Orders", Value: kpi.Whole(float64(m.TotalOrders))},
		{Label: "Avg. Order Value", Value: kpi.Rupees(m.AvgOrderValue)},
	}
}

// Section is one analysis block with its charts and AI prompt.
type Section struct {
	Name    string
	Heading string
	Charts  []chart.Spec
	Prompt  string
}

// View is the result of applying a Filter.
type View struct {
	Data    *dataset.Dataset
	Metrics Metrics
	// HasMetrics is false when the Amount column is absent.
	HasMetrics bool
	Sections   []Section
	// InsightsPrompt is empty when InsightsErr explains why it cannot be built.
	InsightsPrompt string
	InsightsErr    error
}

// Section returns the named section if the view has it.
func (v *View) Section(name string) (Section, bool) {
	for _, s := range v.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

func build(ds *dataset.Dataset, f Filter) *View {
	v := &View{Data: ds}
	if ds.HasColumn(schema.Amount) {
		v.HasMetrics = true
		v.Metrics = Metrics{
			TotalSales:    kpi.Sum(ds, schema.Amount),
			TotalOrders:   ds.Rows(),
			AvgOrderValue: kpi.Mean(ds, schema.Amount),
		}
		v.Sections = append(v.Sections, Section{
			Name:    SectionKPIs,
			Heading: "Key Metrics (Filtered)",
			Prompt:  report.KPIPrompt(v.Metrics.TotalSales, v.Metrics.TotalOrders, v.Metrics.AvgOrderValue),
		})
	}
	for _, s := range []func(*dataset.Dataset, Filter) (Section, bool){trends, products, fulfilment, segments, geography} {
		if sec, ok := s(ds, f); ok {
			v.Sections = append(v.Sections, sec)
		}
	}
	v.InsightsPrompt, v.InsightsErr = report.FilteredInsightsPrompt(ds)
	return v
}

// monthly sums Amount per calendar month of Date.
func monthly(ds *dataset.Dataset) []kpi.Total {
	date, _ := ds.Column(schema.Date)
	if date.Kind != dataset.KindDatetime {
		return kpi.MonthlySales(ds)
	}
	months := make([]dataset.Value, date.Len())
	for i, v := range date.Values {
		if v.Valid {
			months[i] = dataset.String(v.Time.Format("2006-01"))
		}
	}
	withMonth, err := ds.DropColumns(schema.Month).WithColumn(dataset.NewColumn(schema.Month, dataset.KindString, months...))
	if err != nil {
		return kpi.MonthlySales(ds)
	}
	return kpi.MonthlySales(withMonth)
}

func trends(ds *dataset.Dataset, _ Filter) (Section, bool) {
	if !ds.HasColumn(schema.Date, schema.Amount) {
		return Section{}, false
	}
	m := monthly(ds)
	spec := chart.Spec{Title: "Monthly Sales Trend", Kind: chart.Line, XLabel: "Month", YLabel: "Amount"}
	for _, t := range m {
		spec.Points = append(spec.Points, chart.Point{X: t.Key, Y: t.Sum})
	}
	return Section{
		Name:    SectionTrends,
		Heading: "1. Sales Overview",
		Charts:  []chart.Spec{spec},
		Prompt:  report.TrendsPrompt(m),
	}, true
}

func products(ds *dataset.Dataset, _ Filter) (Section, bool) {
	if !ds.HasColumn(schema.Category) {
		return Section{}, false
	}
	cats := kpi.Largest(kpi.GroupSum(ds, schema.Category, schema.Qty), 10)
	catSpec := chart.Spec{Title: "Top 10 Categories by Quantity Sold", Kind: chart.Bar, XLabel: "Category", YLabel: "Qty"}
	for _, t := range cats {
		catSpec.Points = append(catSpec.Points, chart.Point{X: t.Key, Y: t.Sum})
	}
	sec := Section{Name: SectionProducts, Heading: "2. Product Analysis", Charts: []chart.Spec{catSpec}}
	var sizes []kpi.Count
	if ds.HasColumn(schema.Size) {
		sizes = kpi.TopCounts(kpi.ValueCounts(ds, schema.Size), 10)
		sizeSpec := chart.Spec{Title: "Top 10 Sizes by Order Count", Kind: chart.Bar, XLabel: "Size", YLabel: "Count"}
		for _, c := range sizes {
			sizeSpec.Points = append(sizeSpec.Points, chart.Point{X: c.Key, Y: float64(c.Count)})
		}
		sec.Charts = append(sec.Charts, sizeSpec)
		if sizes == nil {
			sizes = []kpi.Count{}
		}
	}
	sec.Prompt = report.ProductsPrompt(cats, sizes)
	return sec, true
}

func fulfilment(ds *dataset.Dataset, _ Filter) (Section, bool) {
	if !ds.HasColumn(schema.Fulfilment, schema.Status) {
		return Section{}, false
	}
	split := chart.Spec{Title: "Fulfillment Method Split", Kind: chart.Pie, XLabel: "Method", YLabel: "Count"}
	for _, c := range kpi.ValueCounts(ds, schema.Fulfilment) {
		split.Points = append(split.Points, chart.Point{X: c.Key, Y: float64(c.Count)})
	}
	cross := kpi.CrossCount(ds, schema.Fulfilment, schema.Status)
	byStatus := chart.FulfilmentStatus(ds)
	byStatus.Title = "Order Status by Fulfillment"
	return Section{
		Name:    SectionFulfilment,
		Heading: "3. Fulfillment Analysis",
		Charts:  []chart.Spec{split, byStatus},
		Prompt:  report.FulfilmentPrompt(cross),
	}, true
}

func segments(ds *dataset.Dataset, _ Filter) (Section, bool) {
	if !ds.HasColumn(schema.B2B, schema.Amount) {
		return Section{}, false
	}
	var seg []kpi.Total
	for _, t := range kpi.GroupSum(ds, schema.B2B, schema.Amount) {
		switch t.Key {
		case "True":
			seg = append(seg, kpi.Total{Key: "B2B", Sum: t.Sum})
		case "False":
			seg = append(seg, kpi.Total{Key: "B2C", Sum: t.Sum})
		}
	}
	spec := chart.Spec{Title: "Total Sales: B2C vs B2B", Kind: chart.Bar, XLabel: "Type", YLabel: "TotalSales"}
	for _, t := range seg {
		spec.Points = append(spec.Points, chart.Point{X: t.Key, Y: t.Sum})
	}
	return Section{
		Name:    SectionSegments,
		Heading: "4. Customer Segmentation",
		Charts:  []chart.Spec{spec},
		Prompt:  report.SegmentsPrompt(seg),
	}, true
}

func geography(ds *dataset.Dataset, f Filter) (Section, bool) {
	if !ds.HasColumn(schema.ShipState, schema.ShipCity, schema.Amount) {
		return Section{}, false
	}
	states := kpi.Largest(kpi.GroupSum(ds, schema.ShipState, schema.Amount), f.TopStates)
	cities := kpi.TopCounts(kpi.ValueCounts(ds, schema.ShipCity), f.TopCities)
	stateSpec := chart.Spec{Title: fmt.Sprintf("Top %d States by Sales", f.TopStates), Kind: chart.Bar, XLabel: "ship-state", YLabel: "Amount"}
	for _, t := range states {
		stateSpec.Points = append(stateSpec.Points, chart.Point{X: t.Key, Y: t.Sum})
	}
	citySpec := chart.Spec{Title: fmt.Sprintf("Top %d Cities by Orders", f.TopCities), Kind: chart.Bar, XLabel: "City", YLabel: "Orders"}
	for _, c := range cities {
		citySpec.Points = append(citySpec.Points, chart.Point{X: c.Key, Y: float64(c.Count)})
	}
	return Section{
		Name:    SectionGeography,
		Heading: "5. Geographical Analysis",
		Charts:  []chart.Spec{stateSpec, citySpec},
		Prompt:  report.GeographyPrompt(states, cities),
	}, true
}
