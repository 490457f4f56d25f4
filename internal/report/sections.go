package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/salespipe-cli/internal/kpi"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Prompts for the per-section AI insights of the dashboard and steps 4-6.

// KPIPrompt asks for insights on the filtered headline metrics.
func KPIPrompt(totalSales float64, totalOrders int, aov float64) string {
	return fmt.Sprintf("Analyze the following Key Performance Indicators (KPIs) filtered by the user's specific criteria: "+
		"Total Sales: %s, Total Orders: %s, Average Order Value (AOV): %s. Provide 3 high-level, actionable insights.",
		kpi.RupeesWhole(totalSales), humanize.Comma(int64(totalOrders)), kpi.Rupees(aov))
}

// TrendsPrompt asks for trend and seasonality insights over monthly revenue.
func TrendsPrompt(monthly []kpi.Total) string {
	return "Analyze the following monthly sales revenue data (filtered by user criteria) and provide 3 actionable insights on trends and seasonality.\n\n" +
		"Data (Month, Amount):\n" + TotalsTable("Month", "Amount", monthly, 24)
}

// ProductsPrompt asks for assortment insights. sizes may be nil when the
// Size column is absent.
func ProductsPrompt(categories []kpi.Total, sizes []kpi.Count) string {
	sizeText := "N/A"
	if sizes != nil {
		sizeText = CountsTable("Size", "Count", sizes)
	}
	return "Analyze the following filtered product data. Categories (Category, Qty):\n" +
		TotalsTable("Category", "Qty", categories, 0) +
		"\n\nSizes (Size, Count):\n" + sizeText +
		". Provide 3 actionable insights for inventory and assortment planning."
}

// FulfilmentPrompt asks for logistics insights over the status breakdown.
func FulfilmentPrompt(cross []kpi.Cross) string {
	return "Analyze the following filtered order status breakdown by fulfillment method. Provide 3 actionable insights to improve logistics efficiency.\n\n" +
		"Fulfillment Status Data:\n" + CrossTable("Fulfilment", "Status", cross, 20)
}

// SegmentsPrompt asks for B2B versus B2C marketing insights.
func SegmentsPrompt(segments []kpi.Total) string {
	return "Analyze the following filtered sales breakdown between B2B and B2C customers. Provide 3 actionable insights on marketing strategies for each segment.\n\n" +
		"Data:\n" + TotalsTable("Type", "TotalSales", segments, 0)
}

// GeographyPrompt asks for regional insights over top states and cities.
func GeographyPrompt(states []kpi.Total, cities []kpi.Count) string {
	return "Analyze the following sales data (States by Sales, Cities by Orders) filtered by user criteria. Provide 3 actionable insights for regional marketing and logistics.\n\n" +
		"States:\n" + TotalsTable("ship-state", "Amount", states, 0) +
		"\n\nCities:\n" + CountsTable("City", "Orders", cities)
}

// TotalsTable renders totals as a plain two-column text table. maxRows > 0
// elides the middle rows of longer inputs.
func TotalsTable(key, val string, ts []kpi.Total, maxRows int) string {
	rows := make([][]string, len(ts))
	for i, t := range ts {
		rows[i] = []string{t.Key, strconv.FormatFloat(t.Sum, 'f', 2, 64)}
	}
	return plainTable([]string{key, val}, elide(rows, maxRows))
}

// CountsTable renders value counts as a plain two-column text table.
func CountsTable(key, val string, cs []kpi.Count) string {
	rows := make([][]string, len(cs))
	for i, c := range cs {
		rows[i] = []string{c.Key, strconv.Itoa(c.Count)}
	}
	return plainTable([]string{key, val}, rows)
}

// CrossTable renders pair counts as a plain three-column text table.
func CrossTable(a, b string, cs []kpi.Cross, maxRows int) string {
	rows := make([][]string, len(cs))
	for i, c := range cs {
		rows[i] = []string{c.A, c.B, strconv.Itoa(c.Count)}
	}
	return plainTable([]string{a, b, "Count"}, elide(rows, maxRows))
}

func elide(rows [][]string, maxRows int) [][]string {
	if maxRows <= 0 || len(rows) <= maxRows {
		return rows
	}
	head := maxRows / 2
	tail := maxRows - head
	out := append([][]string{}, rows[:head]...)
	dots := make([]string, len(rows[0]))
	for i := range dots {
		dots[i] = "..."
	}
	out = append(out, dots)
	return append(out, rows[len(rows)-tail:]...)
}

func plainTable(header []string, rows [][]string) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(rows)
	tw.Render()
	return strings.TrimRight(b.String(), "\n")
}
