package kpi

import (
	"fmt"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/dustin/go-humanize"
)

const crore = 1_00_00_000

// KPIs are the headline metrics of the final report.
type KPIs struct {
	TotalSales    float64
	TotalOrders   int
	TopCategory   string
	TopSize       string
	TopState      string
	TopCity       string
	TopFulfilment string
	AvgOrderValue float64
}

// Item is a labelled, display-formatted metric.
type Item struct {
	Label string
	Value string
}

// Compute derives the headline metrics. Absent columns yield zero or "N/A".
func Compute(ds *dataset.Dataset) KPIs {
	return KPIs{
		TotalSales:    Sum(ds, schema.Amount),
		TotalOrders:   Unique(ds, schema.OrderID),
		TopCategory:   Mode(ds, schema.Category),
		TopSize:       Mode(ds, schema.Size),
		TopState:      Mode(ds, schema.ShipState),
		TopCity:       Mode(ds, schema.ShipCity),
		TopFulfilment: Mode(ds, schema.Fulfilment),
		AvgOrderValue: Mean(ds, schema.Amount),
	}
}

// Items returns the metrics in display order.
func (k KPIs) Items() []Item {
	return []Item{
		{"Total Sales", Crore(k.TotalSales)},
		{"Total Orders", humanize.Comma(int64(k.TotalOrders))},
		{"Top Category", k.TopCategory},
		{"Most Demanded Size", k.TopSize},
		{"Top State", k.TopState},
		{"Top City", k.TopCity},
		{"Most Used Fulfillment", k.TopFulfilment},
		{"Avg. Order Value", Rupees(k.AvgOrderValue)},
	}
}

// Crore formats an amount in crores of rupees, e.g. "₹7.86 Cr".
func Crore(v float64) string { return fmt.Sprintf("₹%.2f Cr", v/crore) }

// Rupees formats an amount with thousands separators and two decimals.
func Rupees(v float64) string { return "₹" + humanize.FormatFloat("#,###.##", v) }

// RupeesWhole formats an amount with thousands separators and no decimals.
func RupeesWhole(v float64) string { return "₹" + humanize.FormatFloat("#,###.", v) }

// Whole formats a number with thousands separators and no decimals.
func Whole(v float64) string { return humanize.FormatFloat("#,###.", v) }
