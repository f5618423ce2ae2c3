/*
trend.go - Cross-period trend and client lifetime rollups

PURPOSE:
  Collapses evaluated periods into a chronological trend series and a
  per-client lifetime value table. Lifetime rollups key on the client
  NAME, not the record id, so a client re-added in a later period under
  a new id still accumulates into one row.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TrendPoint is one period's headline figures.
type TrendPoint struct {
	Period  PeriodKey
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Profit  decimal.Decimal
	Margin  decimal.Decimal
}

// BuildTrend maps evaluated periods to trend points in chronological order.
func BuildTrend(results []PeriodResult) []TrendPoint {
	sorted := make([]PeriodResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Comparable() < sorted[j].Period.Comparable()
	})

	points := make([]TrendPoint, 0, len(sorted))
	for _, r := range sorted {
		points = append(points, TrendPoint{
			Period:  r.Period,
			Revenue: r.KPIs.NetRevenue,
			Cost:    r.KPIs.TotalCost,
			Profit:  r.KPIs.NetResult,
			Margin:  r.KPIs.Margin,
		})
	}
	return points
}

// LifetimeValue is a client's accumulated history across every period.
type LifetimeValue struct {
	ClientName     string
	TotalRevenue   decimal.Decimal
	TotalDelivered int64
	RevenuePerUnit decimal.Decimal

	// RecordIDs lists every record id that contributed to this row, in
	// encounter order.
	RecordIDs []ClientID
}

// BuildLifetime rolls every period's client rows into name-keyed lifetime
// totals, sorted by revenue descending.
func BuildLifetime(results []PeriodResult) []LifetimeValue {
	byName := make(map[string]*LifetimeValue)
	var order []string

	for _, r := range results {
		for _, c := range r.Clients {
			ltv, ok := byName[c.ClientName]
			if !ok {
				ltv = &LifetimeValue{ClientName: c.ClientName}
				byName[c.ClientName] = ltv
				order = append(order, c.ClientName)
			}
			ltv.TotalRevenue = ltv.TotalRevenue.Add(c.NetRevenue)
			ltv.TotalDelivered += c.UnitsDelivered
			ltv.RecordIDs = append(ltv.RecordIDs, c.ID)
		}
	}

	out := make([]LifetimeValue, 0, len(order))
	for _, name := range order {
		ltv := byName[name]
		ltv.RevenuePerUnit = safeDiv(ltv.TotalRevenue, decimal.NewFromInt(ltv.TotalDelivered))
		out = append(out, *ltv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
	})
	return out
}
