/*
kpi.go - Per-client and period-level KPI derivation

PURPOSE:
  Turns a merged+allocated period into the KPI bundle the dashboard
  consumes: per-client profitability and the period's revenue, margin,
  ROI, labor efficiency and capacity figures.

KEY RULES:
  - NetRevenueAfterTax is the stored, authoritative value. It is never
    recomputed from gross revenue and the tax rate at this layer.
  - Every division is guarded: a zero denominator yields zero, never
    NaN or Infinity. The one deliberate exception is potentialClientSlots
    with zero active clients, where the average contract size is treated
    as the literal value 1 - a defined but degenerate slot estimate.
  - A single-client view re-derives total cost as that subset's allocated
    cost, not the full period's cost.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PER-CLIENT KPIs
// =============================================================================

// ClientKPI is a merged client record enriched with derived profitability.
type ClientKPI struct {
	ClientRecord

	NetRevenue              decimal.Decimal
	AllocatedCost           decimal.Decimal
	Profit                  decimal.Decimal
	Margin                  decimal.Decimal
	RevenuePerUnit          decimal.Decimal
	IdealRevenueForContract decimal.Decimal

	// PriceGap is actual revenue minus ideal-price revenue at contracted
	// volume. Negative means underpriced relative to the target margin.
	PriceGap decimal.Decimal
}

// EnrichClients derives per-client KPIs from the merged view and its
// allocation.
func EnrichClients(clients []ClientRecord, alloc Allocation) []ClientKPI {
	out := make([]ClientKPI, 0, len(clients))
	for _, c := range clients {
		net := c.NetRevenueAfterTax
		allocated := alloc.PerClient[c.ID]
		profit := net.Sub(allocated)

		ideal := alloc.IdealPricePerUnit.Mul(decimal.NewFromInt(c.UnitsContracted))

		out = append(out, ClientKPI{
			ClientRecord:            c,
			NetRevenue:              net,
			AllocatedCost:           allocated,
			Profit:                  profit,
			Margin:                  safeDiv(profit, net),
			RevenuePerUnit:          safeDiv(net, decimal.NewFromInt(c.UnitsDelivered)),
			IdealRevenueForContract: ideal,
			PriceGap:                net.Sub(ideal),
		})
	}
	return out
}

// =============================================================================
// PERIOD KPIs
// =============================================================================

// KPIResult is the period-level KPI bundle.
type KPIResult struct {
	GrossRevenue decimal.Decimal
	NetRevenue   decimal.Decimal

	TotalCost               decimal.Decimal
	TotalOperationalCost    decimal.Decimal
	TotalNonOperationalCost decimal.Decimal
	TotalLaborCost          decimal.Decimal

	NetResult decimal.Decimal
	Margin    decimal.Decimal
	ROI       decimal.Decimal

	// LaborEfficiencyRatio is net revenue per unit of labor spend. Higher is
	// better; the configurable target defaults to 3.0.
	LaborEfficiencyRatio decimal.Decimal

	CostPerUnit       decimal.Decimal
	IdealPricePerUnit decimal.Decimal

	TotalDelivered  int64
	TotalContracted int64
	ActiveClients   int

	MaxCapacity          int64
	CapacityUtilization  decimal.Decimal
	PotentialClientSlots decimal.Decimal
}

// KPIOptions narrows the aggregation scope.
type KPIOptions struct {
	// ClientFilter, when non-nil, restricts revenue sums to the given ids and
	// re-derives cost as the subset's allocated cost.
	ClientFilter map[ClientID]struct{}
}

// AggregateKPIs folds enriched clients and the allocation into the period
// KPI bundle.
func AggregateKPIs(clients []ClientKPI, alloc Allocation, settings GlobalSettings, opts KPIOptions) KPIResult {
	res := KPIResult{
		TotalOperationalCost:    alloc.OperationalCost,
		TotalNonOperationalCost: alloc.NonOperationalCost,
		TotalLaborCost:          alloc.LaborCost,
		CostPerUnit:             alloc.CostPerUnit,
		IdealPricePerUnit:       alloc.IdealPricePerUnit,
		TotalDelivered:          alloc.TotalDelivered,
		TotalContracted:         alloc.TotalContracted,
		ActiveClients:           alloc.ActiveClients,
		MaxCapacity:             settings.MaxProductionCapacity,
	}

	var subsetCost decimal.Decimal
	for _, c := range clients {
		if !c.IsActive() {
			continue
		}
		if opts.ClientFilter != nil {
			if _, ok := opts.ClientFilter[c.ID]; !ok {
				continue
			}
		}
		res.GrossRevenue = res.GrossRevenue.Add(c.GrossRevenue)
		res.NetRevenue = res.NetRevenue.Add(c.NetRevenue)
		subsetCost = subsetCost.Add(c.AllocatedCost)
	}

	if opts.ClientFilter != nil {
		// Single-client view: cost is what this subset actually carries.
		res.TotalCost = subsetCost
	} else {
		res.TotalCost = alloc.OperationalCost.
			Add(alloc.NonOperationalCost).
			Add(settings.OneTimeAdjustment)
	}

	res.NetResult = res.NetRevenue.Sub(res.TotalCost)
	res.Margin = safeDiv(res.NetResult, res.NetRevenue)
	res.ROI = safeDiv(res.NetResult, res.TotalCost)
	res.LaborEfficiencyRatio = safeDiv(res.NetRevenue, res.TotalLaborCost)

	contracted := decimal.NewFromInt(alloc.TotalContracted)
	capacity := decimal.NewFromInt(settings.MaxProductionCapacity)
	res.CapacityUtilization = safeDiv(contracted, capacity)

	avgContract := decimal.NewFromInt(1)
	if alloc.ActiveClients > 0 {
		avgContract = contracted.Div(decimal.NewFromInt(int64(alloc.ActiveClients)))
	}
	if avgContract.IsZero() {
		res.PotentialClientSlots = decimal.Zero
	} else {
		res.PotentialClientSlots = capacity.Sub(contracted).Div(avgContract)
	}

	return res
}

// safeDiv divides with a zero guard: num/0 is 0, never NaN or a panic.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
