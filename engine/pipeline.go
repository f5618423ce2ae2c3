/*
pipeline.go - One-call period evaluation

PURPOSE:
  Runs the full per-period pipeline: materialize the merged view, allocate
  costs, enrich clients, aggregate period KPIs. The session layer calls
  this once per known period to build trend and alert inputs.
*/
package engine

// PeriodResult is the fully evaluated state of a single period.
type PeriodResult struct {
	Period     PeriodKey
	Clients    []ClientKPI
	Costs      []CostRecord
	Allocation Allocation
	KPIs       KPIResult
}

// RunPeriod evaluates one period end to end. A nil overlay evaluates the
// base data unchanged.
func RunPeriod(period PeriodKey, baseClients []ClientRecord, baseCosts []CostRecord, overlay *Overlay, settings GlobalSettings) (PeriodResult, error) {
	return RunPeriodFiltered(period, baseClients, baseCosts, overlay, settings, KPIOptions{})
}

// RunPeriodFiltered is RunPeriod with KPI scoping options. Allocation always
// runs over the full merged view so a filtered client still carries its real
// share of period cost.
func RunPeriodFiltered(period PeriodKey, baseClients []ClientRecord, baseCosts []CostRecord, overlay *Overlay, settings GlobalSettings, opts KPIOptions) (PeriodResult, error) {
	clients, costs := Materialize(period, baseClients, baseCosts, overlay)

	alloc, err := Allocate(clients, costs, settings)
	if err != nil {
		return PeriodResult{}, err
	}

	enriched := EnrichClients(clients, alloc)

	return PeriodResult{
		Period:     period,
		Clients:    enriched,
		Costs:      costs,
		Allocation: alloc,
		KPIs:       AggregateKPIs(enriched, alloc, settings, opts),
	}, nil
}
