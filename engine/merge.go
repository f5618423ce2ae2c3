/*
merge.go - Materialized views of base data under an overlay

PURPOSE:
  Combines the base record set for a period with a simulation overlay's
  additions, deletions, and field overrides, producing the merged view every
  downstream calculation consumes. The base arrays are never mutated.

ALGORITHM (per record kind):
  1. Candidates = base records for the period ++ added records for the period
  2. Drop any whose id is in the deletion set
  3. Shallow-merge the period's patch for each surviving id

GUARANTEES:
  - No input mutation (records are value types; slices are rebuilt)
  - Deterministic: same inputs, structurally equal outputs
  - An id present in both the base set and AddedClients is NOT de-duplicated.
    That is caller responsibility; the two rows flow through as two entities.
*/
package engine

// Materialize builds the merged client and cost views for one period.
// A nil overlay yields the plain base view.
func Materialize(period PeriodKey, baseClients []ClientRecord, baseCosts []CostRecord, overlay *Overlay) ([]ClientRecord, []CostRecord) {
	if overlay == nil {
		return filterClientsByPeriod(baseClients, period), filterCostsByPeriod(baseCosts, period)
	}

	var clients []ClientRecord
	for _, c := range baseClients {
		if c.PeriodKey != period {
			continue
		}
		clients = append(clients, c)
	}
	for _, c := range overlay.AddedClients {
		if c.PeriodKey != period {
			continue
		}
		clients = append(clients, c)
	}
	clients = applyClientOverlay(clients, period, overlay)

	var costs []CostRecord
	for _, c := range baseCosts {
		if c.PeriodKey != period {
			continue
		}
		costs = append(costs, c)
	}
	for _, c := range overlay.AddedCosts {
		if c.PeriodKey != period {
			continue
		}
		costs = append(costs, c)
	}
	costs = applyCostOverlay(costs, period, overlay)

	return clients, costs
}

// MaterializeAll applies the overlay across the ENTIRE base set, every period
// at once. This backs the commit operation: additions and deletions are
// global, while field overrides stay scoped to each record's own period.
func MaterializeAll(baseClients []ClientRecord, baseCosts []CostRecord, overlay *Overlay) ([]ClientRecord, []CostRecord) {
	if overlay == nil {
		clients := make([]ClientRecord, len(baseClients))
		copy(clients, baseClients)
		costs := make([]CostRecord, len(baseCosts))
		copy(costs, baseCosts)
		return clients, costs
	}

	var clients []ClientRecord
	for _, c := range baseClients {
		clients = append(clients, c)
	}
	clients = append(clients, overlay.AddedClients...)

	var keptClients []ClientRecord
	for _, c := range clients {
		if _, deleted := overlay.DeletedClientIDs[c.ID]; deleted {
			continue
		}
		if patch, ok := overlay.ClientOverrides[c.PeriodKey][c.ID]; ok {
			c = patch.ApplyTo(c)
		}
		keptClients = append(keptClients, c)
	}

	var costs []CostRecord
	for _, c := range baseCosts {
		costs = append(costs, c)
	}
	costs = append(costs, overlay.AddedCosts...)

	var keptCosts []CostRecord
	for _, c := range costs {
		if _, deleted := overlay.DeletedCostIDs[c.ID]; deleted {
			continue
		}
		if patch, ok := overlay.CostOverrides[c.PeriodKey][c.ID]; ok {
			c = patch.ApplyTo(c)
		}
		keptCosts = append(keptCosts, c)
	}

	return keptClients, keptCosts
}

func applyClientOverlay(clients []ClientRecord, period PeriodKey, overlay *Overlay) []ClientRecord {
	overrides := overlay.ClientOverrides[period]
	var out []ClientRecord
	for _, c := range clients {
		if _, deleted := overlay.DeletedClientIDs[c.ID]; deleted {
			continue
		}
		if patch, ok := overrides[c.ID]; ok {
			c = patch.ApplyTo(c)
		}
		out = append(out, c)
	}
	return out
}

func applyCostOverlay(costs []CostRecord, period PeriodKey, overlay *Overlay) []CostRecord {
	overrides := overlay.CostOverrides[period]
	var out []CostRecord
	for _, c := range costs {
		if _, deleted := overlay.DeletedCostIDs[c.ID]; deleted {
			continue
		}
		if patch, ok := overrides[c.ID]; ok {
			c = patch.ApplyTo(c)
		}
		out = append(out, c)
	}
	return out
}

func filterClientsByPeriod(clients []ClientRecord, period PeriodKey) []ClientRecord {
	var out []ClientRecord
	for _, c := range clients {
		if c.PeriodKey == period {
			out = append(out, c)
		}
	}
	return out
}

func filterCostsByPeriod(costs []CostRecord, period PeriodKey) []CostRecord {
	var out []CostRecord
	for _, c := range costs {
		if c.PeriodKey == period {
			out = append(out, c)
		}
	}
	return out
}
