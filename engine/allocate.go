/*
allocate.go - Shared-cost allocation across clients

PURPOSE:
  Given the merged view for a period and the session settings, computes the
  per-unit operational cost and distributes it across active clients under
  the chosen allocation method.

METHOD CONTRACT:
  The numerator is always the sum of ACTIVE operational costs (the unit cost
  base). Only the denominator changes with the method:

    PerDelivered:  sum of delivered units over active clients
    PerContracted: sum of contracted units over active clients
    EqualShare:    count of active clients

  The per-client multiplier MUST match the denominator method. Inactive
  clients always allocate zero.

OVERRIDE:
  ManualCostPerUnitOverride > 0 short-circuits the division entirely; the
  configured value becomes the cost per unit regardless of method or data.

GUARDS:
  A zero denominator yields a zero cost per unit ("no activity yet").
  targetMarginRatio >= 1 is a configuration error, surfaced, never clamped.
*/
package engine

import "github.com/shopspring/decimal"

// Allocation is the result of spreading operational cost for one period.
type Allocation struct {
	Method AllocationMethod

	// UnitCostBase is the sum of active operational cost values - the
	// numerator for cost per unit under every method.
	UnitCostBase decimal.Decimal

	CostPerUnit       decimal.Decimal
	IdealPricePerUnit decimal.Decimal

	// PerClient maps client id to its allocated share of operational cost.
	PerClient map[ClientID]decimal.Decimal

	// Cost partitions over ACTIVE cost lines, reused by the KPI layer.
	OperationalCost    decimal.Decimal
	NonOperationalCost decimal.Decimal
	LaborCost          decimal.Decimal

	// Active-client volume totals, reused by the KPI layer.
	TotalDelivered  int64
	TotalContracted int64
	ActiveClients   int
}

// Allocate partitions active costs, derives the per-unit cost and ideal
// price, and spreads cost across active clients.
func Allocate(clients []ClientRecord, costs []CostRecord, settings GlobalSettings) (Allocation, error) {
	alloc := Allocation{
		Method:    settings.AllocationMethod,
		PerClient: make(map[ClientID]decimal.Decimal, len(clients)),
	}

	for _, c := range costs {
		if !c.ActiveInPeriod {
			continue
		}
		if c.IsOperational() {
			alloc.OperationalCost = alloc.OperationalCost.Add(c.MonthlyValue)
		} else {
			alloc.NonOperationalCost = alloc.NonOperationalCost.Add(c.MonthlyValue)
		}
		if IsLaborCost(c.CostLabel) {
			alloc.LaborCost = alloc.LaborCost.Add(c.MonthlyValue)
		}
	}
	alloc.UnitCostBase = alloc.OperationalCost

	for _, c := range clients {
		if !c.IsActive() {
			continue
		}
		alloc.ActiveClients++
		alloc.TotalDelivered += c.UnitsDelivered
		alloc.TotalContracted += c.UnitsContracted
	}

	perUnit, err := computeCostPerUnit(alloc, settings)
	if err != nil {
		return Allocation{}, err
	}
	alloc.CostPerUnit = perUnit

	one := decimal.NewFromInt(1)
	if settings.TargetMarginRatio.GreaterThanOrEqual(one) {
		return Allocation{}, &ConfigError{
			Setting: "targetMarginRatio",
			Value:   settings.TargetMarginRatio.String(),
			Reason:  ErrTargetMarginTooHigh,
		}
	}
	alloc.IdealPricePerUnit = alloc.CostPerUnit.Div(one.Sub(settings.TargetMarginRatio))

	for _, c := range clients {
		alloc.PerClient[c.ID] = clientShare(c, alloc)
	}

	return alloc, nil
}

// computeCostPerUnit applies the manual override or divides the unit cost
// base by the method's denominator.
func computeCostPerUnit(alloc Allocation, settings GlobalSettings) (decimal.Decimal, error) {
	if settings.ManualCostPerUnitOverride.IsPositive() {
		return settings.ManualCostPerUnitOverride, nil
	}

	var denominator decimal.Decimal
	switch settings.AllocationMethod {
	case PerDelivered:
		denominator = decimal.NewFromInt(alloc.TotalDelivered)
	case PerContracted:
		denominator = decimal.NewFromInt(alloc.TotalContracted)
	case EqualShare:
		denominator = decimal.NewFromInt(int64(alloc.ActiveClients))
	default:
		return decimal.Zero, &ConfigError{
			Setting: "allocationMethod",
			Value:   string(settings.AllocationMethod),
			Reason:  ErrUnknownAllocationMethod,
		}
	}

	if denominator.IsZero() {
		return decimal.Zero, nil
	}
	return alloc.UnitCostBase.Div(denominator), nil
}

// clientShare returns the client's allocated cost under the allocation's own
// method. Inactive clients get zero.
func clientShare(c ClientRecord, alloc Allocation) decimal.Decimal {
	if !c.IsActive() {
		return decimal.Zero
	}
	switch alloc.Method {
	case PerDelivered:
		return decimal.NewFromInt(c.UnitsDelivered).Mul(alloc.CostPerUnit)
	case PerContracted:
		return decimal.NewFromInt(c.UnitsContracted).Mul(alloc.CostPerUnit)
	case EqualShare:
		return alloc.CostPerUnit
	default:
		return decimal.Zero
	}
}
