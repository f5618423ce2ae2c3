/*
Package engine provides the core simulation/allocation engine.

PURPOSE:
  This package contains the pure calculation layer of the BI dashboard:
  merging base records with a simulation overlay, allocating shared
  operational cost across clients, and deriving financial KPIs. The same
  functions power the live dashboard view, the what-if simulation view,
  the annual trend, and the alert scans.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClientRecord: One client's results for one period
  - CostRecord: One cost line for one period
  - GlobalSettings: Per-session knobs (tax, target margin, allocation method)
  - AllocationMethod: The closed set of cost-spreading policies
  - PeriodKey: A "Month/Year" bucket (see period.go)

DESIGN PRINCIPLES:
  1. Purity: Every function computes from explicit inputs; base data is
     never mutated. Re-running with the same inputs yields the same output.
  2. Precision: Money and ratios use decimal.Decimal to avoid
     floating-point drift in margins and allocations.
  3. Guarded arithmetic: Every division that can hit a zero denominator
     is guarded. KPIs are always finite - no NaN, no Infinity.
  4. Closed strategies: Allocation policies are a typed enum, not
     runtime-evaluated formula strings.

USAGE:
  clients, costs := engine.Materialize(period, baseClients, baseCosts, overlay)
  alloc, err := engine.Allocate(clients, costs, settings)
  view := engine.EnrichClients(clients, alloc)
  kpis := engine.AggregateKPIs(view, costs, alloc, settings, engine.KPIOptions{})

SEE ALSO:
  - merge.go: Overlay application (materialized views)
  - allocate.go: Cost-per-unit and per-client allocation
  - kpi.go: Per-client and period KPI derivation
  - trend.go: Multi-period pipeline and lifetime rollups
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type CostID string

// =============================================================================
// CLIENT RECORD - One client's results for one period
// =============================================================================

type ActiveStatus string

const (
	StatusActive   ActiveStatus = "active"
	StatusInactive ActiveStatus = "inactive"
)

// ClientRecord holds one client's contracted and delivered results for a
// single period.
//
// NetRevenueAfterTax is stored independently and is authoritative: it is NOT
// always grossRevenue * (1 - taxRate). Barter deals, partial-month proration
// and historical imports set it explicitly, so the engine never recomputes it.
type ClientRecord struct {
	ID         ClientID
	ClientName string
	PeriodKey  PeriodKey

	ActiveStatus ActiveStatus
	StatusDetail string

	GrossRevenue       decimal.Decimal
	NetRevenueAfterTax decimal.Decimal

	// Over-delivery is allowed: Delivered + Undelivered need not equal
	// Contracted.
	UnitsContracted  int64
	UnitsDelivered   int64
	UnitsUndelivered int64
}

// IsActive reports whether the client counts toward period aggregates.
func (c ClientRecord) IsActive() bool { return c.ActiveStatus == StatusActive }

// =============================================================================
// COST RECORD - One cost line for one period
// =============================================================================

// CostType is the explicit classification of a cost line. It is optional:
// when absent (CostTypeUnspecified), classification falls back to the label
// keyword heuristic in classify.go.
type CostType string

const (
	CostTypeUnspecified CostType = ""
	CostTypeFixed       CostType = "fixed"
	CostTypeExtra       CostType = "extra"
	CostTypeTax         CostType = "tax"
)

// CostRecord is one cost line for a period. Inactive lines are excluded from
// every aggregate but retained for history.
type CostRecord struct {
	ID        CostID
	CostLabel string
	PeriodKey PeriodKey

	MonthlyValue   decimal.Decimal
	ActiveInPeriod bool
	CostType       CostType
}

// =============================================================================
// ALLOCATION METHOD - Closed strategy set
// =============================================================================

// AllocationMethod selects how shared operational cost is spread across
// clients. The method fixes BOTH the cost-per-unit denominator and the
// per-client multiplier; mixing them is a defect, not a feature.
type AllocationMethod string

const (
	// PerDelivered: cost per delivered unit; client pays delivered * unit cost.
	PerDelivered AllocationMethod = "per_delivered"

	// PerContracted: cost per contracted unit; client pays contracted * unit cost.
	PerContracted AllocationMethod = "per_contracted"

	// EqualShare: cost split evenly across active clients.
	EqualShare AllocationMethod = "equal_share"
)

// =============================================================================
// GLOBAL SETTINGS - Per-session, not per-period
// =============================================================================

type GlobalSettings struct {
	// TaxRate in 0..1. Used for fresh record defaults only; stored
	// NetRevenueAfterTax always wins.
	TaxRate decimal.Decimal

	// TargetMarginRatio in 0..1 (must stay below 1). Backs into the ideal
	// unit price: costPerUnit / (1 - TargetMarginRatio).
	TargetMarginRatio decimal.Decimal

	// LaborEfficiencyTarget is the desired revenue-per-labor-spend ratio.
	LaborEfficiencyTarget decimal.Decimal

	AllocationMethod AllocationMethod

	// OneTimeAdjustment is added directly to the period's total cost.
	OneTimeAdjustment decimal.Decimal

	// MaxProductionCapacity in units per period.
	MaxProductionCapacity int64

	// ManualCostPerUnitOverride short-circuits allocation entirely when > 0.
	// Zero disables the override.
	ManualCostPerUnitOverride decimal.Decimal
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() GlobalSettings {
	return GlobalSettings{
		TaxRate:                   decimal.NewFromFloat(0.10),
		TargetMarginRatio:         decimal.NewFromFloat(0.20),
		LaborEfficiencyTarget:     decimal.NewFromInt(3),
		AllocationMethod:          PerDelivered,
		OneTimeAdjustment:         decimal.Zero,
		MaxProductionCapacity:     140,
		ManualCostPerUnitOverride: decimal.Zero,
	}
}
