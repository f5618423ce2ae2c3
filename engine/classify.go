package engine

import "strings"

// =============================================================================
// CLASSIFICATION RULES - Pure predicates over cost records
// =============================================================================
//
// Classification is computed on read, never stored as a resolved enum.
// The explicit CostType wins when present; the label keyword heuristic is
// the fallback. Historical datasets predate the explicit field and rely on
// label matching, so the dual path must stay.

// nonOperationalKeywords marks costs that do not buy production capacity:
// reversals/refunds, accounting fees, taxes.
var nonOperationalKeywords = []string{
	"reversal",
	"refund",
	"accountant",
	"tax",
}

// laborKeywords marks people-cost lines. There is no explicit-type override
// for labor; it is label-only.
var laborKeywords = []string{
	"pro-labore",
	"editor",
	"photographer",
	"social media",
}

// IsNonOperationalCost reports whether a cost is excluded from the unit-cost
// base. Total function: any label and any (possibly empty) explicit type
// yield a verdict, never an error.
func IsNonOperationalCost(label string, explicitType CostType) bool {
	switch explicitType {
	case CostTypeExtra, CostTypeTax:
		return true
	case CostTypeFixed:
		return false
	}
	return containsAny(label, nonOperationalKeywords)
}

// IsLaborCost reports whether a cost line is labor spend (feeds the labor
// efficiency ratio).
func IsLaborCost(label string) bool {
	return containsAny(label, laborKeywords)
}

// IsOperational is the record-level convenience used by the allocation and
// KPI layers.
func (c CostRecord) IsOperational() bool {
	return !IsNonOperationalCost(c.CostLabel, c.CostType)
}

func containsAny(label string, keywords []string) bool {
	lower := strings.ToLower(label)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
