/*
overlay.go - The proposed-change set for a simulation session

PURPOSE:
  An Overlay is the not-yet-committed edit set layered over the base
  records: field-level overrides, whole-record additions, and soft
  deletions, plus the session's global settings.

CRITICAL INVARIANTS:
  1. The overlay never embeds a merged view. It is always re-applied
     against the live base set, so base-data edits (e.g. committing a
     prior simulation) are automatically reflected.
  2. Overrides are sparse annotations: a patch targeting an id that is
     absent from the merged view is inert, not an error.
  3. Patches are shallow: a nil pointer field falls through to the base
     value; a set pointer wins for that field only.

SEE ALSO:
  - merge.go: Applies the overlay to base records
  - session package: Appends one audit event per overlay mutation
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PATCHES - Typed shallow field overrides
// =============================================================================

// ClientPatch overrides individual ClientRecord fields. Nil means "keep the
// base value".
type ClientPatch struct {
	ClientName         *string
	ActiveStatus       *ActiveStatus
	StatusDetail       *string
	GrossRevenue       *decimal.Decimal
	NetRevenueAfterTax *decimal.Decimal
	UnitsContracted    *int64
	UnitsDelivered     *int64
	UnitsUndelivered   *int64
}

// ApplyTo returns a copy of c with the set fields replaced.
func (p ClientPatch) ApplyTo(c ClientRecord) ClientRecord {
	if p.ClientName != nil {
		c.ClientName = *p.ClientName
	}
	if p.ActiveStatus != nil {
		c.ActiveStatus = *p.ActiveStatus
	}
	if p.StatusDetail != nil {
		c.StatusDetail = *p.StatusDetail
	}
	if p.GrossRevenue != nil {
		c.GrossRevenue = *p.GrossRevenue
	}
	if p.NetRevenueAfterTax != nil {
		c.NetRevenueAfterTax = *p.NetRevenueAfterTax
	}
	if p.UnitsContracted != nil {
		c.UnitsContracted = *p.UnitsContracted
	}
	if p.UnitsDelivered != nil {
		c.UnitsDelivered = *p.UnitsDelivered
	}
	if p.UnitsUndelivered != nil {
		c.UnitsUndelivered = *p.UnitsUndelivered
	}
	return c
}

// merge folds a newer patch onto p, newest field wins.
func (p ClientPatch) merge(next ClientPatch) ClientPatch {
	if next.ClientName != nil {
		p.ClientName = next.ClientName
	}
	if next.ActiveStatus != nil {
		p.ActiveStatus = next.ActiveStatus
	}
	if next.StatusDetail != nil {
		p.StatusDetail = next.StatusDetail
	}
	if next.GrossRevenue != nil {
		p.GrossRevenue = next.GrossRevenue
	}
	if next.NetRevenueAfterTax != nil {
		p.NetRevenueAfterTax = next.NetRevenueAfterTax
	}
	if next.UnitsContracted != nil {
		p.UnitsContracted = next.UnitsContracted
	}
	if next.UnitsDelivered != nil {
		p.UnitsDelivered = next.UnitsDelivered
	}
	if next.UnitsUndelivered != nil {
		p.UnitsUndelivered = next.UnitsUndelivered
	}
	return p
}

// CostPatch overrides individual CostRecord fields.
type CostPatch struct {
	CostLabel      *string
	MonthlyValue   *decimal.Decimal
	ActiveInPeriod *bool
	CostType       *CostType
}

// ApplyTo returns a copy of c with the set fields replaced.
func (p CostPatch) ApplyTo(c CostRecord) CostRecord {
	if p.CostLabel != nil {
		c.CostLabel = *p.CostLabel
	}
	if p.MonthlyValue != nil {
		c.MonthlyValue = *p.MonthlyValue
	}
	if p.ActiveInPeriod != nil {
		c.ActiveInPeriod = *p.ActiveInPeriod
	}
	if p.CostType != nil {
		c.CostType = *p.CostType
	}
	return c
}

func (p CostPatch) merge(next CostPatch) CostPatch {
	if next.CostLabel != nil {
		p.CostLabel = next.CostLabel
	}
	if next.MonthlyValue != nil {
		p.MonthlyValue = next.MonthlyValue
	}
	if next.ActiveInPeriod != nil {
		p.ActiveInPeriod = next.ActiveInPeriod
	}
	if next.CostType != nil {
		p.CostType = next.CostType
	}
	return p
}

// =============================================================================
// OVERLAY
// =============================================================================

type Overlay struct {
	// Field overrides, period -> record id -> patch. Period-scoped.
	ClientOverrides map[PeriodKey]map[ClientID]ClientPatch
	CostOverrides   map[PeriodKey]map[CostID]CostPatch

	// Whole new records, not yet in the base set.
	AddedClients []ClientRecord
	AddedCosts   []CostRecord

	// Soft deletes: ids excluded from merged views. Global, not
	// period-scoped. Base data is untouched.
	DeletedClientIDs map[ClientID]struct{}
	DeletedCostIDs   map[CostID]struct{}

	Settings GlobalSettings
}

func NewOverlay(settings GlobalSettings) *Overlay {
	return &Overlay{
		ClientOverrides:  make(map[PeriodKey]map[ClientID]ClientPatch),
		CostOverrides:    make(map[PeriodKey]map[CostID]CostPatch),
		DeletedClientIDs: make(map[ClientID]struct{}),
		DeletedCostIDs:   make(map[CostID]struct{}),
		Settings:         settings,
	}
}

// PatchClient folds a patch into the overlay for (period, id). Later calls
// win per-field, so the overlay always reflects the latest value per field
// per record.
func (o *Overlay) PatchClient(period PeriodKey, id ClientID, patch ClientPatch) {
	byID, ok := o.ClientOverrides[period]
	if !ok {
		byID = make(map[ClientID]ClientPatch)
		o.ClientOverrides[period] = byID
	}
	byID[id] = byID[id].merge(patch)
}

// PatchCost folds a patch into the overlay for (period, id).
func (o *Overlay) PatchCost(period PeriodKey, id CostID, patch CostPatch) {
	byID, ok := o.CostOverrides[period]
	if !ok {
		byID = make(map[CostID]CostPatch)
		o.CostOverrides[period] = byID
	}
	byID[id] = byID[id].merge(patch)
}

// IsEmpty reports whether the overlay carries no record edits. Settings are
// not considered: they always exist.
func (o *Overlay) IsEmpty() bool {
	return len(o.ClientOverrides) == 0 &&
		len(o.CostOverrides) == 0 &&
		len(o.AddedClients) == 0 &&
		len(o.AddedCosts) == 0 &&
		len(o.DeletedClientIDs) == 0 &&
		len(o.DeletedCostIDs) == 0
}
