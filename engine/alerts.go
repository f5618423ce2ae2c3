/*
alerts.go - Derived health warnings

PURPOSE:
  Scans evaluated periods for conditions worth surfacing: periods that
  earn revenue but run at a loss (critical), and clients whose revenue
  does not cover their share of operational cost (warning). Output
  order is deterministic: all criticals first, then warnings, each in
  the order encountered.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertSeverity ranks an alert.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
)

// Alert is one derived finding.
type Alert struct {
	Severity   AlertSeverity
	Period     PeriodKey
	ClientName string
	Message    string

	// Historical marks findings from periods other than the current one.
	Historical bool
}

// DeriveAlerts scans every evaluated period. currentPeriod controls the
// Historical flag only; all periods are inspected.
func DeriveAlerts(results []PeriodResult, currentPeriod PeriodKey) []Alert {
	var criticals, warnings []Alert

	for _, r := range results {
		historical := r.Period != currentPeriod

		if r.KPIs.NetRevenue.GreaterThan(decimal.Zero) && r.KPIs.Margin.LessThan(decimal.Zero) {
			criticals = append(criticals, Alert{
				Severity: SeverityCritical,
				Period:   r.Period,
				Message: fmt.Sprintf("period %s is operating at a loss (margin %s%%)",
					r.Period, r.KPIs.Margin.Mul(decimal.NewFromInt(100)).StringFixed(1)),
				Historical: historical,
			})
		}

		// Per-client cost share uses operational cost spread over delivered
		// volume, independent of the configured allocation method.
		opShare := safeDiv(r.KPIs.TotalOperationalCost, decimal.NewFromInt(r.KPIs.TotalDelivered))
		for _, c := range r.Clients {
			if c.UnitsDelivered <= 0 {
				continue
			}
			carried := opShare.Mul(decimal.NewFromInt(c.UnitsDelivered))
			if c.NetRevenue.Sub(carried).LessThan(decimal.Zero) {
				warnings = append(warnings, Alert{
					Severity:   SeverityWarning,
					Period:     r.Period,
					ClientName: c.ClientName,
					Message: fmt.Sprintf("client %s in %s does not cover its operational cost share",
						c.ClientName, r.Period),
					Historical: historical,
				})
			}
		}
	}

	return append(criticals, warnings...)
}
