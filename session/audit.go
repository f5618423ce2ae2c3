/*
audit.go - Exportable audit report

PURPOSE:
  Builds a self-contained JSON document describing the simulation: the
  merged data, the settings in force, every logged event, the formulas
  used, and before/after KPIs for the current period. The export is
  read-only and repeatable: building it twice without intervening
  mutations yields identical content apart from the report id and
  creation time.

FORMAT:
  Money values are emitted as JSON numbers, not the quoted strings the
  decimal type produces by default, so downstream tooling can consume
  them without a custom parser.
*/
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
)

// FormulaSet documents the derivations behind the numbers. The strings are
// documentary, not executable; they travel with every export so a report
// can be audited without access to the codebase.
type FormulaSet struct {
	CostPerUnit          string `json:"costPerUnit"`
	IdealPricePerUnit    string `json:"idealPricePerUnit"`
	ClientProfit         string `json:"clientProfit"`
	Margin               string `json:"margin"`
	ROI                  string `json:"roi"`
	LaborEfficiency      string `json:"laborEfficiency"`
	CapacityUtilization  string `json:"capacityUtilization"`
	PotentialClientSlots string `json:"potentialClientSlots"`
}

// DefaultFormulas returns the documentary formula set.
func DefaultFormulas() FormulaSet {
	return FormulaSet{
		CostPerUnit:          "operationalCost / unitBase (per allocation method); manual override wins when set",
		IdealPricePerUnit:    "costPerUnit / (1 - targetMarginRatio)",
		ClientProfit:         "netRevenueAfterTax - allocatedCost",
		Margin:               "netResult / netRevenue",
		ROI:                  "netResult / totalCost",
		LaborEfficiency:      "netRevenue / laborCost",
		CapacityUtilization:  "totalContracted / maxProductionCapacity",
		PotentialClientSlots: "(maxProductionCapacity - totalContracted) / avgContractSize",
	}
}

// Report is the exported audit document.
type Report struct {
	SnapshotID string    `json:"snapshotId"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`

	CurrentPeriod string   `json:"currentPeriod"`
	Periods       []string `json:"periods"`

	Clients []reportClient `json:"clients"`
	Costs   []reportCost   `json:"costs"`

	GlobalSettings reportSettings `json:"globalSettings"`
	Formulas       FormulaSet     `json:"formulas"`

	Events []reportEvent `json:"events"`

	BeforeKPIs reportKPIs `json:"beforeKpis"`
	AfterKPIs  reportKPIs `json:"afterKpis"`
}

type reportClient struct {
	ID                 string  `json:"id"`
	ClientName         string  `json:"clientName"`
	Period             string  `json:"period"`
	ActiveStatus       string  `json:"activeStatus"`
	StatusDetail       string  `json:"statusDetail,omitempty"`
	GrossRevenue       float64 `json:"grossRevenue"`
	NetRevenueAfterTax float64 `json:"netRevenueAfterTax"`
	UnitsContracted    int64   `json:"unitsContracted"`
	UnitsDelivered     int64   `json:"unitsDelivered"`
	UnitsUndelivered   int64   `json:"unitsUndelivered"`
}

type reportCost struct {
	ID             string  `json:"id"`
	CostLabel      string  `json:"costLabel"`
	Period         string  `json:"period"`
	MonthlyValue   float64 `json:"monthlyValue"`
	ActiveInPeriod bool    `json:"activeInPeriod"`
	CostType       string  `json:"costType,omitempty"`
	Operational    bool    `json:"operational"`
}

type reportSettings struct {
	TaxRate                   float64 `json:"taxRate"`
	TargetMarginRatio         float64 `json:"targetMarginRatio"`
	LaborEfficiencyTarget     float64 `json:"laborEfficiencyTarget"`
	AllocationMethod          string  `json:"allocationMethod"`
	OneTimeAdjustment         float64 `json:"oneTimeAdjustment"`
	MaxProductionCapacity     int64   `json:"maxProductionCapacity"`
	ManualCostPerUnitOverride float64 `json:"manualCostPerUnitOverride"`
}

type reportEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"userId"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Period     string    `json:"period,omitempty"`
	Field      string    `json:"field,omitempty"`
	OldValue   any       `json:"oldValue,omitempty"`
	NewValue   any       `json:"newValue,omitempty"`
	Note       string    `json:"note,omitempty"`
}

type reportKPIs struct {
	NetRevenue     float64 `json:"netRevenue"`
	TotalCost      float64 `json:"totalCost"`
	NetResult      float64 `json:"netResult"`
	Margin         float64 `json:"margin"`
	ROI            float64 `json:"roi"`
	CostPerUnit    float64 `json:"costPerUnit"`
	TotalDelivered int64   `json:"totalDelivered"`
	ActiveClients  int     `json:"activeClients"`
}

// AuditReport builds the report for the session's current period.
// It mutates nothing.
func (s *Session) AuditReport() (Report, error) {
	before, err := s.BaselineDashboard(s.currentPeriod)
	if err != nil {
		return Report{}, fmt.Errorf("baseline: %w", err)
	}
	after, err := s.Dashboard(s.currentPeriod, nil)
	if err != nil {
		return Report{}, fmt.Errorf("simulated: %w", err)
	}

	rep := Report{
		SnapshotID:     uuid.NewString(),
		CreatedAt:      s.now().UTC(),
		CreatedBy:      s.user.ID,
		CurrentPeriod:  string(s.currentPeriod),
		GlobalSettings: toReportSettings(s.overlay.Settings),
		Formulas:       DefaultFormulas(),
		BeforeKPIs:     toReportKPIs(before.KPIs),
		AfterKPIs:      toReportKPIs(after.KPIs),
	}

	for _, p := range s.Periods() {
		rep.Periods = append(rep.Periods, string(p))
	}

	clients, costs := engine.MaterializeAll(s.baseClients, s.baseCosts, s.overlay)
	for _, c := range clients {
		rep.Clients = append(rep.Clients, reportClient{
			ID:                 string(c.ID),
			ClientName:         c.ClientName,
			Period:             string(c.PeriodKey),
			ActiveStatus:       string(c.ActiveStatus),
			StatusDetail:       c.StatusDetail,
			GrossRevenue:       toFloat(c.GrossRevenue),
			NetRevenueAfterTax: toFloat(c.NetRevenueAfterTax),
			UnitsContracted:    c.UnitsContracted,
			UnitsDelivered:     c.UnitsDelivered,
			UnitsUndelivered:   c.UnitsUndelivered,
		})
	}
	for _, c := range costs {
		rep.Costs = append(rep.Costs, reportCost{
			ID:             string(c.ID),
			CostLabel:      c.CostLabel,
			Period:         string(c.PeriodKey),
			MonthlyValue:   toFloat(c.MonthlyValue),
			ActiveInPeriod: c.ActiveInPeriod,
			CostType:       string(c.CostType),
			Operational:    c.IsOperational(),
		})
	}
	for _, ev := range s.events {
		rep.Events = append(rep.Events, reportEvent{
			ID:         ev.ID.String(),
			Timestamp:  ev.Timestamp,
			UserID:     ev.UserID,
			TargetType: string(ev.TargetType),
			TargetID:   ev.TargetID,
			Period:     string(ev.Period),
			Field:      ev.Field,
			OldValue:   jsonValue(ev.OldValue),
			NewValue:   jsonValue(ev.NewValue),
			Note:       ev.Note,
		})
	}
	return rep, nil
}

// ExportJSON renders the report as indented JSON.
func (s *Session) ExportJSON() ([]byte, error) {
	rep, err := s.AuditReport()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rep, "", "  ")
}

// Filename returns the canonical export filename for a report.
func (r Report) Filename() string {
	return fmt.Sprintf("audit_%s.json", r.SnapshotID)
}

func toReportSettings(s engine.GlobalSettings) reportSettings {
	return reportSettings{
		TaxRate:                   toFloat(s.TaxRate),
		TargetMarginRatio:         toFloat(s.TargetMarginRatio),
		LaborEfficiencyTarget:     toFloat(s.LaborEfficiencyTarget),
		AllocationMethod:          string(s.AllocationMethod),
		OneTimeAdjustment:         toFloat(s.OneTimeAdjustment),
		MaxProductionCapacity:     s.MaxProductionCapacity,
		ManualCostPerUnitOverride: toFloat(s.ManualCostPerUnitOverride),
	}
}

func toReportKPIs(k engine.KPIResult) reportKPIs {
	return reportKPIs{
		NetRevenue:     toFloat(k.NetRevenue),
		TotalCost:      toFloat(k.TotalCost),
		NetResult:      toFloat(k.NetResult),
		Margin:         toFloat(k.Margin),
		ROI:            toFloat(k.ROI),
		CostPerUnit:    toFloat(k.CostPerUnit),
		TotalDelivered: k.TotalDelivered,
		ActiveClients:  k.ActiveClients,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// jsonValue flattens decimals so event values render as numbers.
func jsonValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return toFloat(d)
	}
	return v
}
