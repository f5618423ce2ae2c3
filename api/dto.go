/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

MONEY:
  Internal money is decimal; the API emits plain JSON numbers. All
  conversions happen here, in one direction only (domain -> DTO).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and the session layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - session/audit.go: The audit export has its own JSON shape
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// FieldOverrideRequest sets one field of a client or cost row in one period.
type FieldOverrideRequest struct {
	Period string `json:"period"`
	Field  string `json:"field"`
	Value  any    `json:"value"`
}

// CreateClientRequest adds a simulated client row.
type CreateClientRequest struct {
	ClientName         string  `json:"clientName"`
	Period             string  `json:"period"`
	ActiveStatus       string  `json:"activeStatus,omitempty"`
	StatusDetail       string  `json:"statusDetail,omitempty"`
	GrossRevenue       float64 `json:"grossRevenue"`
	NetRevenueAfterTax float64 `json:"netRevenueAfterTax"`
	UnitsContracted    int64   `json:"unitsContracted"`
	UnitsDelivered     int64   `json:"unitsDelivered"`
	UnitsUndelivered   int64   `json:"unitsUndelivered"`
}

// CreateCostRequest adds a simulated cost row.
type CreateCostRequest struct {
	CostLabel      string  `json:"costLabel"`
	Period         string  `json:"period"`
	MonthlyValue   float64 `json:"monthlyValue"`
	ActiveInPeriod *bool   `json:"activeInPeriod,omitempty"`
	CostType       string  `json:"costType,omitempty"`
}

// UpdateSettingsRequest changes global settings. Only present fields are
// applied; each applied field is logged as its own event.
type UpdateSettingsRequest struct {
	TaxRate                   *float64 `json:"taxRate,omitempty"`
	TargetMarginRatio         *float64 `json:"targetMarginRatio,omitempty"`
	LaborEfficiencyTarget     *float64 `json:"laborEfficiencyTarget,omitempty"`
	AllocationMethod          *string  `json:"allocationMethod,omitempty"`
	OneTimeAdjustment         *float64 `json:"oneTimeAdjustment,omitempty"`
	MaxProductionCapacity     *int64   `json:"maxProductionCapacity,omitempty"`
	ManualCostPerUnitOverride *float64 `json:"manualCostPerUnitOverride,omitempty"`
}

// CommitRequest gates the commit behind an explicit confirmation.
type CommitRequest struct {
	Confirm bool `json:"confirm"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ClientDTO is an enriched client row.
type ClientDTO struct {
	ID                      string  `json:"id"`
	ClientName              string  `json:"clientName"`
	Period                  string  `json:"period"`
	ActiveStatus            string  `json:"activeStatus"`
	StatusDetail            string  `json:"statusDetail,omitempty"`
	GrossRevenue            float64 `json:"grossRevenue"`
	NetRevenue              float64 `json:"netRevenue"`
	UnitsContracted         int64   `json:"unitsContracted"`
	UnitsDelivered          int64   `json:"unitsDelivered"`
	UnitsUndelivered        int64   `json:"unitsUndelivered"`
	AllocatedCost           float64 `json:"allocatedCost"`
	Profit                  float64 `json:"profit"`
	Margin                  float64 `json:"margin"`
	RevenuePerUnit          float64 `json:"revenuePerUnit"`
	IdealRevenueForContract float64 `json:"idealRevenueForContract"`
	PriceGap                float64 `json:"priceGap"`
}

// CostDTO is a cost row with its derived classification.
type CostDTO struct {
	ID             string  `json:"id"`
	CostLabel      string  `json:"costLabel"`
	Period         string  `json:"period"`
	MonthlyValue   float64 `json:"monthlyValue"`
	ActiveInPeriod bool    `json:"activeInPeriod"`
	CostType       string  `json:"costType,omitempty"`
	Operational    bool    `json:"operational"`
	Labor          bool    `json:"labor"`
}

// KPIsDTO is the period KPI bundle.
type KPIsDTO struct {
	GrossRevenue            float64 `json:"grossRevenue"`
	NetRevenue              float64 `json:"netRevenue"`
	TotalCost               float64 `json:"totalCost"`
	TotalOperationalCost    float64 `json:"totalOperationalCost"`
	TotalNonOperationalCost float64 `json:"totalNonOperationalCost"`
	TotalLaborCost          float64 `json:"totalLaborCost"`
	NetResult               float64 `json:"netResult"`
	Margin                  float64 `json:"margin"`
	ROI                     float64 `json:"roi"`
	LaborEfficiencyRatio    float64 `json:"laborEfficiencyRatio"`
	CostPerUnit             float64 `json:"costPerUnit"`
	IdealPricePerUnit       float64 `json:"idealPricePerUnit"`
	TotalDelivered          int64   `json:"totalDelivered"`
	TotalContracted         int64   `json:"totalContracted"`
	ActiveClients           int     `json:"activeClients"`
	MaxCapacity             int64   `json:"maxCapacity"`
	CapacityUtilization     float64 `json:"capacityUtilization"`
	PotentialClientSlots    float64 `json:"potentialClientSlots"`
}

// DashboardDTO is the full evaluated state of one period.
type DashboardDTO struct {
	Period  string      `json:"period"`
	Dirty   bool        `json:"dirty"`
	Clients []ClientDTO `json:"clients"`
	Costs   []CostDTO   `json:"costs"`
	KPIs    KPIsDTO     `json:"kpis"`
}

// SettingsDTO mirrors the global settings.
type SettingsDTO struct {
	TaxRate                   float64 `json:"taxRate"`
	TargetMarginRatio         float64 `json:"targetMarginRatio"`
	LaborEfficiencyTarget     float64 `json:"laborEfficiencyTarget"`
	AllocationMethod          string  `json:"allocationMethod"`
	OneTimeAdjustment         float64 `json:"oneTimeAdjustment"`
	MaxProductionCapacity     int64   `json:"maxProductionCapacity"`
	ManualCostPerUnitOverride float64 `json:"manualCostPerUnitOverride"`
}

// TrendPointDTO is one period in the trend series.
type TrendPointDTO struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
	Margin  float64 `json:"margin"`
}

// LifetimeValueDTO is one client's accumulated history.
type LifetimeValueDTO struct {
	ClientName     string   `json:"clientName"`
	TotalRevenue   float64  `json:"totalRevenue"`
	TotalDelivered int64    `json:"totalDelivered"`
	RevenuePerUnit float64  `json:"revenuePerUnit"`
	RecordIDs      []string `json:"recordIds"`
}

// TrendDTO bundles the trend series with the lifetime rollup.
type TrendDTO struct {
	Points   []TrendPointDTO    `json:"points"`
	Lifetime []LifetimeValueDTO `json:"lifetime"`
}

// AlertDTO is one derived finding.
type AlertDTO struct {
	Severity   string `json:"severity"`
	Period     string `json:"period"`
	ClientName string `json:"clientName,omitempty"`
	Message    string `json:"message"`
	Historical bool   `json:"historical"`
}

// EventDTO is one audit log entry.
type EventDTO struct {
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

// ValidationDTO is the pre-commit check result.
type ValidationDTO struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CommitResponse reports the snapshot a commit produced.
type CommitResponse struct {
	SnapshotID string    `json:"snapshotId"`
	CreatedAt  time.Time `json:"createdAt"`
	Clients    int       `json:"clients"`
	Costs      int       `json:"costs"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toClientDTO(c engine.ClientKPI) ClientDTO {
	return ClientDTO{
		ID:                      string(c.ID),
		ClientName:              c.ClientName,
		Period:                  string(c.PeriodKey),
		ActiveStatus:            string(c.ActiveStatus),
		StatusDetail:            c.StatusDetail,
		GrossRevenue:            toFloat(c.GrossRevenue),
		NetRevenue:              toFloat(c.NetRevenue),
		UnitsContracted:         c.UnitsContracted,
		UnitsDelivered:          c.UnitsDelivered,
		UnitsUndelivered:        c.UnitsUndelivered,
		AllocatedCost:           toFloat(c.AllocatedCost),
		Profit:                  toFloat(c.Profit),
		Margin:                  toFloat(c.Margin),
		RevenuePerUnit:          toFloat(c.RevenuePerUnit),
		IdealRevenueForContract: toFloat(c.IdealRevenueForContract),
		PriceGap:                toFloat(c.PriceGap),
	}
}

func toCostDTO(c engine.CostRecord) CostDTO {
	return CostDTO{
		ID:             string(c.ID),
		CostLabel:      c.CostLabel,
		Period:         string(c.PeriodKey),
		MonthlyValue:   toFloat(c.MonthlyValue),
		ActiveInPeriod: c.ActiveInPeriod,
		CostType:       string(c.CostType),
		Operational:    c.IsOperational(),
		Labor:          engine.IsLaborCost(c.CostLabel),
	}
}

func toKPIsDTO(k engine.KPIResult) KPIsDTO {
	return KPIsDTO{
		GrossRevenue:            toFloat(k.GrossRevenue),
		NetRevenue:              toFloat(k.NetRevenue),
		TotalCost:               toFloat(k.TotalCost),
		TotalOperationalCost:    toFloat(k.TotalOperationalCost),
		TotalNonOperationalCost: toFloat(k.TotalNonOperationalCost),
		TotalLaborCost:          toFloat(k.TotalLaborCost),
		NetResult:               toFloat(k.NetResult),
		Margin:                  toFloat(k.Margin),
		ROI:                     toFloat(k.ROI),
		LaborEfficiencyRatio:    toFloat(k.LaborEfficiencyRatio),
		CostPerUnit:             toFloat(k.CostPerUnit),
		IdealPricePerUnit:       toFloat(k.IdealPricePerUnit),
		TotalDelivered:          k.TotalDelivered,
		TotalContracted:         k.TotalContracted,
		ActiveClients:           k.ActiveClients,
		MaxCapacity:             k.MaxCapacity,
		CapacityUtilization:     toFloat(k.CapacityUtilization),
		PotentialClientSlots:    toFloat(k.PotentialClientSlots),
	}
}

func toDashboardDTO(res engine.PeriodResult, dirty bool) DashboardDTO {
	dto := DashboardDTO{
		Period:  string(res.Period),
		Dirty:   dirty,
		Clients: make([]ClientDTO, 0, len(res.Clients)),
		Costs:   make([]CostDTO, 0, len(res.Costs)),
		KPIs:    toKPIsDTO(res.KPIs),
	}
	for _, c := range res.Clients {
		dto.Clients = append(dto.Clients, toClientDTO(c))
	}
	for _, c := range res.Costs {
		dto.Costs = append(dto.Costs, toCostDTO(c))
	}
	return dto
}

func toSettingsDTO(s engine.GlobalSettings) SettingsDTO {
	return SettingsDTO{
		TaxRate:                   toFloat(s.TaxRate),
		TargetMarginRatio:         toFloat(s.TargetMarginRatio),
		LaborEfficiencyTarget:     toFloat(s.LaborEfficiencyTarget),
		AllocationMethod:          string(s.AllocationMethod),
		OneTimeAdjustment:         toFloat(s.OneTimeAdjustment),
		MaxProductionCapacity:     s.MaxProductionCapacity,
		ManualCostPerUnitOverride: toFloat(s.ManualCostPerUnitOverride),
	}
}

func toTrendDTO(points []engine.TrendPoint, lifetime []engine.LifetimeValue) TrendDTO {
	dto := TrendDTO{
		Points:   make([]TrendPointDTO, 0, len(points)),
		Lifetime: make([]LifetimeValueDTO, 0, len(lifetime)),
	}
	for _, p := range points {
		dto.Points = append(dto.Points, TrendPointDTO{
			Period:  string(p.Period),
			Revenue: toFloat(p.Revenue),
			Cost:    toFloat(p.Cost),
			Profit:  toFloat(p.Profit),
			Margin:  toFloat(p.Margin),
		})
	}
	for _, l := range lifetime {
		ids := make([]string, 0, len(l.RecordIDs))
		for _, id := range l.RecordIDs {
			ids = append(ids, string(id))
		}
		dto.Lifetime = append(dto.Lifetime, LifetimeValueDTO{
			ClientName:     l.ClientName,
			TotalRevenue:   toFloat(l.TotalRevenue),
			TotalDelivered: l.TotalDelivered,
			RevenuePerUnit: toFloat(l.RevenuePerUnit),
			RecordIDs:      ids,
		})
	}
	return dto
}

func toAlertDTOs(alerts []engine.Alert) []AlertDTO {
	out := make([]AlertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertDTO{
			Severity:   string(a.Severity),
			Period:     string(a.Period),
			ClientName: a.ClientName,
			Message:    a.Message,
			Historical: a.Historical,
		})
	}
	return out
}

func toEventDTOs(events []session.Event) []EventDTO {
	out := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, EventDTO{
			ID:         ev.ID.String(),
			Timestamp:  ev.Timestamp,
			UserID:     ev.UserID,
			TargetType: string(ev.TargetType),
			TargetID:   ev.TargetID,
			Period:     string(ev.Period),
			Field:      ev.Field,
			OldValue:   flattenValue(ev.OldValue),
			NewValue:   flattenValue(ev.NewValue),
			Note:       ev.Note,
		})
	}
	return out
}

// flattenValue keeps event values JSON-number friendly.
func flattenValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return toFloat(d)
	}
	return v
}
