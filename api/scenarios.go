/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that populate a fresh session with
	realistic agency data for testing and demos. Each scenario builds a
	snapshot of clients, costs and settings for a small content-production
	agency.

AVAILABLE SCENARIOS:

	two-months:   Two periods of healthy history, the default seed
	loss-month:   A month where extra costs push the agency into loss
	single-client: One client carrying the whole operation

HOW SCENARIOS WORK:
 1. Build the scenario's snapshot in memory
 2. Replace the live session with a fresh one seeded from it
 3. The previous simulation state is discarded

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "two-months"}

NOTE:

	Loading a scenario discards the live simulation. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - session/store.go: Snapshot shape
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
)

// =============================================================================
// SCENARIO CATALOG
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "two-months",
		Name:        "Two Months of History",
		Description: "December and January for a small content agency: five clients, labor and fixed costs, healthy margins.",
	},
	{
		ID:          "loss-month",
		Name:        "Loss Month",
		Description: "A single month where one-off extra costs push the agency into a loss, for exercising alerts.",
	},
	{
		ID:          "single-client",
		Name:        "Single Client",
		Description: "One client carrying every cost, for studying allocation and price-gap math.",
	},
}

// ListScenarios handles GET /api/scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
}

// LoadScenario handles POST /api/scenarios/load. The live simulation is
// discarded and replaced with a fresh session seeded from the scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snap, current, ok := BuildScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.session = session.NewSession(session.User{ID: "demo", Name: "Demo"}, snap, current)
	if h.metrics != nil {
		h.metrics.EventLogSize.Set(0)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"period":   string(current),
	})
}

// BuildScenario returns the snapshot and current period for a scenario id.
// cmd/server uses this to seed an empty store on first run.
func BuildScenario(id string) (session.Snapshot, engine.PeriodKey, bool) {
	switch id {
	case "two-months":
		return twoMonthsScenario(), "January/2026", true
	case "loss-month":
		return lossMonthScenario(), "January/2026", true
	case "single-client":
		return singleClientScenario(), "January/2026", true
	default:
		return session.Snapshot{}, "", false
	}
}

// DefaultScenarioID is the seed used when the store is empty at startup.
const DefaultScenarioID = "two-months"

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func money(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func seedClient(id, name string, period engine.PeriodKey, gross, net float64, contracted, delivered int64) engine.ClientRecord {
	return engine.ClientRecord{
		ID:                 engine.ClientID(id),
		ClientName:         name,
		PeriodKey:          period,
		ActiveStatus:       engine.StatusActive,
		GrossRevenue:       money(gross),
		NetRevenueAfterTax: money(net),
		UnitsContracted:    contracted,
		UnitsDelivered:     delivered,
		UnitsUndelivered:   contracted - delivered,
	}
}

func seedCost(id, label string, period engine.PeriodKey, value float64, typ engine.CostType) engine.CostRecord {
	return engine.CostRecord{
		ID:             engine.CostID(id),
		CostLabel:      label,
		PeriodKey:      period,
		MonthlyValue:   money(value),
		ActiveInPeriod: true,
		CostType:       typ,
	}
}

func newScenarioSnapshot(id string, clients []engine.ClientRecord, costs []engine.CostRecord, periods []engine.PeriodKey) session.Snapshot {
	return session.Snapshot{
		ID:        id,
		CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: "seed",
		Clients:   clients,
		Costs:     costs,
		Periods:   periods,
		Settings:  engine.DefaultSettings(),
	}
}

func twoMonthsScenario() session.Snapshot {
	const dec engine.PeriodKey = "December/2025"
	const jan engine.PeriodKey = "January/2026"

	clients := []engine.ClientRecord{
		seedClient("cl-aurora-dec", "Aurora Fitness", dec, 3200, 2880, 8, 8),
		seedClient("cl-mercado-dec", "Mercado Verde", dec, 2500, 2250, 6, 5),
		seedClient("cl-atelier-dec", "Atelier Nuvem", dec, 1800, 1620, 4, 4),
		seedClient("cl-lumen-dec", "Lumen Dental", dec, 1500, 1350, 4, 3),

		seedClient("cl-aurora-jan", "Aurora Fitness", jan, 3200, 2880, 8, 8),
		seedClient("cl-mercado-jan", "Mercado Verde", jan, 2500, 2250, 6, 6),
		seedClient("cl-atelier-jan", "Atelier Nuvem", jan, 1800, 1620, 4, 4),
		seedClient("cl-lumen-jan", "Lumen Dental", jan, 1500, 1350, 4, 4),
		seedClient("cl-horizonte-jan", "Horizonte Imoveis", jan, 2000, 1800, 5, 4),
	}

	costs := []engine.CostRecord{
		seedCost("ct-prolabore-dec", "Pro-labore", dec, 2400, engine.CostTypeFixed),
		seedCost("ct-editor-dec", "Editor", dec, 1600, engine.CostTypeFixed),
		seedCost("ct-photo-dec", "Photographer", dec, 900, engine.CostTypeFixed),
		seedCost("ct-tools-dec", "Editing software", dec, 220, engine.CostTypeFixed),
		seedCost("ct-das-dec", "Tax DAS", dec, 480, engine.CostTypeTax),
		seedCost("ct-acct-dec", "Accountant retainer", dec, 350, engine.CostTypeUnspecified),

		seedCost("ct-prolabore-jan", "Pro-labore", jan, 2400, engine.CostTypeFixed),
		seedCost("ct-editor-jan", "Editor", jan, 1600, engine.CostTypeFixed),
		seedCost("ct-photo-jan", "Photographer", jan, 900, engine.CostTypeFixed),
		seedCost("ct-social-jan", "Social Media assistant", jan, 700, engine.CostTypeFixed),
		seedCost("ct-tools-jan", "Editing software", jan, 220, engine.CostTypeFixed),
		seedCost("ct-das-jan", "Tax DAS", jan, 520, engine.CostTypeTax),
		seedCost("ct-acct-jan", "Accountant retainer", jan, 350, engine.CostTypeUnspecified),
	}

	return newScenarioSnapshot("seed-two-months", clients, costs, []engine.PeriodKey{dec, jan})
}

func lossMonthScenario() session.Snapshot {
	const jan engine.PeriodKey = "January/2026"

	clients := []engine.ClientRecord{
		seedClient("cl-aurora", "Aurora Fitness", jan, 3200, 2880, 8, 6),
		seedClient("cl-mercado", "Mercado Verde", jan, 2500, 2250, 6, 4),
	}

	costs := []engine.CostRecord{
		seedCost("ct-prolabore", "Pro-labore", jan, 2400, engine.CostTypeFixed),
		seedCost("ct-editor", "Editor", jan, 1600, engine.CostTypeFixed),
		seedCost("ct-camera", "Camera repair", jan, 1800, engine.CostTypeExtra),
		seedCost("ct-refund", "Client refund", jan, 900, engine.CostTypeUnspecified),
		seedCost("ct-das", "Tax DAS", jan, 480, engine.CostTypeTax),
	}

	return newScenarioSnapshot("seed-loss-month", clients, costs, []engine.PeriodKey{jan})
}

func singleClientScenario() session.Snapshot {
	const jan engine.PeriodKey = "January/2026"

	clients := []engine.ClientRecord{
		seedClient("cl-aurora", "Aurora Fitness", jan, 5000, 4500, 12, 10),
	}

	costs := []engine.CostRecord{
		seedCost("ct-prolabore", "Pro-labore", jan, 2400, engine.CostTypeFixed),
		seedCost("ct-editor", "Editor", jan, 1200, engine.CostTypeFixed),
		seedCost("ct-tools", "Editing software", jan, 200, engine.CostTypeFixed),
	}

	return newScenarioSnapshot("seed-single-client", clients, costs, []engine.PeriodKey{jan})
}
