package engine_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func testClient(id, name string, period engine.PeriodKey, net float64, contracted, delivered int64) engine.ClientRecord {
	return engine.ClientRecord{
		ID:                engine.ClientID(id),
		ClientName:        name,
		PeriodKey:         period,
		ActiveStatus:      engine.StatusActive,
		GrossRevenue:       dec(net).Div(dec(0.9)),
		NetRevenueAfterTax: dec(net),
		UnitsContracted:    contracted,
		UnitsDelivered:     delivered,
	}
}

func testCost(id, label string, period engine.PeriodKey, value float64, typ engine.CostType) engine.CostRecord {
	return engine.CostRecord{
		ID:             engine.CostID(id),
		CostLabel:      label,
		PeriodKey:      period,
		MonthlyValue:   dec(value),
		ActiveInPeriod: true,
		CostType:       typ,
	}
}

func decEqual(t *testing.T, want, got decimal.Decimal, label string) {
	t.Helper()
	if !want.Sub(got).Abs().LessThan(dec(0.0001)) {
		t.Errorf("%s: want %s, got %s", label, want, got)
	}
}

const periodDec engine.PeriodKey = "December/2025"

// twoClientFixture is the worked baseline: 300 of operational cost over
// 15 delivered units.
func twoClientFixture() ([]engine.ClientRecord, []engine.CostRecord) {
	clients := []engine.ClientRecord{
		testClient("c-a", "Alpha Studio", periodDec, 900, 20, 10),
		testClient("c-b", "Beta Films", periodDec, 400, 10, 5),
	}
	costs := []engine.CostRecord{
		testCost("x-1", "Editor", periodDec, 200, engine.CostTypeFixed),
		testCost("x-2", "Equipment lease", periodDec, 100, engine.CostTypeFixed),
	}
	return clients, costs
}

// =============================================================================
// ALLOCATION
// =============================================================================

func TestAllocate_PerDelivered_CostPerUnit(t *testing.T) {
	// GIVEN: 300 of operational cost, 15 delivered units
	// WHEN: Allocating per delivered unit
	// THEN: Cost per unit is 20, ideal price is 25 at a 20% target margin
	clients, costs := twoClientFixture()

	alloc, err := engine.Allocate(clients, costs, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	decEqual(t, dec(20), alloc.CostPerUnit, "cost per unit")
	decEqual(t, dec(25), alloc.IdealPricePerUnit, "ideal price per unit")
	decEqual(t, dec(200), alloc.PerClient["c-a"], "alpha share")
	decEqual(t, dec(100), alloc.PerClient["c-b"], "beta share")
}

func TestAllocate_SharesConserveTotalCost(t *testing.T) {
	// GIVEN: Any allocation over active clients
	// WHEN: Summing per-client shares under per_delivered
	// THEN: The sum equals operational cost (no cost invented or lost)
	clients, costs := twoClientFixture()

	alloc, err := engine.Allocate(clients, costs, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	var sum decimal.Decimal
	for _, share := range alloc.PerClient {
		sum = sum.Add(share)
	}
	decEqual(t, alloc.OperationalCost, sum, "share sum")
}

func TestAllocate_EqualShare(t *testing.T) {
	// GIVEN: 2 active clients, 300 of operational cost
	// WHEN: Allocating equal_share
	// THEN: Each client carries 150
	clients, costs := twoClientFixture()
	settings := engine.DefaultSettings()
	settings.AllocationMethod = engine.EqualShare

	alloc, err := engine.Allocate(clients, costs, settings)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	decEqual(t, dec(150), alloc.PerClient["c-a"], "alpha share")
	decEqual(t, dec(150), alloc.PerClient["c-b"], "beta share")
}

func TestAllocate_ZeroDelivered_NoPanic(t *testing.T) {
	// GIVEN: Costs exist but nothing was delivered
	// WHEN: Allocating per delivered unit
	// THEN: Cost per unit is zero, not a division panic
	clients := []engine.ClientRecord{
		testClient("c-a", "Alpha Studio", periodDec, 900, 20, 0),
	}
	costs := []engine.CostRecord{
		testCost("x-1", "Editor", periodDec, 200, engine.CostTypeFixed),
	}

	alloc, err := engine.Allocate(clients, costs, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !alloc.CostPerUnit.IsZero() {
		t.Errorf("cost per unit with zero delivered: got %s, want 0", alloc.CostPerUnit)
	}
}

func TestAllocate_ManualOverride_ShortCircuits(t *testing.T) {
	// GIVEN: A manual cost-per-unit override of 42
	// WHEN: Allocating
	// THEN: The override wins regardless of method and volume
	clients, costs := twoClientFixture()
	settings := engine.DefaultSettings()
	settings.ManualCostPerUnitOverride = dec(42)

	alloc, err := engine.Allocate(clients, costs, settings)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	decEqual(t, dec(42), alloc.CostPerUnit, "overridden cost per unit")
}

func TestAllocate_TargetMarginAtOne_Errors(t *testing.T) {
	// GIVEN: A target margin ratio of 1.0
	// WHEN: Allocating
	// THEN: A typed configuration error, never a divide-by-zero
	clients, costs := twoClientFixture()
	settings := engine.DefaultSettings()
	settings.TargetMarginRatio = dec(1)

	_, err := engine.Allocate(clients, costs, settings)
	if !errors.Is(err, engine.ErrTargetMarginTooHigh) {
		t.Fatalf("want ErrTargetMarginTooHigh, got %v", err)
	}
	if !engine.IsConfigError(err) {
		t.Errorf("expected IsConfigError to report true")
	}
}

func TestAllocate_InactiveClientsExcluded(t *testing.T) {
	// GIVEN: An inactive client with delivered volume
	// WHEN: Allocating per delivered unit
	// THEN: The inactive client contributes no volume and carries zero cost
	clients, costs := twoClientFixture()
	inactive := testClient("c-x", "Gone Co", periodDec, 500, 10, 10)
	inactive.ActiveStatus = engine.StatusInactive
	clients = append(clients, inactive)

	alloc, err := engine.Allocate(clients, costs, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	decEqual(t, dec(20), alloc.CostPerUnit, "cost per unit unchanged")
	decEqual(t, decimal.Zero, alloc.PerClient["c-x"], "inactive share")
}

// =============================================================================
// KPI AGGREGATION
// =============================================================================

func TestRunPeriod_BaselineKPIs(t *testing.T) {
	// GIVEN: Two clients with 1300 net revenue and 300 operational cost
	// WHEN: Running the full period pipeline
	// THEN: Profits are 700 and 300, net result is 1000
	clients, costs := twoClientFixture()

	res, err := engine.RunPeriod(periodDec, clients, costs, nil, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("RunPeriod: %v", err)
	}

	decEqual(t, dec(700), res.Clients[0].Profit, "alpha profit")
	decEqual(t, dec(300), res.Clients[1].Profit, "beta profit")
	decEqual(t, dec(1000), res.KPIs.NetResult, "net result")
	decEqual(t, dec(1300), res.KPIs.NetRevenue, "net revenue")
}

func TestRunPeriod_CapacityFigures(t *testing.T) {
	// GIVEN: 30 contracted units against a capacity of 140, 2 active clients
	// WHEN: Aggregating KPIs
	// THEN: Utilization is 30/140 and potential slots is 110/15
	clients, costs := twoClientFixture()

	res, err := engine.RunPeriod(periodDec, clients, costs, nil, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("RunPeriod: %v", err)
	}

	decEqual(t, dec(30).Div(dec(140)), res.KPIs.CapacityUtilization, "utilization")
	decEqual(t, dec(110).Div(dec(15)), res.KPIs.PotentialClientSlots, "potential slots")
}

func TestRunPeriod_EmptyPeriod_AllZeros(t *testing.T) {
	// GIVEN: No records in the requested period
	// WHEN: Running the pipeline
	// THEN: Every ratio is zero, nothing panics
	clients, costs := twoClientFixture()

	res, err := engine.RunPeriod("March/2026", clients, costs, nil, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("RunPeriod: %v", err)
	}
	if !res.KPIs.Margin.IsZero() || !res.KPIs.ROI.IsZero() || !res.KPIs.LaborEfficiencyRatio.IsZero() {
		t.Errorf("expected zero ratios for empty period, got %+v", res.KPIs)
	}
}

func TestRunPeriodFiltered_SingleClientCost(t *testing.T) {
	// GIVEN: A filter selecting only the first client
	// WHEN: Aggregating KPIs
	// THEN: Total cost is that client's allocated share, not the period total
	clients, costs := twoClientFixture()
	opts := engine.KPIOptions{ClientFilter: map[engine.ClientID]struct{}{"c-a": {}}}

	res, err := engine.RunPeriodFiltered(periodDec, clients, costs, nil, engine.DefaultSettings(), opts)
	if err != nil {
		t.Fatalf("RunPeriodFiltered: %v", err)
	}

	decEqual(t, dec(900), res.KPIs.NetRevenue, "filtered net revenue")
	decEqual(t, dec(200), res.KPIs.TotalCost, "filtered total cost")
	decEqual(t, dec(700), res.KPIs.NetResult, "filtered net result")
}

func TestAggregateKPIs_StoredNetRevenueIsAuthoritative(t *testing.T) {
	// GIVEN: A stored net revenue inconsistent with gross * (1 - taxRate)
	// WHEN: Aggregating
	// THEN: The stored value is used unchanged
	c := testClient("c-a", "Alpha Studio", periodDec, 500, 10, 10)
	c.GrossRevenue = dec(9999)

	res, err := engine.RunPeriod(periodDec, []engine.ClientRecord{c}, nil, nil, engine.DefaultSettings())
	if err != nil {
		t.Fatalf("RunPeriod: %v", err)
	}
	decEqual(t, dec(500), res.KPIs.NetRevenue, "stored net revenue")
	decEqual(t, dec(9999), res.KPIs.GrossRevenue, "gross revenue")
}

func TestAggregateKPIs_OneTimeAdjustmentInTotalCost(t *testing.T) {
	// GIVEN: A one-time adjustment of 50
	// WHEN: Aggregating the unfiltered period
	// THEN: Total cost includes the adjustment
	clients, costs := twoClientFixture()
	settings := engine.DefaultSettings()
	settings.OneTimeAdjustment = dec(50)

	res, err := engine.RunPeriod(periodDec, clients, costs, nil, settings)
	if err != nil {
		t.Fatalf("RunPeriod: %v", err)
	}
	decEqual(t, dec(350), res.KPIs.TotalCost, "total cost with adjustment")
	decEqual(t, dec(950), res.KPIs.NetResult, "net result with adjustment")
}
