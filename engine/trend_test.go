package engine_test

import (
	"testing"

	"github.com/zline/bi-engine/engine"
)

func TestBuildTrend_ChronologicalOrder(t *testing.T) {
	// GIVEN: Period results supplied out of order
	// WHEN: Building the trend
	// THEN: Points come back in chronological order with period headline figures
	decClients, decCosts := twoClientFixture()
	jan := engine.PeriodKey("January/2026")
	janClients := []engine.ClientRecord{
		testClient("c-a2", "Alpha Studio", jan, 1000, 20, 12),
	}

	janRes := runPeriods(t, janClients, nil, jan)
	decRes := runPeriods(t, decClients, decCosts, periodDec)

	points := engine.BuildTrend(append(janRes, decRes...))

	if len(points) != 2 {
		t.Fatalf("want 2 trend points, got %d", len(points))
	}
	if points[0].Period != periodDec || points[1].Period != jan {
		t.Fatalf("trend out of order: %s, %s", points[0].Period, points[1].Period)
	}
	decEqual(t, dec(1000), points[0].Profit, "december profit")
	decEqual(t, dec(1300), points[0].Revenue, "december revenue")
}

func TestBuildLifetime_NameKeyedAcrossPeriods(t *testing.T) {
	// GIVEN: The same client name under different record ids in two periods
	// WHEN: Rolling up lifetime value
	// THEN: One row accumulates both periods and carries both record ids
	decClients, decCosts := twoClientFixture()
	jan := engine.PeriodKey("January/2026")
	janClients := []engine.ClientRecord{
		testClient("c-a2", "Alpha Studio", jan, 1000, 20, 12),
	}

	results := append(
		runPeriods(t, decClients, decCosts, periodDec),
		runPeriods(t, janClients, nil, jan)...,
	)
	ltv := engine.BuildLifetime(results)

	if len(ltv) != 2 {
		t.Fatalf("want 2 lifetime rows, got %d", len(ltv))
	}
	top := ltv[0]
	if top.ClientName != "Alpha Studio" {
		t.Fatalf("top row by revenue = %s, want Alpha Studio", top.ClientName)
	}
	decEqual(t, dec(1900), top.TotalRevenue, "lifetime revenue")
	if top.TotalDelivered != 22 {
		t.Errorf("lifetime delivered = %d, want 22", top.TotalDelivered)
	}
	if len(top.RecordIDs) != 2 {
		t.Errorf("record ids = %v, want both contributing ids", top.RecordIDs)
	}
	decEqual(t, dec(1900).Div(dec(22)), top.RevenuePerUnit, "lifetime revenue per unit")
}
