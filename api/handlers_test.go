package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zline/bi-engine/api"
	"github.com/zline/bi-engine/session"
	"github.com/zline/bi-engine/session/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	snap, current, ok := api.BuildScenario("two-months")
	require.True(t, ok)

	mem := store.NewMemory()
	sess := session.NewSession(session.User{ID: "t-1", Name: "Tester"}, snap, current)
	h := api.NewHandler(sess, mem, nil)

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// =============================================================================
// READ VIEWS
// =============================================================================

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListPeriods(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/periods", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "January/2026", body["current"])

	periods := body["periods"].([]any)
	require.Len(t, periods, 2)
	assert.Equal(t, "December/2025", periods[0])
	assert.Equal(t, "January/2026", periods[1])
}

func TestGetDashboard_DefaultPeriod(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "January/2026", body["period"])
	assert.Equal(t, false, body["dirty"])

	kpis := body["kpis"].(map[string]any)
	assert.Greater(t, kpis["netRevenue"].(float64), 0.0)
	assert.Greater(t, kpis["costPerUnit"].(float64), 0.0)
	assert.Len(t, body["clients"].([]any), 5)
}

func TestGetDashboard_ClientFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet,
		srv.URL+"/api/dashboard?period=January/2026&client=cl-aurora-jan", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	kpis := body["kpis"].(map[string]any)
	assert.InDelta(t, 2880.0, kpis["netRevenue"].(float64), 0.001)
}

func TestGetTrendAndAlerts(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/trend", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["points"].([]any), 2)
	assert.NotEmpty(t, body["lifetime"].([]any))

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/alerts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, hasAlerts := body["alerts"]
	assert.True(t, hasAlerts)
}

// =============================================================================
// MUTATIONS
// =============================================================================

func TestFieldOverride_ThenEventsAndDirty(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost,
		srv.URL+"/api/simulation/clients/cl-aurora-jan/field",
		api.FieldOverrideRequest{Period: "January/2026", Field: "unitsDelivered", Value: 12})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/dashboard?period=January/2026", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["dirty"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/simulation/events", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, "client-period-field", ev["targetType"])
	assert.Equal(t, "unitsDelivered", ev["field"])
}

func TestFieldOverride_BadFieldIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost,
		srv.URL+"/api/simulation/clients/cl-aurora-jan/field",
		api.FieldOverrideRequest{Period: "January/2026", Field: "noSuchField", Value: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateSettings_RejectsMarginAtOne(t *testing.T) {
	srv, _ := newTestServer(t)

	bad := 1.0
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/settings",
		api.UpdateSettingsRequest{TargetMarginRatio: &bad})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	good := 0.3
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/settings",
		api.UpdateSettingsRequest{TargetMarginRatio: &good})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.3, body["targetMarginRatio"].(float64), 0.001)
}

func TestCreateAndDeleteCost(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/simulation/costs",
		api.CreateCostRequest{CostLabel: "Drone rental", Period: "January/2026", MonthlyValue: 150})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	require.NotEmpty(t, id)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/simulation/costs/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestCommit_RequiresConfirmAndPersists(t *testing.T) {
	srv, mem := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/simulation/commit",
		api.CommitRequest{Confirm: false})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost,
		srv.URL+"/api/simulation/clients/cl-aurora-jan/field",
		api.FieldOverrideRequest{Period: "January/2026", Field: "unitsDelivered", Value: 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/simulation/commit",
		api.CommitRequest{Confirm: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapID := body["snapshotId"].(string)
	require.NotEmpty(t, snapID)

	saved, err := mem.Load(context.Background(), snapID)
	require.NoError(t, err)
	assert.Equal(t, "t-1", saved.CreatedBy)

	// After commit the session is clean again.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/dashboard?period=January/2026", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["dirty"])
}

func TestCommit_BlockedByValidationIs409(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost,
		srv.URL+"/api/simulation/clients/cl-aurora-jan/field",
		api.FieldOverrideRequest{Period: "January/2026", Field: "unitsDelivered", Value: -5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/simulation/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/simulation/commit",
		api.CommitRequest{Confirm: true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReset_DiscardsSimulation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost,
		srv.URL+"/api/simulation/clients/cl-aurora-jan/field",
		api.FieldOverrideRequest{Period: "January/2026", Field: "unitsDelivered", Value: 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/simulation/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/simulation/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["events"])
}

// =============================================================================
// AUDIT AND SCENARIOS
// =============================================================================

func TestExportAudit_Download(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/audit/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "audit_")

	var rep map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Contains(t, rep, "formulas")
	assert.Contains(t, rep, "beforeKpis")
	assert.Contains(t, rep, "afterKpis")
}

func TestScenarios_ListAndLoad(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["scenarios"].([]any), 3)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "loss-month"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The loss scenario trips the critical alert path.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alerts := body["alerts"].([]any)
	require.NotEmpty(t, alerts)
	first := alerts[0].(map[string]any)
	assert.Equal(t, "critical", first["severity"])
}

func TestScenarios_UnknownIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
