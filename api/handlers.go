/*
handlers.go - HTTP API handlers for the dashboard simulation service

PURPOSE:
  Exposes the simulation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the session.

ENDPOINTS:
  Read views:
    GET    /api/health                      Liveness check
    GET    /api/periods                     Known periods, chronological
    GET    /api/dashboard?period=&client=   Evaluated period (optional client filter)
    GET    /api/trend                       Trend series + lifetime rollup
    GET    /api/alerts                      Derived health findings
    GET    /api/settings                    Settings in force

  Simulation:
    PUT    /api/settings                    Change global settings
    POST   /api/simulation/clients          Add a client row
    POST   /api/simulation/clients/{id}/field  Override one client field
    DELETE /api/simulation/clients/{id}     Soft-delete a client
    POST   /api/simulation/costs            Add a cost row
    POST   /api/simulation/costs/{id}/field Override one cost field
    DELETE /api/simulation/costs/{id}       Soft-delete a cost
    GET    /api/simulation/events           Audit log
    POST   /api/simulation/validate         Pre-commit check
    POST   /api/simulation/commit           Commit (requires confirm:true)
    POST   /api/simulation/reset            Discard the simulation

  Audit:
    GET    /api/audit/export                Downloadable audit JSON

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

PERIOD ADDRESSING:
  Period keys contain a slash ("December/2025"), so periods travel as
  query parameters, never as path segments.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad configuration
  - 404: Unknown scenario or snapshot
  - 409: Commit blocked by validation errors
  - 500: Internal errors

CONCURRENCY:
  The session is not safe for concurrent use; a mutex serializes all
  handler access to it.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	mu      sync.Mutex
	session *session.Session
	store   session.SnapshotStore
	metrics *Metrics
}

// NewHandler wires a session to its snapshot store. metrics may be nil.
func NewHandler(sess *session.Session, store session.SnapshotStore, metrics *Metrics) *Handler {
	return &Handler{session: sess, store: store, metrics: metrics}
}

// =============================================================================
// READ VIEWS
// =============================================================================

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListPeriods handles GET /api/periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	periods := h.session.Periods()
	out := struct {
		Periods []string `json:"periods"`
		Current string   `json:"current"`
	}{Current: string(h.session.CurrentPeriod())}
	for _, p := range periods {
		out.Periods = append(out.Periods, string(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDashboard handles GET /api/dashboard?period=...&client=id,id.
// Without a period parameter the current period is evaluated.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	period := engine.PeriodKey(r.URL.Query().Get("period"))
	if period == "" {
		period = h.session.CurrentPeriod()
	}

	var filter map[engine.ClientID]struct{}
	if raw := r.URL.Query().Get("client"); raw != "" {
		filter = make(map[engine.ClientID]struct{})
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter[engine.ClientID(id)] = struct{}{}
			}
		}
	}

	res, err := h.timedDashboard(period, filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(res, h.session.Dirty()))
}

// GetTrend handles GET /api/trend.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	points, err := h.session.Trend()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	lifetime, err := h.session.Lifetime()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.observeRecompute(start)

	writeJSON(w, http.StatusOK, toTrendDTO(points, lifetime))
}

// GetAlerts handles GET /api/alerts.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	alerts, err := h.session.Alerts()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": toAlertDTOs(alerts)})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, toSettingsDTO(h.session.Settings()))
}

// =============================================================================
// SETTINGS MUTATION
// =============================================================================

// UpdateSettings handles PUT /api/settings. Fields are applied in a fixed
// order; the first failure aborts without applying the rest.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	type change struct {
		name  string
		value any
		set   bool
	}
	changes := []change{
		{"taxRate", deref(req.TaxRate), req.TaxRate != nil},
		{"targetMarginRatio", deref(req.TargetMarginRatio), req.TargetMarginRatio != nil},
		{"laborEfficiencyTarget", deref(req.LaborEfficiencyTarget), req.LaborEfficiencyTarget != nil},
		{"allocationMethod", deref(req.AllocationMethod), req.AllocationMethod != nil},
		{"oneTimeAdjustment", deref(req.OneTimeAdjustment), req.OneTimeAdjustment != nil},
		{"maxProductionCapacity", deref(req.MaxProductionCapacity), req.MaxProductionCapacity != nil},
		{"manualCostPerUnitOverride", deref(req.ManualCostPerUnitOverride), req.ManualCostPerUnitOverride != nil},
	}
	for _, c := range changes {
		if !c.set {
			continue
		}
		if err := h.session.SetSetting(c.name, c.value); err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.countEvent(session.TargetGlobalSetting)
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(h.session.Settings()))
}

// =============================================================================
// SIMULATION MUTATIONS
// =============================================================================

// CreateClient handles POST /api/simulation/clients.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rec := engine.ClientRecord{
		ClientName:         req.ClientName,
		PeriodKey:          engine.PeriodKey(req.Period),
		ActiveStatus:       engine.ActiveStatus(req.ActiveStatus),
		StatusDetail:       req.StatusDetail,
		GrossRevenue:       decimal.NewFromFloat(req.GrossRevenue),
		NetRevenueAfterTax: decimal.NewFromFloat(req.NetRevenueAfterTax),
		UnitsContracted:    req.UnitsContracted,
		UnitsDelivered:     req.UnitsDelivered,
		UnitsUndelivered:   req.UnitsUndelivered,
	}
	added, err := h.session.AddClient(rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.countEvent(session.TargetCreate)
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(added.ID)})
}

// SetClientField handles POST /api/simulation/clients/{id}/field.
func (h *Handler) SetClientField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req FieldOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Period == "" {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.session.SetClientField(engine.PeriodKey(req.Period), engine.ClientID(id), req.Field, req.Value)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.countEvent(session.TargetClientField)
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// DeleteClient handles DELETE /api/simulation/clients/{id}.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	defer h.mu.Unlock()

	h.session.DeleteClient(engine.ClientID(id))
	h.countEvent(session.TargetDelete)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreateCost handles POST /api/simulation/costs.
func (h *Handler) CreateCost(w http.ResponseWriter, r *http.Request) {
	var req CreateCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	active := true
	if req.ActiveInPeriod != nil {
		active = *req.ActiveInPeriod
	}
	rec := engine.CostRecord{
		CostLabel:      req.CostLabel,
		PeriodKey:      engine.PeriodKey(req.Period),
		MonthlyValue:   decimal.NewFromFloat(req.MonthlyValue),
		ActiveInPeriod: active,
		CostType:       engine.CostType(req.CostType),
	}
	added, err := h.session.AddCost(rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.countEvent(session.TargetCreate)
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(added.ID)})
}

// SetCostField handles POST /api/simulation/costs/{id}/field.
func (h *Handler) SetCostField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req FieldOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Period == "" {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.session.SetCostField(engine.PeriodKey(req.Period), engine.CostID(id), req.Field, req.Value)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.countEvent(session.TargetCostField)
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// DeleteCost handles DELETE /api/simulation/costs/{id}.
func (h *Handler) DeleteCost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	defer h.mu.Unlock()

	h.session.DeleteCost(engine.CostID(id))
	h.countEvent(session.TargetDelete)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// AUDIT AND LIFECYCLE
// =============================================================================

// ListEvents handles GET /api/simulation/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventDTOs(h.session.Events())})
}

// Validate handles POST /api/simulation/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, err := h.session.ValidateForCommit()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidationDTO{
		OK:       v.OK(),
		Errors:   emptyIfNil(v.Errors),
		Warnings: emptyIfNil(v.Warnings),
	})
}

// Commit handles POST /api/simulation/commit. The body must carry
// confirm:true; a commit replaces the committed baseline.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "commit requires confirm:true", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.session.Commit()
	if err != nil {
		if strings.Contains(err.Error(), "commit blocked") {
			writeError(w, http.StatusConflict, "validation errors block the commit", err)
			return
		}
		h.writeDomainError(w, err)
		return
	}
	if err := h.store.Save(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "snapshot not persisted", err)
		return
	}

	if h.metrics != nil {
		h.metrics.CommitsTotal.Inc()
		h.metrics.EventLogSize.Set(0)
	}
	writeJSON(w, http.StatusOK, CommitResponse{
		SnapshotID: snap.ID,
		CreatedAt:  snap.CreatedAt,
		Clients:    len(snap.Clients),
		Costs:      len(snap.Costs),
	})
}

// ResetSimulation handles POST /api/simulation/reset.
func (h *Handler) ResetSimulation(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.session.Reset()
	if h.metrics != nil {
		h.metrics.EventLogSize.Set(0)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ExportAudit handles GET /api/audit/export as a JSON download.
func (h *Handler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rep, err := h.session.AuditReport()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) timedDashboard(period engine.PeriodKey, filter map[engine.ClientID]struct{}) (engine.PeriodResult, error) {
	start := time.Now()
	res, err := h.session.Dashboard(period, filter)
	h.observeRecompute(start)
	return res, err
}

func (h *Handler) observeRecompute(start time.Time) {
	if h.metrics != nil {
		h.metrics.RecomputeSeconds.Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) countEvent(target session.TargetType) {
	if h.metrics == nil {
		return
	}
	h.metrics.EventsTotal.WithLabelValues(string(target)).Inc()
	h.metrics.EventLogSize.Set(float64(len(h.session.Events())))
}

// writeDomainError maps domain errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsConfigError(err):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, session.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func deref[T any](p *T) any {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
