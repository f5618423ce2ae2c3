/*
session.go - Simulation session over a committed baseline

PURPOSE:
  A Session owns one what-if simulation: the committed base data, a
  non-destructive overlay of edits, and the audit event log. All
  mutations flow through the session so that overlay and log stay in
  lockstep.

LIFECYCLE:
  snapshot -> edits (overlay + events) -> validate -> commit | reset

  Commit folds the overlay into a new baseline snapshot and clears the
  session. Reset discards the overlay and the log and restores the
  committed settings.

CONCURRENCY:
  A Session is not safe for concurrent use. The API layer serializes
  access with a mutex.
*/
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
)

// User identifies who is driving the simulation. Audit events carry the id.
type User struct {
	ID   string
	Name string
}

// Session holds one live simulation.
type Session struct {
	user User
	now  func() time.Time

	baseClients  []engine.ClientRecord
	baseCosts    []engine.CostRecord
	baseSettings engine.GlobalSettings

	currentPeriod engine.PeriodKey

	overlay *engine.Overlay
	events  []Event
}

// NewSession starts a clean session from a committed snapshot.
// currentPeriod marks "now" for alert classification; it need not exist in
// the snapshot yet.
func NewSession(user User, snap Snapshot, currentPeriod engine.PeriodKey) *Session {
	return &Session{
		user:          user,
		now:           time.Now,
		baseClients:   snap.Clients,
		baseCosts:     snap.Costs,
		baseSettings:  snap.Settings,
		currentPeriod: currentPeriod,
		overlay:       engine.NewOverlay(snap.Settings),
	}
}

// SetClock overrides the event timestamp source. Tests use this.
func (s *Session) SetClock(now func() time.Time) { s.now = now }

// =============================================================================
// READ VIEWS
// =============================================================================

// Periods lists every known period in chronological order: base periods,
// periods introduced by added records, and the current period.
func (s *Session) Periods() []engine.PeriodKey {
	var raw []engine.PeriodKey
	for _, c := range s.baseClients {
		raw = append(raw, c.PeriodKey)
	}
	for _, c := range s.baseCosts {
		raw = append(raw, c.PeriodKey)
	}
	for _, c := range s.overlay.AddedClients {
		raw = append(raw, c.PeriodKey)
	}
	for _, c := range s.overlay.AddedCosts {
		raw = append(raw, c.PeriodKey)
	}
	return engine.KnownPeriods(raw, s.currentPeriod)
}

// CurrentPeriod returns the period treated as "now".
func (s *Session) CurrentPeriod() engine.PeriodKey { return s.currentPeriod }

// SetCurrentPeriod moves the "now" marker. This is a view change, not a
// mutation, so it is not logged.
func (s *Session) SetCurrentPeriod(p engine.PeriodKey) { s.currentPeriod = p }

// Settings returns the simulated settings currently in force.
func (s *Session) Settings() engine.GlobalSettings { return s.overlay.Settings }

// BaseSettings returns the committed settings, before simulation changes.
func (s *Session) BaseSettings() engine.GlobalSettings { return s.baseSettings }

// Dirty reports whether the session holds uncommitted record changes.
func (s *Session) Dirty() bool { return !s.overlay.IsEmpty() || len(s.events) > 0 }

// Dashboard evaluates one period with the overlay applied. A non-empty
// clientFilter narrows the KPI scope to those ids.
func (s *Session) Dashboard(period engine.PeriodKey, clientFilter map[engine.ClientID]struct{}) (engine.PeriodResult, error) {
	return engine.RunPeriodFiltered(period, s.baseClients, s.baseCosts, s.overlay, s.overlay.Settings,
		engine.KPIOptions{ClientFilter: clientFilter})
}

// BaselineDashboard evaluates one period WITHOUT the overlay, using the
// committed settings. Audit reports pair this with Dashboard to show
// before and after.
func (s *Session) BaselineDashboard(period engine.PeriodKey) (engine.PeriodResult, error) {
	return engine.RunPeriod(period, s.baseClients, s.baseCosts, nil, s.baseSettings)
}

// Results evaluates every known period with the overlay applied.
func (s *Session) Results() ([]engine.PeriodResult, error) {
	periods := s.Periods()
	out := make([]engine.PeriodResult, 0, len(periods))
	for _, p := range periods {
		res, err := s.Dashboard(p, nil)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", p, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Trend returns the chronological trend series over all known periods.
func (s *Session) Trend() ([]engine.TrendPoint, error) {
	results, err := s.Results()
	if err != nil {
		return nil, err
	}
	return engine.BuildTrend(results), nil
}

// Lifetime returns the name-keyed client lifetime rollup.
func (s *Session) Lifetime() ([]engine.LifetimeValue, error) {
	results, err := s.Results()
	if err != nil {
		return nil, err
	}
	return engine.BuildLifetime(results), nil
}

// Alerts derives health findings over all known periods.
func (s *Session) Alerts() ([]engine.Alert, error) {
	results, err := s.Results()
	if err != nil {
		return nil, err
	}
	return engine.DeriveAlerts(results, s.currentPeriod), nil
}

// =============================================================================
// FIELD MUTATIONS
// =============================================================================

// SetClientField overrides one field of a client row in one period. The old
// value logged is taken from the merged view at call time. An id absent from
// the view is still accepted: the override is recorded and logged, and takes
// effect if such a record later appears.
func (s *Session) SetClientField(period engine.PeriodKey, id engine.ClientID, field string, value any) error {
	var patch engine.ClientPatch
	var newVal any

	switch field {
	case "clientName":
		v, err := coerceString(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.ClientName, newVal = &v, v
	case "statusDetail":
		v, err := coerceString(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.StatusDetail, newVal = &v, v
	case "activeStatus":
		v, err := coerceStatus(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.ActiveStatus, newVal = &v, string(v)
	case "grossRevenue":
		v, err := coerceDecimal(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.GrossRevenue, newVal = &v, v
	case "netRevenueAfterTax":
		v, err := coerceDecimal(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.NetRevenueAfterTax, newVal = &v, v
	case "unitsContracted":
		v, err := coerceInt64(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.UnitsContracted, newVal = &v, v
	case "unitsDelivered":
		v, err := coerceInt64(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.UnitsDelivered, newVal = &v, v
	case "unitsUndelivered":
		v, err := coerceInt64(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.UnitsUndelivered, newVal = &v, v
	default:
		return fmt.Errorf("unknown client field %q: %w", field, engine.ErrInvalidConfiguration)
	}

	old := s.clientFieldValue(period, id, field)
	s.overlay.PatchClient(period, id, patch)
	s.pushEvent(Event{
		TargetType: TargetClientField,
		TargetID:   string(id),
		Period:     period,
		Field:      field,
		OldValue:   old,
		NewValue:   newVal,
	})
	return nil
}

// SetCostField overrides one field of a cost row in one period.
func (s *Session) SetCostField(period engine.PeriodKey, id engine.CostID, field string, value any) error {
	var patch engine.CostPatch
	var newVal any

	switch field {
	case "costLabel":
		v, err := coerceString(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.CostLabel, newVal = &v, v
	case "monthlyValue":
		v, err := coerceDecimal(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.MonthlyValue, newVal = &v, v
	case "activeInPeriod":
		v, err := coerceBool(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.ActiveInPeriod, newVal = &v, v
	case "costType":
		v, err := coerceCostType(value)
		if err != nil {
			return fieldError(field, err)
		}
		patch.CostType, newVal = &v, string(v)
	default:
		return fmt.Errorf("unknown cost field %q: %w", field, engine.ErrInvalidConfiguration)
	}

	old := s.costFieldValue(period, id, field)
	s.overlay.PatchCost(period, id, patch)
	s.pushEvent(Event{
		TargetType: TargetCostField,
		TargetID:   string(id),
		Period:     period,
		Field:      field,
		OldValue:   old,
		NewValue:   newVal,
	})
	return nil
}

// SetSetting changes one global knob. Validation happens here so a bad
// value never reaches the overlay or the log.
func (s *Session) SetSetting(name string, value any) error {
	old, newVal, err := s.applySetting(name, value)
	if err != nil {
		return err
	}
	s.pushEvent(Event{
		TargetType: TargetGlobalSetting,
		TargetID:   name,
		Field:      name,
		OldValue:   old,
		NewValue:   newVal,
	})
	return nil
}

func (s *Session) applySetting(name string, value any) (old, applied any, err error) {
	set := &s.overlay.Settings
	switch name {
	case "taxRate":
		v, err := coerceDecimal(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return nil, nil, settingError(name, value, "must be between 0 and 1")
		}
		old, set.TaxRate = set.TaxRate, v
		return old, v, nil
	case "targetMarginRatio":
		v, err := coerceDecimal(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		if v.IsNegative() || v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, nil, &engine.ConfigError{
				Setting: name, Value: v.String(),
				Reason: engine.ErrTargetMarginTooHigh,
			}
		}
		old, set.TargetMarginRatio = set.TargetMarginRatio, v
		return old, v, nil
	case "laborEfficiencyTarget":
		v, err := coerceDecimal(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		old, set.LaborEfficiencyTarget = set.LaborEfficiencyTarget, v
		return old, v, nil
	case "allocationMethod":
		raw, err := coerceString(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		m := engine.AllocationMethod(raw)
		switch m {
		case engine.PerDelivered, engine.PerContracted, engine.EqualShare:
		default:
			return nil, nil, &engine.ConfigError{
				Setting: name, Value: raw,
				Reason: engine.ErrUnknownAllocationMethod,
			}
		}
		old, set.AllocationMethod = string(set.AllocationMethod), m
		return old, string(m), nil
	case "oneTimeAdjustment":
		v, err := coerceDecimal(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		old, set.OneTimeAdjustment = set.OneTimeAdjustment, v
		return old, v, nil
	case "maxProductionCapacity":
		v, err := coerceInt64(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		if v < 0 {
			return nil, nil, settingError(name, value, "must not be negative")
		}
		old, set.MaxProductionCapacity = set.MaxProductionCapacity, v
		return old, v, nil
	case "manualCostPerUnitOverride":
		v, err := coerceDecimal(value)
		if err != nil {
			return nil, nil, fieldError(name, err)
		}
		if v.IsNegative() {
			return nil, nil, settingError(name, value, "must not be negative")
		}
		old, set.ManualCostPerUnitOverride = set.ManualCostPerUnitOverride, v
		return old, v, nil
	default:
		return nil, nil, fmt.Errorf("unknown setting %q: %w", name, engine.ErrInvalidConfiguration)
	}
}

// =============================================================================
// RECORD MUTATIONS
// =============================================================================

// AddClient adds a simulated client row. An empty id is filled with a fresh
// uuid. The returned record carries the final id.
func (s *Session) AddClient(rec engine.ClientRecord) (engine.ClientRecord, error) {
	if rec.PeriodKey == "" {
		return engine.ClientRecord{}, settingError("periodKey", "", "required for new clients")
	}
	if rec.ID == "" {
		rec.ID = engine.ClientID(uuid.NewString())
	}
	if rec.ActiveStatus == "" {
		rec.ActiveStatus = engine.StatusActive
	}
	s.overlay.AddedClients = append(s.overlay.AddedClients, rec)
	s.pushEvent(Event{
		TargetType: TargetCreate,
		TargetID:   string(rec.ID),
		Period:     rec.PeriodKey,
		NewValue:   rec.ClientName,
		Note:       "client added",
	})
	return rec, nil
}

// AddCost adds a simulated cost row.
func (s *Session) AddCost(rec engine.CostRecord) (engine.CostRecord, error) {
	if rec.PeriodKey == "" {
		return engine.CostRecord{}, settingError("periodKey", "", "required for new costs")
	}
	if rec.ID == "" {
		rec.ID = engine.CostID(uuid.NewString())
	}
	s.overlay.AddedCosts = append(s.overlay.AddedCosts, rec)
	s.pushEvent(Event{
		TargetType: TargetCreate,
		TargetID:   string(rec.ID),
		Period:     rec.PeriodKey,
		NewValue:   rec.CostLabel,
		Note:       "cost added",
	})
	return rec, nil
}

// DeleteClient soft-deletes a client id across all periods. Deleting an
// unknown id is accepted and logged, same as inert field overrides.
func (s *Session) DeleteClient(id engine.ClientID) {
	s.overlay.DeletedClientIDs[id] = struct{}{}
	s.pushEvent(Event{
		TargetType: TargetDelete,
		TargetID:   string(id),
		Note:       "client deleted",
	})
}

// DeleteCost soft-deletes a cost id across all periods.
func (s *Session) DeleteCost(id engine.CostID) {
	s.overlay.DeletedCostIDs[id] = struct{}{}
	s.pushEvent(Event{
		TargetType: TargetDelete,
		TargetID:   string(id),
		Note:       "cost deleted",
	})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Reset discards the overlay and the event log and restores the committed
// settings. The base data is untouched.
func (s *Session) Reset() {
	s.overlay = engine.NewOverlay(s.baseSettings)
	s.events = nil
}

// Validation is the result of a pre-commit check. Errors block the commit;
// warnings do not.
type Validation struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the commit may proceed.
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// ValidateForCommit checks the fully merged state the commit would produce.
func (s *Session) ValidateForCommit() (Validation, error) {
	var v Validation

	clients, costs := engine.MaterializeAll(s.baseClients, s.baseCosts, s.overlay)
	for _, c := range clients {
		if c.UnitsDelivered < 0 || c.UnitsContracted < 0 {
			v.Errors = append(v.Errors,
				fmt.Sprintf("client %s (%s): negative unit count", c.ClientName, c.PeriodKey))
		}
	}
	for _, c := range costs {
		if c.MonthlyValue.IsNegative() {
			v.Errors = append(v.Errors,
				fmt.Sprintf("cost %s (%s): negative monthly value", c.CostLabel, c.PeriodKey))
		}
	}

	results, err := s.Results()
	if err != nil {
		return Validation{}, err
	}
	five := decimal.NewFromInt(5)
	for _, r := range results {
		if r.KPIs.NetRevenue.GreaterThan(decimal.Zero) && r.KPIs.Margin.IsNegative() {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("negative margin in %s", r.Period))
		}
		if r.KPIs.TotalOperationalCost.GreaterThan(r.KPIs.NetRevenue.Mul(five)) {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("operational cost exceeds 5x net revenue in %s", r.Period))
		}
	}
	return v, nil
}

// Commit folds the overlay into a new baseline snapshot, adopts it as the
// session's base, and clears the overlay and the event log. Validation
// errors abort the commit; warnings do not.
func (s *Session) Commit() (Snapshot, error) {
	v, err := s.ValidateForCommit()
	if err != nil {
		return Snapshot{}, err
	}
	if !v.OK() {
		return Snapshot{}, fmt.Errorf("commit blocked: %s", strings.Join(v.Errors, "; "))
	}

	clients, costs := engine.MaterializeAll(s.baseClients, s.baseCosts, s.overlay)
	snap := Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		CreatedBy: s.user.ID,
		Clients:   clients,
		Costs:     costs,
		Settings:  s.overlay.Settings,
	}

	s.baseClients = clients
	s.baseCosts = costs
	s.baseSettings = snap.Settings
	s.overlay = engine.NewOverlay(snap.Settings)
	s.events = nil

	snap.Periods = s.Periods()
	return snap, nil
}

// =============================================================================
// OLD-VALUE LOOKUP AND COERCION
// =============================================================================

func (s *Session) clientFieldValue(period engine.PeriodKey, id engine.ClientID, field string) any {
	clients, _ := engine.Materialize(period, s.baseClients, s.baseCosts, s.overlay)
	for _, c := range clients {
		if c.ID != id {
			continue
		}
		switch field {
		case "clientName":
			return c.ClientName
		case "statusDetail":
			return c.StatusDetail
		case "activeStatus":
			return string(c.ActiveStatus)
		case "grossRevenue":
			return c.GrossRevenue
		case "netRevenueAfterTax":
			return c.NetRevenueAfterTax
		case "unitsContracted":
			return c.UnitsContracted
		case "unitsDelivered":
			return c.UnitsDelivered
		case "unitsUndelivered":
			return c.UnitsUndelivered
		}
	}
	return nil
}

func (s *Session) costFieldValue(period engine.PeriodKey, id engine.CostID, field string) any {
	_, costs := engine.Materialize(period, s.baseClients, s.baseCosts, s.overlay)
	for _, c := range costs {
		if c.ID != id {
			continue
		}
		switch field {
		case "costLabel":
			return c.CostLabel
		case "monthlyValue":
			return c.MonthlyValue
		case "activeInPeriod":
			return c.ActiveInPeriod
		case "costType":
			return string(c.CostType)
		}
	}
	return nil
}

func fieldError(field string, err error) error {
	return fmt.Errorf("field %s: %v: %w", field, err, engine.ErrInvalidConfiguration)
}

func settingError(name string, value any, reason string) error {
	return &engine.ConfigError{
		Setting: name,
		Value:   fmt.Sprint(value),
		Reason:  fmt.Errorf("%s: %w", reason, engine.ErrInvalidConfiguration),
	}
}

// coerceDecimal accepts the numeric shapes JSON decoding produces.
func coerceDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a number: %q", x)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("not a number: %T", v)
	}
}

func coerceInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func coerceString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("not a string: %T", v)
	}
	return s, nil
}

func coerceBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("not a boolean: %T", v)
	}
	return b, nil
}

func coerceStatus(v any) (engine.ActiveStatus, error) {
	raw, err := coerceString(v)
	if err != nil {
		return "", err
	}
	st := engine.ActiveStatus(raw)
	if st != engine.StatusActive && st != engine.StatusInactive {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return st, nil
}

func coerceCostType(v any) (engine.CostType, error) {
	raw, err := coerceString(v)
	if err != nil {
		return "", err
	}
	ct := engine.CostType(raw)
	switch ct {
	case engine.CostTypeUnspecified, engine.CostTypeFixed, engine.CostTypeExtra, engine.CostTypeTax:
		return ct, nil
	default:
		return "", fmt.Errorf("unknown cost type %q", raw)
	}
}
