/*
events.go - Append-only audit event log

PURPOSE:
  Every accepted mutation in a simulation session produces exactly one
  event. The log is append-only: events are never edited or removed
  while the session is live, and the whole log is cleared only by an
  explicit reset or a commit.

INVARIANT:
  One event per accepted mutation, recorded atomically with the overlay
  change it describes. A mutation that is rejected (bad field name,
  invalid setting value) produces no event. A mutation targeting an id
  that does not exist in the current view is still accepted and logged;
  the override simply has no visible effect until such a record appears.
*/
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/zline/bi-engine/engine"
)

// TargetType says what kind of object an event touched.
type TargetType string

const (
	// TargetClientField is a field override on a client row in one period.
	TargetClientField TargetType = "client-period-field"

	// TargetCostField is a field override on a cost row in one period.
	TargetCostField TargetType = "cost-period-field"

	// TargetGlobalSetting is a change to one of the global knobs.
	TargetGlobalSetting TargetType = "global-setting"

	// TargetCreate is a new client or cost row added by the simulation.
	TargetCreate TargetType = "create"

	// TargetDelete is a soft delete of a client or cost row.
	TargetDelete TargetType = "delete"
)

// Event is one entry in the audit log.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time

	UserID string

	TargetType TargetType
	TargetID   string
	Period     engine.PeriodKey

	// Field names the changed attribute for field-level events. Empty for
	// create and delete events.
	Field string

	OldValue any
	NewValue any

	Note string
}

// pushEvent stamps identity and time onto an event and appends it.
func (s *Session) pushEvent(ev Event) {
	ev.ID = uuid.New()
	ev.Timestamp = s.now().UTC()
	ev.UserID = s.user.ID
	s.events = append(s.events, ev)
}

// Events returns a copy of the log in insertion order.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
