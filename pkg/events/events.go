// Package events defines the broadcast boundary of the scheduling core.
// The core emits events with a stable payload shape; delivery and fan-out
// to interested parties belong to the consuming collaborator.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the core. They double as broadcast subjects.
const (
	TypeAssignmentChanged  = "assignment.changed"
	TypeSwapStateChanged   = "swap.state_changed"
	TypeContentionDetected = "contention.detected"
)

// Payload is the stable wire shape for every emitted event.
type Payload struct {
	Type      string         `json:"type"`
	EntityID  uuid.UUID      `json:"entityId"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Emitter publishes core events. Emit failures are reported but must not
// roll back the committed mutation that triggered the event.
type Emitter interface {
	Emit(p Payload) error
}
