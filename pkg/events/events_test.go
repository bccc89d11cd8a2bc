package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadWireShape(t *testing.T) {
	p := Payload{
		Type:      TypeAssignmentChanged,
		EntityID:  uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		Actor:     "Dana Reyes",
		Timestamp: time.Date(2026, time.July, 15, 16, 0, 0, 0, time.UTC),
		Detail:    map[string]any{"status": "assigned"},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "assignment.changed", decoded["type"])
	assert.Equal(t, "44444444-4444-4444-4444-444444444444", decoded["entityId"])
	assert.Equal(t, "Dana Reyes", decoded["actor"])
	assert.Contains(t, decoded, "timestamp")
	assert.Equal(t, map[string]any{"status": "assigned"}, decoded["detail"])
}

func TestPayloadOmitsEmptyDetail(t *testing.T) {
	data, err := json.Marshal(Payload{Type: TypeContentionDetected})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
}

func TestMemoryEmitter(t *testing.T) {
	emitter := NewMemoryEmitter()
	require.NoError(t, emitter.Emit(Payload{Type: TypeAssignmentChanged}))
	require.NoError(t, emitter.Emit(Payload{Type: TypeSwapStateChanged}))
	require.NoError(t, emitter.Emit(Payload{Type: TypeAssignmentChanged}))

	assert.Len(t, emitter.Events(), 3)
	assert.Len(t, emitter.OfType(TypeAssignmentChanged), 2)
	assert.Empty(t, emitter.OfType(TypeContentionDetected))

	// Events returns a copy; mutating it does not touch the emitter.
	snapshot := emitter.Events()
	snapshot[0].Type = "mangled"
	assert.Equal(t, TypeAssignmentChanged, emitter.Events()[0].Type)
}
