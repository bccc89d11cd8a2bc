package events

import "sync"

// MemoryEmitter collects emitted events in memory. Used in tests and as a
// no-op sink when no broker is configured.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Payload
}

// NewMemoryEmitter creates an empty in-memory emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Emit records the payload.
func (e *MemoryEmitter) Emit(p Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, p)
	return nil
}

// Events returns a copy of everything emitted so far.
func (e *MemoryEmitter) Events() []Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Payload, len(e.events))
	copy(out, e.events)
	return out
}

// OfType returns emitted events matching the given type.
func (e *MemoryEmitter) OfType(eventType string) []Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Payload
	for _, p := range e.events {
		if p.Type == eventType {
			out = append(out, p)
		}
	}
	return out
}
