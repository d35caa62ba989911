package eventstream

import "time"

// Event types the memory orchestrator and SSE adapter emit (spec.md §4.B).
const (
	TypeMemoryCreated    = "memory.created"
	TypeMemorySuperseded = "memory.superseded"
	TypeMemoryUpdated    = "memory.updated"
	TypeMemoryDeleted    = "memory.deleted"
	TypeConnected        = "connected"
	TypeHeartbeat        = "heartbeat"
)

// Event is a transport-neutral lifecycle event, constructed by Bus.Emit and
// dispatched to every subscriber on its topic (spec.md §4.B).
type Event struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
