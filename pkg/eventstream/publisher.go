package eventstream

// Callback receives events dispatched to a subscription. A callback that
// panics or returns must never halt fan-out to other subscribers
// (spec.md §4.B) — the bus recovers around each invocation.
type Callback func(Event)

// Unsubscribe removes a subscription. Calling it more than once is a
// no-op (spec.md §4.B: "Returns an idempotent unsubscribe").
type Unsubscribe func()

// Bus is the in-process, topic-keyed pub/sub the memory orchestrator
// writes to and the SSE adapter reads from (spec.md §4.B). The interface
// is deliberately the exact boundary at which an external transport could
// be substituted for horizontal scale (spec.md §9) — no other code knows
// the implementation is process-local.
type Bus interface {
	// Subscribe registers callback on the topic (project, subject). A
	// zero-value subject means "project-wide wildcard": the subscriber
	// also receives every subject-scoped event emitted for the project.
	Subscribe(projectID, subjectID string, callback Callback) Unsubscribe

	// Emit constructs an Event and dispatches it to every subscriber
	// registered on the exact (project, subject) topic plus every
	// project-wide wildcard subscriber. Dispatch order is unspecified.
	Emit(projectID, subjectID, eventType string, data any)

	// Close releases the bus; it does not close subscriber connections —
	// that is the SSE adapter's responsibility.
	Close() error
}
