// Package eventstream implements the in-process, topic-keyed lifecycle
// event bus (spec.md §4.B), generalized from the teacher's
// pkg/eventstream — which published one event type to a single Kafka
// sink — into a registry supporting many live subscribers per topic,
// since this system fans out to N SSE connections rather than one
// external broker.
package eventstream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type topicKey struct {
	project string
	subject string
}

type subscription struct {
	id       uint64
	callback Callback
}

// LocalBus is the only Bus implementation this service ships: a mutable
// map from topic to subscriber set, guarded by a single mutex (spec.md
// §5 "Event-bus registry"). No pack dependency models in-process
// multi-subscriber fan-out with synchronous, non-blocking delivery, so
// this is built on the standard library rather than an external
// messaging client.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[topicKey][]subscription
	nextID uint64
	logger *zap.Logger
}

// NewLocalBus returns a ready, empty Bus.
func NewLocalBus(logger *zap.Logger) *LocalBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBus{subs: make(map[topicKey][]subscription), logger: logger}
}

func (b *LocalBus) Subscribe(projectID, subjectID string, callback Callback) Unsubscribe {
	b.mu.Lock()
	key := topicKey{projectID, subjectID}
	b.nextID++
	id := b.nextID
	b.subs[key] = append(b.subs[key], subscription{id: id, callback: callback})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[key]
			for i, s := range list {
				if s.id == id {
					b.subs[key] = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
		})
	}
}

func (b *LocalBus) Emit(projectID, subjectID, eventType string, data any) {
	ev := Event{Type: eventType, ProjectID: projectID, SubjectID: subjectID, Data: data, Timestamp: time.Now().UTC()}

	b.mu.RLock()
	var targets []subscription
	if subjectID != "" {
		targets = append(targets, b.subs[topicKey{projectID, subjectID}]...)
	}
	targets = append(targets, b.subs[topicKey{projectID, ""}]...)
	b.mu.RUnlock()

	for _, s := range targets {
		b.dispatch(s, ev)
	}
}

// dispatch invokes one subscriber's callback, recovering a panic so that
// one misbehaving subscriber never halts fan-out to the rest (spec.md
// §4.B).
func (b *LocalBus) dispatch(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventstream: subscriber callback panicked",
				zap.Any("recover", r), zap.String("event_type", ev.Type))
		}
	}()
	s.callback(ev)
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[topicKey][]subscription)
	return nil
}
