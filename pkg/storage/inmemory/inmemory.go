// Package inmemory is a process-local storage.Driver implementation used
// as the ginkgo/gomega test double for every orchestrator and handler
// test, grounded on the teacher's pkg/storage/inmemory driver shape (a
// mutex-guarded map standing in for the real backend in tests).
package inmemory

import (
	"context"
	"sync"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

// Driver is an in-memory, mutex-guarded implementation of storage.Driver.
// It is not durable and not a performance reference — it exists so unit
// tests can exercise orchestrator/handler logic without a database.
type Driver struct {
	mu sync.RWMutex

	memories map[string]memory.Memory
	claims   map[string]claim.Claim
	assertions map[string][]claim.Assertion
	edges    []claim.Edge
	slots    map[slotKey]claim.Slot
	recalls  []storage.RecallEvent
}

type slotKey struct {
	project string
	subject string
	slot    string
}

// NewDriver returns an empty Driver.
func NewDriver() *Driver {
	return &Driver{
		memories:   make(map[string]memory.Memory),
		claims:     make(map[string]claim.Claim),
		assertions: make(map[string][]claim.Assertion),
		slots:      make(map[slotKey]claim.Slot),
	}
}

// Ping always succeeds; there's no backend connection to check.
func (d *Driver) Ping(ctx context.Context) error { return nil }

func (d *Driver) Close() error { return nil }
