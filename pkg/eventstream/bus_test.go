package eventstream

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalBus", func() {
	var bus *LocalBus

	BeforeEach(func() {
		bus = NewLocalBus(nil)
	})

	Context("exact-topic subscription", func() {
		It("receives events for its own subject but not other subjects", func() {
			var got []Event
			var mu sync.Mutex
			unsub := bus.Subscribe("proj1", "sub1", func(e Event) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, e)
			})
			defer unsub()

			bus.Emit("proj1", "sub1", TypeMemoryCreated, map[string]string{"id": "mem_1"})
			bus.Emit("proj1", "sub2", TypeMemoryCreated, map[string]string{"id": "mem_2"})

			mu.Lock()
			defer mu.Unlock()
			Expect(got).To(HaveLen(1))
			Expect(got[0].SubjectID).To(Equal("sub1"))
		})
	})

	Context("project-wide wildcard subscription", func() {
		It("receives every subject-scoped event for the project", func() {
			var count int
			var mu sync.Mutex
			unsub := bus.Subscribe("proj1", "", func(e Event) {
				mu.Lock()
				defer mu.Unlock()
				count++
			})
			defer unsub()

			bus.Emit("proj1", "sub1", TypeMemoryCreated, nil)
			bus.Emit("proj1", "sub2", TypeMemoryUpdated, nil)

			mu.Lock()
			defer mu.Unlock()
			Expect(count).To(Equal(2))
		})
	})

	Context("unsubscribe", func() {
		It("is idempotent and stops further delivery", func() {
			var count int
			var mu sync.Mutex
			unsub := bus.Subscribe("proj1", "sub1", func(e Event) {
				mu.Lock()
				defer mu.Unlock()
				count++
			})

			unsub()
			unsub()
			bus.Emit("proj1", "sub1", TypeMemoryCreated, nil)

			mu.Lock()
			defer mu.Unlock()
			Expect(count).To(Equal(0))
		})
	})

	Context("a panicking subscriber", func() {
		It("does not prevent delivery to other subscribers", func() {
			var delivered bool
			bus.Subscribe("proj1", "sub1", func(e Event) {
				panic("boom")
			})
			bus.Subscribe("proj1", "sub1", func(e Event) {
				delivered = true
			})

			Expect(func() { bus.Emit("proj1", "sub1", TypeMemoryCreated, nil) }).NotTo(Panic())
			Expect(delivered).To(BeTrue())
		})
	})
})
