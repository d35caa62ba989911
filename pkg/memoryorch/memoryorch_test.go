package memoryorch

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/eventstream"
	"github.com/loomware/memstate/pkg/storage/inmemory"
)

var _ = Describe("Service", func() {
	var (
		store *inmemory.Driver
		bus   *eventstream.LocalBus
		svc   *Service
		ctx   = context.Background()
	)

	BeforeEach(func() {
		store = inmemory.NewDriver()
		bus = eventstream.NewLocalBus(nil)
		svc = New(store, bus, nil, nil, nil)
	})

	Context("Create", func() {
		It("rejects a missing subject", func() {
			_, err := svc.Create(ctx, CreateInput{Text: "hello"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects missing text", func() {
			_, err := svc.Create(ctx, CreateInput{SubjectID: "u1"})
			Expect(err).To(HaveOccurred())
		})

		It("creates a memory and emits memory.created", func() {
			var got eventstream.Event
			bus.Subscribe("proj", "u1", func(ev eventstream.Event) { got = ev })

			result, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Text: "I work at Acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Created).To(BeTrue())
			Expect(result.Memory.ID).NotTo(BeEmpty())
			Expect(got.Type).To(Equal(eventstream.TypeMemoryCreated))
		})

		It("without an embedder never skips as a duplicate", func() {
			_, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Text: "same text"})
			Expect(err).NotTo(HaveOccurred())
			result, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Text: "same text"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Skipped).To(BeFalse())
		})
	})

	Context("Delete then Restore", func() {
		It("returns an error on restore of a soft-deleted memory", func() {
			result, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Text: "to delete"})
			Expect(err).NotTo(HaveOccurred())

			deleted, err := svc.Delete(ctx, "proj", result.Memory.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			_, _, err = svc.Restore(ctx, "proj", result.Memory.ID)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Patch", func() {
		It("emits memory.updated", func() {
			result, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Text: "original"})
			Expect(err).NotTo(HaveOccurred())

			var got eventstream.Event
			bus.Subscribe("proj", "u1", func(ev eventstream.Event) {
				if ev.Type == eventstream.TypeMemoryUpdated {
					got = ev
				}
			})

			newText := "revised"
			updated, err := svc.Patch(ctx, "proj", result.Memory.ID, PatchInput{Text: &newText})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Text).To(Equal("revised"))
			Expect(got.Type).To(Equal(eventstream.TypeMemoryUpdated))
		})
	})
})
