package claimorch

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/storage/inmemory"
)

var _ = Describe("Service", func() {
	var (
		store *inmemory.Driver
		svc   *Service
		ctx   = context.Background()
	)

	BeforeEach(func() {
		store = inmemory.NewDriver()
		svc = New(store)
	})

	It("rejects a missing predicate", func() {
		_, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", ObjectValue: "x"})
		Expect(err).To(HaveOccurred())
	})

	It("creates a claim and makes it the active slot winner", func() {
		c, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Predicate: "lives_in", ObjectValue: "Austin"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Slot).To(Equal("lives_in"))

		slot, err := store.GetCurrentSlot(ctx, "proj", "u1", "lives_in")
		Expect(err).NotTo(HaveOccurred())
		Expect(slot.ActiveClaimID).NotTo(BeNil())
		Expect(*slot.ActiveClaimID).To(Equal(c.ClaimID))
	})

	It("mints a fallback id when none is supplied", func() {
		c, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Predicate: "lives_in", ObjectValue: "Austin"})
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(c.ClaimID, "clm_")).To(BeTrue())
	})

	It("honors a client-supplied claim id", func() {
		c, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Predicate: "lives_in", ObjectValue: "Austin", ClaimID: "clm_explicit"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ClaimID).To(Equal("clm_explicit"))
	})

	It("retracting the sole claim in a slot retracts the slot", func() {
		c, err := svc.Create(ctx, CreateInput{ProjectID: "proj", SubjectID: "u1", Predicate: "lives_in", ObjectValue: "Austin"})
		Expect(err).NotTo(HaveOccurred())

		result, err := svc.Retract(ctx, "proj", c.ClaimID, "moved")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.RestoredPrevious).To(BeFalse())

		slot, err := store.GetCurrentSlot(ctx, "proj", "u1", "lives_in")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(slot.Status)).To(Equal("retracted"))
	})
})
