package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/memory"
)

var _ = Describe("Heuristic", func() {
	var h *Heuristic

	BeforeEach(func() {
		h = NewHeuristic()
	})

	Context("a trivial greeting under 40 characters", func() {
		It("returns no memories when not forced", func() {
			result := h.Extract(Request{Text: "hey thanks!"})
			Expect(result.Memories).To(BeEmpty())
		})

		It("extracts anyway when forced", func() {
			result := h.Extract(Request{Text: "hey thanks!", Force: true})
			Expect(result.Memories).To(HaveLen(1))
		})
	})

	Context("a name statement", func() {
		It("derives a name fact claim", func() {
			result := h.Extract(Request{Text: "My name is Priya Shah"})
			Expect(result.Memories).To(HaveLen(1))
			mem := result.Memories[0]
			Expect(mem.Kind).To(Equal(memory.KindFact))
			Expect(mem.Claims).To(HaveLen(1))
			Expect(mem.Claims[0].Predicate).To(Equal("name"))
			Expect(mem.Claims[0].ObjectValue).To(Equal("Priya Shah"))
			Expect(mem.Claims[0].ClaimType).To(Equal("fact"))
		})
	})

	Context("a favorite statement", func() {
		It("normalizes the predicate and keeps the object verbatim", func() {
			result := h.Extract(Request{Text: "My favorite Color is teal"})
			Expect(result.Memories[0].Claims).To(ContainElement(
				ExtractedClaim{Predicate: "favorite_color", ObjectValue: "teal", ClaimType: "preference", Confidence: 0.85},
			))
		})

		It("captures a multi-word favorite phrase and alphabetizes its tokens", func() {
			result := h.Extract(Request{Text: "My favorite ice cream is vanilla"})
			Expect(result.Memories[0].Claims).To(ContainElement(
				ExtractedClaim{Predicate: "favorite_cream_ice", ObjectValue: "vanilla", ClaimType: "preference", Confidence: 0.85},
			))
		})

		It("treats word order in the favorite phrase as equivalent", func() {
			a := h.Extract(Request{Text: "My favorite ice cream is vanilla"})
			b := h.Extract(Request{Text: "My favorite cream ice is vanilla"})
			Expect(a.Memories[0].Claims[0].Predicate).To(Equal(b.Memories[0].Claims[0].Predicate))
		})
	})

	Context("text with multiple matching patterns", func() {
		It("derives one claim per matched pattern, deduplicated", func() {
			result := h.Extract(Request{Text: "My name is Sam. I live in Austin. I like coffee."})
			Expect(result.Memories[0].Claims).To(HaveLen(3))
		})
	})

	Context("plain text with no recognizable pattern", func() {
		It("still emits one memory but no claims, kind note", func() {
			result := h.Extract(Request{Text: "The weather has been unusually warm this week."})
			Expect(result.Memories).To(HaveLen(1))
			Expect(result.Memories[0].Kind).To(Equal(memory.KindNote))
			Expect(result.Memories[0].Claims).To(BeEmpty())
		})
	})

	Context("empty text", func() {
		It("returns no memories", func() {
			result := h.Extract(Request{Text: "   "})
			Expect(result.Memories).To(BeEmpty())
		})
	})
})
