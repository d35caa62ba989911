package retrieval

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/embeddings/nop"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
	"github.com/loomware/memstate/pkg/storage/inmemory"
)

var _ = Describe("Simple", func() {
	var (
		store *inmemory.Driver
		s     *Simple
		ctx   = context.Background()
	)

	BeforeEach(func() {
		store = inmemory.NewDriver()
		s = NewSimple(store, nop.NewEmbedder())

		_, err := store.CreateMemory(ctx, storage.CreateMemoryInput{
			ProjectID: "proj", SubjectID: "u1", Text: "I work at Acme as an engineer",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns results tagged mode=simple", func() {
		result, err := s.Search(ctx, Request{ProjectID: "proj", SubjectID: "u1", Query: "Acme"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Mode).To(Equal(ModeSimple))
		Expect(result.UsedQueries).To(Equal([]string{"Acme"}))
		Expect(result.Memories).NotTo(BeEmpty())
	})

	It("short-circuits on an empty query", func() {
		result, err := s.Search(ctx, Request{ProjectID: "proj", SubjectID: "u1", Query: ""})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Memories).To(BeEmpty())
		Expect(result.Mode).To(Equal(ModeSimple))
	})
})

var _ = Describe("merge helpers", func() {
	It("dedupeQueries preserves order and drops repeats", func() {
		Expect(dedupeQueries([]string{"a", "b", "a", "c", "b"})).To(Equal([]string{"a", "b", "c"}))
	})

	It("mergeKeepMax keeps the higher-scoring variant per id", func() {
		acc := map[string]memory.Scored{}
		low := memory.Scored{Memory: memory.Memory{ID: "m1"}, EffectiveScore: 10}
		high := memory.Scored{Memory: memory.Memory{ID: "m1"}, EffectiveScore: 90}
		mergeKeepMax(acc, []memory.Scored{low})
		mergeKeepMax(acc, []memory.Scored{high})
		Expect(acc["m1"].EffectiveScore).To(Equal(90.0))
	})
})
