package extractworker_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/claimorch"
	llmnop "github.com/loomware/memstate/pkg/llmcap/nop"
	"github.com/loomware/memstate/pkg/extraction"
	"github.com/loomware/memstate/pkg/extractworker"
	"github.com/loomware/memstate/pkg/storage/inmemory"
)

// newTestPool creates a worker pool backed by an in-memory driver and a
// nop caller, so extraction always falls through to the heuristic variant.
func newTestPool() (*extractworker.Pool, *inmemory.Driver) {
	driver := inmemory.NewDriver()
	claims := claimorch.New(driver)
	llm := extraction.NewLLM(llmnop.New())

	pool := extractworker.NewPool(&extractworker.Config{
		LLM:       llm,
		ClaimOrch: claims,
		Logger:    zap.NewNop(),
	})

	return pool, driver
}

var _ = Describe("Pool", func() {
	var (
		pool   *extractworker.Pool
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		pool, driver = newTestPool()
		ctx = context.Background()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := pool.Enqueue(extractworker.Job{
				ProjectID:   "proj",
				SubjectID:   "u1",
				NewMemoryID: "mem_1",
				NewText:     "hello",
			})
			Expect(ok).To(BeTrue())
			pool.Close()
		})
	})

	Describe("processing a job", func() {
		It("derives a claim via the heuristic fallback and attaches it to the memory", func() {
			ok := pool.Enqueue(extractworker.Job{
				ProjectID:   "proj",
				SubjectID:   "u1",
				NewMemoryID: "mem_1",
				NewText:     "I live in Austin.",
			})
			Expect(ok).To(BeTrue())
			pool.Close()

			claims, err := driver.GetClaimsByMemory(ctx, "proj", "mem_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(claims).To(HaveLen(1))
			Expect(claims[0].Predicate).To(Equal("lives_in"))
			Expect(claims[0].ObjectValue).To(Equal("Austin"))
		})

		It("drops nothing worth remembering without creating a claim", func() {
			ok := pool.Enqueue(extractworker.Job{
				ProjectID:   "proj",
				SubjectID:   "u1",
				NewMemoryID: "mem_2",
				NewText:     "ok",
			})
			Expect(ok).To(BeTrue())
			pool.Close()

			claims, err := driver.GetClaimsByMemory(ctx, "proj", "mem_2")
			Expect(err).NotTo(HaveOccurred())
			Expect(claims).To(BeEmpty())
		})
	})
})
