package inmemory_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/storage"
	"github.com/loomware/memstate/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		d   *inmemory.Driver
		ctx = context.Background()
	)

	BeforeEach(func() {
		d = inmemory.NewDriver()
	})

	It("always pings successfully", func() {
		Expect(d.Ping(ctx)).NotTo(HaveOccurred())
	})

	It("mints an rcl_-prefixed ulid when a recall event has no id", func() {
		err := d.RecordRecallEvent(ctx, storage.RecallEvent{
			ProjectID: "proj",
			MemoryID:  "mem_1",
			ChatID:    "chat_1",
		})
		Expect(err).NotTo(HaveOccurred())

		events, err := d.GetRecallEvents(ctx, storage.RecallEventFilter{ProjectID: "proj", ChatID: "chat_1", Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(strings.HasPrefix(events[0].ID, "rcl_")).To(BeTrue())
	})
})
