package api

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/storage/inmemory"
)

// failingPingStore wraps an inmemory.Driver but reports storage as
// unreachable, for exercising the health handler's degraded path.
type failingPingStore struct {
	*inmemory.Driver
}

func (failingPingStore) Ping(ctx context.Context) error {
	return errors.New("storage unreachable")
}

var _ = Describe("Health handler", func() {
	It("reports ok when storage is reachable", func() {
		server := newTestServer()

		resp, body := doJSON(server, http.MethodGet, "/health", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"status":"ok"`))
		Expect(string(body)).To(ContainSubstring(`"storage":"up"`))
	})

	It("reports degraded when storage is unreachable", func() {
		server := newTestServer()
		server.store = failingPingStore{Driver: inmemory.NewDriver()}

		resp, body := doJSON(server, http.MethodGet, "/health", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(string(body)).To(ContainSubstring(`"status":"degraded"`))
		Expect(string(body)).To(ContainSubstring(`"storage":"down"`))
	})
})
