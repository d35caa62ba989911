package api

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SSE handler", func() {
	var server *Server

	BeforeEach(func() {
		server = newTestServer()
	})

	Describe("GET /api/v1/events/memories", func() {
		It("emits a connected event first", func() {
			// The stream stays open until the client disconnects, so the
			// test reads it over a real listener instead of app.Test, which
			// waits for a complete response.
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { _ = ln.Close() })
			go func() { _ = server.app.Listener(ln) }()

			req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/events/memories?subject_id=u1", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("X-Project-Id", "proj")

			resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
			defer resp.Body.Close()

			reader := bufio.NewReader(resp.Body)
			eventLine, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(eventLine)).To(Equal("event: connected"))

			dataLine, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			Expect(dataLine).To(ContainSubstring(`"project_id":"proj"`))
			Expect(dataLine).To(ContainSubstring(`"subject_id":"u1"`))
		})
	})
})
