package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/claimorch"
	"github.com/loomware/memstate/pkg/embeddings/nop"
	"github.com/loomware/memstate/pkg/eventstream"
	"github.com/loomware/memstate/pkg/extraction"
	llmnop "github.com/loomware/memstate/pkg/llmcap/nop"
	"github.com/loomware/memstate/pkg/memoryorch"
	"github.com/loomware/memstate/pkg/retrieval"
	"github.com/loomware/memstate/pkg/storage/inmemory"
)

func newTestServer() *Server {
	store := inmemory.NewDriver()
	bus := eventstream.NewLocalBus(nil)
	embedder := nop.NewEmbedder()
	logger := zap.NewNop()

	return NewServer(Config{ListenAddr: ":0", DefaultProjectID: "proj"}, Deps{
		Store:     store,
		Bus:       bus,
		Memories:  memoryorch.New(store, bus, embedder, nil, logger),
		Claims:    claimorch.New(store),
		Retrieval: retrieval.New(store, embedder, nil, false),
		Extractor: extraction.NewLLM(llmnop.New()),
	}, logger)
}

func doJSON(server *Server, method, path string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-Id", "proj")

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	respBody, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, respBody
}

var _ = Describe("Memory handlers", func() {
	var server *Server

	BeforeEach(func() {
		server = newTestServer()
	})

	Describe("without a project header or a default project", func() {
		It("rejects with project_id_required", func() {
			server.config.DefaultProjectID = ""
			req, err := http.NewRequest(http.MethodGet, "/api/v1/memories", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /api/v1/memories", func() {
		It("creates a memory and returns 201", func() {
			resp, body := doJSON(server, http.MethodPost, "/api/v1/memories", map[string]any{
				"subject_id": "u1",
				"text":       "I work at Acme",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var result map[string]any
			Expect(json.Unmarshal(body, &result)).To(Succeed())
			Expect(result["created"]).To(BeTrue())
			Expect(result["id"]).NotTo(BeEmpty())
			Expect(result["subject_id"]).To(Equal("u1"))
		})

		It("rejects missing text with 400", func() {
			resp, _ := doJSON(server, http.MethodPost, "/api/v1/memories", map[string]any{
				"subject_id": "u1",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /api/v1/memories/:id", func() {
		It("404s with memory_not_found for a missing id", func() {
			resp, body := doJSON(server, http.MethodGet, "/api/v1/memories/does-not-exist", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("memory_not_found"))
		})
	})

	Describe("DELETE then POST restore", func() {
		It("400s with memory_deleted on restoring a soft-deleted memory", func() {
			_, createBody := doJSON(server, http.MethodPost, "/api/v1/memories", map[string]any{
				"subject_id": "u1",
				"text":       "to delete",
			})
			var created struct {
				ID string `json:"id"`
			}
			Expect(json.Unmarshal(createBody, &created)).To(Succeed())

			delResp, _ := doJSON(server, http.MethodDelete, "/api/v1/memories/"+created.ID, nil)
			Expect(delResp.StatusCode).To(Equal(fiber.StatusOK))

			restoreResp, restoreBody := doJSON(server, http.MethodPost, "/api/v1/memories/"+created.ID+"/restore", nil)
			Expect(restoreResp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var errResp ErrorResponse
			Expect(json.Unmarshal(restoreBody, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("memory_deleted"))
		})
	})

	Describe("POST /api/v1/memories/extract", func() {
		It("with learn=false extracts without persisting", func() {
			resp, body := doJSON(server, http.MethodPost, "/api/v1/memories/extract", map[string]any{
				"subject_id": "u1",
				"text":       "I work at Acme",
				"learn":      false,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result map[string]any
			Expect(json.Unmarshal(body, &result)).To(Succeed())
			Expect(result["learned"]).To(BeFalse())
			Expect(result["extracted_count"]).To(BeNumerically(">=", 1))

			listResp, listBody := doJSON(server, http.MethodGet, "/api/v1/memories?subject_id=u1", nil)
			Expect(listResp.StatusCode).To(Equal(fiber.StatusOK))
			var listed map[string]any
			Expect(json.Unmarshal(listBody, &listed)).To(Succeed())
			Expect(listed["count"]).To(BeNumerically("==", 0))
		})

		It("with learn=true persists the extracted memory and claims", func() {
			resp, body := doJSON(server, http.MethodPost, "/api/v1/memories/extract", map[string]any{
				"subject_id": "u2",
				"text":       "My name is Sam and I work at Acme",
				"learn":      true,
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result map[string]any
			Expect(json.Unmarshal(body, &result)).To(Succeed())
			Expect(result["learned"]).To(BeTrue())

			listResp, listBody := doJSON(server, http.MethodGet, "/api/v1/memories?subject_id=u2", nil)
			Expect(listResp.StatusCode).To(Equal(fiber.StatusOK))
			var listed map[string]any
			Expect(json.Unmarshal(listBody, &listed)).To(Succeed())
			Expect(listed["count"]).To(BeNumerically(">=", 1))
		})
	})
})
