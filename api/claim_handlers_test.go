package api

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Claim handlers", func() {
	var server *Server

	BeforeEach(func() {
		server = newTestServer()
	})

	Describe("POST /api/v1/claims", func() {
		It("creates a claim and makes it the slot winner", func() {
			resp, body := doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id":   "u1",
				"predicate":    "lives_in",
				"object_value": "Austin",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var claim map[string]any
			Expect(json.Unmarshal(body, &claim)).To(Succeed())
			Expect(claim["slot"]).To(Equal("lives_in"))
			Expect(claim["claim_id"]).To(HavePrefix("clm_"))

			truthResp, truthBody := doJSON(server, http.MethodGet, "/api/v1/claims/subject/u1/truth", nil)
			Expect(truthResp.StatusCode).To(Equal(fiber.StatusOK))
			var truth struct {
				Slots []struct {
					Slot        string `json:"slot"`
					ObjectValue string `json:"object_value"`
				} `json:"slots"`
				Count int `json:"count"`
			}
			Expect(json.Unmarshal(truthBody, &truth)).To(Succeed())
			Expect(truth.Count).To(Equal(1))
			Expect(truth.Slots[0].ObjectValue).To(Equal("Austin"))
		})

		It("rejects a missing object_value with 400", func() {
			resp, body := doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id": "u1",
				"predicate":  "lives_in",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("object_value_required"))
		})
	})

	Describe("POST /api/v1/claims/:id/retract", func() {
		It("retracts a claim and retires its slot", func() {
			_, createBody := doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id":   "u1",
				"predicate":    "lives_in",
				"object_value": "Austin",
			})
			var claim struct {
				ClaimID string `json:"claim_id"`
			}
			Expect(json.Unmarshal(createBody, &claim)).To(Succeed())

			resp, body := doJSON(server, http.MethodPost, "/api/v1/claims/"+claim.ClaimID+"/retract", map[string]any{
				"reason": "moved",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var result map[string]any
			Expect(json.Unmarshal(body, &result)).To(Succeed())
			Expect(result["success"]).To(BeTrue())
		})
	})

	Describe("GET /api/v1/claims/:id", func() {
		It("returns the claim with its assertions and edges", func() {
			_, createBody := doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id":   "u1",
				"predicate":    "favorite_color",
				"object_value": "blue",
			})
			var claim struct {
				ClaimID string `json:"claim_id"`
			}
			Expect(json.Unmarshal(createBody, &claim)).To(Succeed())

			resp, body := doJSON(server, http.MethodGet, "/api/v1/claims/"+claim.ClaimID, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var detail map[string]any
			Expect(json.Unmarshal(body, &detail)).To(Succeed())
			Expect(detail["claim"]).NotTo(BeNil())
		})
	})

	Describe("GET /api/v1/claims/subject/:subjectId/slot/:slot", func() {
		It("reflects the winning claim's object_value across retraction", func() {
			doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id":   "u1",
				"predicate":    "favorite_color",
				"object_value": "yellow",
			})
			_, bBody := doJSON(server, http.MethodPost, "/api/v1/claims", map[string]any{
				"subject_id":   "u1",
				"predicate":    "favorite_color",
				"object_value": "blue",
			})
			var b struct {
				ClaimID string `json:"claim_id"`
			}
			Expect(json.Unmarshal(bBody, &b)).To(Succeed())

			_, slotBody := doJSON(server, http.MethodGet, "/api/v1/claims/subject/u1/slot/favorite_color", nil)
			var slot struct {
				ObjectValue string `json:"object_value"`
			}
			Expect(json.Unmarshal(slotBody, &slot)).To(Succeed())
			Expect(slot.ObjectValue).To(Equal("blue"))

			doJSON(server, http.MethodPost, "/api/v1/claims/"+b.ClaimID+"/retract", nil)

			_, slotBody2 := doJSON(server, http.MethodGet, "/api/v1/claims/subject/u1/slot/favorite_color", nil)
			Expect(json.Unmarshal(slotBody2, &slot)).To(Succeed())
			Expect(slot.ObjectValue).To(Equal("yellow"))
		})
	})
})
