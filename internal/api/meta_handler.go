package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightloop/antigravity-gateway/internal/registry"
)

// modelsResponse mirrors the OpenAI-shaped model list every dialect's
// tooling already expects from a "list models" call.
type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelEntry `json:"data"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// Models handles GET /v1/models.
func (h *Handlers) Models() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := registry.IDs()
		data := make([]modelEntry, 0, len(ids))
		for _, id := range ids {
			data = append(data, modelEntry{ID: id, Object: "model", OwnedBy: "antigravity"})
		}
		c.JSON(http.StatusOK, modelsResponse{Object: "list", Data: data})
	}
}

// healthResponse supplements spec.md's bare liveness probe with pool size
// and signature-cache occupancy, per SPEC_FULL.md section 6: cheap
// liveness-adjacent detail, not a dependency for the pass/fail result.
type healthResponse struct {
	Status          string `json:"status"`
	Accounts        int    `json:"accounts"`
	SignatureCache  int    `json:"signatureCacheEntries"`
}

// Health handles GET /health.
func (h *Handlers) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:         "ok",
			Accounts:       h.Pool.Len(),
			SignatureCache: h.Thinking.Len(),
		})
	}
}
