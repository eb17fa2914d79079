package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightloop/antigravity-gateway/internal/gatewayconfig"
	"github.com/brightloop/antigravity-gateway/internal/gwerr"
)

// GatewayConfigHandler handles GET|POST /api/gateway/config: reading and
// writing the gateway's system instruction, gated by gatewayconfig.Store's
// sentinel validation on write.
func (h *Handlers) GatewayConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet:
			c.JSON(http.StatusOK, h.GatewayConfig.Get())
		case http.MethodPost:
			var cfg gatewayconfig.Config
			if err := c.ShouldBindJSON(&cfg); err != nil {
				h.writeError(c, gwerr.Translation("body", "malformed request body: "+err.Error()))
				return
			}
			if err := h.GatewayConfig.Set(cfg); err != nil {
				h.writeError(c, gwerr.Translation("systemInstruction", err.Error()))
				return
			}
			c.JSON(http.StatusOK, h.GatewayConfig.Get())
		default:
			c.Status(http.StatusMethodNotAllowed)
		}
	}
}
