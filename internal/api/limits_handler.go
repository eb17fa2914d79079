package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AccountLimits handles GET /account-limits: the current per-account,
// per-model cooldown state. accountpool.Pool.Snapshot already excludes
// any entry whose cooldown has expired (SPEC_FULL.md testable property 7).
func (h *Handlers) AccountLimits() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Pool.Snapshot())
	}
}
