package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brightloop/antigravity-gateway/internal/gwerr"
)

// writeError maps any error to the gateway's dialect-neutral JSON error
// envelope; a plain error not already a *gwerr.Error is treated as an
// opaque upstream failure.
func (h *Handlers) writeError(c *gin.Context, err error) {
	gerr, ok := gwerr.As(err)
	if !ok {
		gerr = gwerr.Upstream(0, err.Error(), nil)
	}
	h.logger().WithError(gerr).WithField("kind", gerr.Kind).Warn("request failed")
	c.Data(gerr.HTTPStatus(), "application/json", gerr.Body())
}
