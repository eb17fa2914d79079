package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brightloop/antigravity-gateway/internal/gwlog"
)

// NewRouter builds the gateway's Gin engine: request logging and metrics
// middleware wrap every route, per SPEC_FULL.md section 2.1/4.8.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gwlog.GinMiddleware(h.logger()))
	r.Use(h.Metrics.GinMiddleware())

	r.GET("/metrics", h.Metrics.Handler())
	r.GET("/health", h.Health())
	r.GET("/v1/models", h.Models())
	r.GET("/account-limits", h.AccountLimits())

	r.POST("/v1/chat/completions", h.ChatCompletions())
	r.POST("/v1/messages", h.Messages())

	r.POST("/v1beta/models/:modelAndMethod", h.dispatchGoogleRoute())

	gw := r.Group("/api/gateway/config")
	gw.GET("", h.GatewayConfigHandler())
	gw.POST("", h.GatewayConfigHandler())

	return r
}
