// Package api implements the gateway's public HTTP surface: one Gin
// handler file per wire dialect, composing internal/convert,
// internal/upstream, internal/accountpool, internal/fallback, and
// internal/thinking into the normalize-dispatch-translate pipeline
// described in SPEC_FULL.md section 4.8.
package api

import (
	"github.com/sirupsen/logrus"

	"github.com/brightloop/antigravity-gateway/internal/accountpool"
	"github.com/brightloop/antigravity-gateway/internal/config"
	"github.com/brightloop/antigravity-gateway/internal/gatewayconfig"
	"github.com/brightloop/antigravity-gateway/internal/metrics"
	"github.com/brightloop/antigravity-gateway/internal/thinking"
	"github.com/brightloop/antigravity-gateway/internal/upstream"
)

// Handlers holds every dependency the dialect handlers need. One instance
// is constructed in cmd/server/main.go and threaded through the router;
// nothing here is a package-level global.
type Handlers struct {
	GatewayConfig *gatewayconfig.Store
	Pool          *accountpool.Pool
	Client        *upstream.Client
	Thinking      *thinking.Cache
	Watcher       *config.Watcher
	Metrics       *metrics.Metrics
	Log           *logrus.Logger
}

// fallbackEnabled reads the live, hot-reloadable fallback flag.
func (h *Handlers) fallbackEnabled() bool {
	return h.Watcher.Current().Fallback
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Log != nil {
		return h.Log
	}
	return logrus.StandardLogger()
}
