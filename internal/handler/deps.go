package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"hzpresence/internal/app/metrics"
	"hzpresence/internal/app/presence"
	"hzpresence/internal/configs"
)

// AppDeps bundles everything the HTTP layer needs.
type AppDeps struct {
	Hub      *presence.Hub
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Config   *configs.AppConfig
}
