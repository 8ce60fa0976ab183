// Package metrics exposes Prometheus collectors for the signaling core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "peerhub_connections",
		Help: "Live signaling connections.",
	})

	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerhub_events_total",
		Help: "Inbound signaling events by type.",
	}, []string{"type"})

	JoinRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerhub_join_rejections_total",
		Help: "Rejected room joins by reason.",
	}, []string{"reason"})
)

// Handler exposes the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
