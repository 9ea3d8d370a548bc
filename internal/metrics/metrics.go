// Package metrics exposes Prometheus collectors for refresh cycles.
//
// Collectors are registered on a caller-supplied registerer so that each
// board owns its own registry and tests never touch the global one.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the refresh collectors for a set of regions.
//
// Series are keyed by region id, which is unique per board; the source name
// is carried alongside as a display label and may repeat.
type Metrics struct {
	refreshes *prometheus.CounterVec
	children  *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
//
// Returns an error if any collector is already registered on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pollboard_refresh_total",
			Help: "Refresh cycles completed, by region and outcome.",
		}, []string{"region", "source", "outcome"}),
		children: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pollboard_region_children",
			Help: "Children rendered into the region by the last successful refresh.",
		}, []string{"region", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pollboard_refresh_duration_seconds",
			Help:    "HTTP latency of refresh requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"region", "source"}),
	}

	for _, c := range []prometheus.Collector{m.refreshes, m.children, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one completed refresh cycle.
//
// children is only applied to the gauge when outcome is "ok"; failed and
// stale cycles leave the last rendered count in place, as the region does.
func (m *Metrics) Observe(region, source, outcome string, children int, latency time.Duration) {
	m.refreshes.WithLabelValues(region, source, outcome).Inc()
	m.duration.WithLabelValues(region, source).Observe(latency.Seconds())
	if outcome == "ok" {
		m.children.WithLabelValues(region, source).Set(float64(children))
	}
}
