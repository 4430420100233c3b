package poller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the poller itself. It is separate from the weather
// exposition and lives on its own registry.
type Metrics struct {
	polls       *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "owm_exporter_polls_total",
			Help: "Total number of completed provider polls by result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "owm_exporter_last_success_timestamp_seconds",
			Help: "Unix time of the last successful provider poll.",
		}),
	}

	reg.MustRegister(m.polls, m.lastSuccess)
	return m
}

func (m *Metrics) observe(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) succeededAt(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(t.UnixNano()) / 1e9)
}
