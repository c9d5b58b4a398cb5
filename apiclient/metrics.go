package apiclient

import (
	"strconv"

	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "adminctl"

// Metrics counts backend traffic and session lifecycle transitions. A nil
// *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	expirations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Backend responses received, by HTTP status code.",
		}, []string{"code"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh outcomes. Skipped means another request had already refreshed.",
		}, []string{"result"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_expirations_total",
			Help:      "Forced logouts, by reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.refreshes, m.expirations} {
		if err := reg.Register(c); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	return m, nil
}

func (m *Metrics) observeResponse(code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeExpiry(reason ExpiryReason) {
	if m == nil {
		return
	}
	m.expirations.WithLabelValues(string(reason)).Inc()
}
