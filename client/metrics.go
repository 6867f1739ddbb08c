package client

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a leader lookup, used as the "result" label.
const (
	resultSelf         = "self"
	resultRedirect     = "redirect"
	resultNotFound     = "not_found"
	resultConnectError = "connect_error"
	resultConfigError  = "config_error"
	resultCanceled     = "canceled"
)

type metrics struct {
	resolutions   *prometheus.CounterVec
	seedFailures  prometheus.Counter
	sessionsOpen  prometheus.Counter
	sessionsClose prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nimbus",
			Subsystem: "client",
			Name:      "resolutions_total",
			Help:      "Leader lookups, by result.",
		}, []string{"result"}),
		seedFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nimbus",
			Subsystem: "client",
			Name:      "seed_failures_total",
			Help:      "Seeds that could not be contacted or did not know the leader.",
		}),
		sessionsOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nimbus",
			Subsystem: "client",
			Name:      "sessions_opened_total",
			Help:      "Sessions opened while looking up the leader.",
		}),
		sessionsClose: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nimbus",
			Subsystem: "client",
			Name:      "sessions_discarded_total",
			Help:      "Sessions closed while looking up the leader.",
		}),
	}
	if registerer != nil {
		m.resolutions = register(registerer, m.resolutions).(*prometheus.CounterVec)
		m.seedFailures = register(registerer, m.seedFailures).(prometheus.Counter)
		m.sessionsOpen = register(registerer, m.sessionsOpen).(prometheus.Counter)
		m.sessionsClose = register(registerer, m.sessionsClose).(prometheus.Counter)
	}
	return m
}

// Register the collector, returning the one already registered under the
// same name if any, so that several locators can share a registry.
func register(registerer prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
