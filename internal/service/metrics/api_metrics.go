package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pairdesk",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of pairs endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pairdesk",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by pairs endpoint",
		},
		[]string{"endpoint"},
	)

	SignalsByKind = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pairdesk",
			Subsystem: "api",
			Name:      "signals_total",
			Help:      "Signals served by kind",
		},
		[]string{"signal"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, SignalsByKind)
	})
}
