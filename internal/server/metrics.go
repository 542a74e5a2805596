package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watchbuyer/watchbuyer/pkg/extract"
)

const namespace = "watchbuyer"

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sourceLookups   *prometheus.CounterVec
	candidates      prometheus.Counter
	listings        prometheus.Counter
	rejected        *prometheus.CounterVec
	priceStrategies *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sourceLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_lookups_total",
			Help:      "Marketplace lookups by source and outcome (found, empty, error).",
		}, []string{"source", "outcome"}),
		candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "candidates_total",
			Help:      "Candidate listing containers examined.",
		}),
		listings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "listings_total",
			Help:      "Qualifying listings emitted.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "rejected_total",
			Help:      "Candidates discarded, by first failing check.",
		}, []string{"reason"}),
		priceStrategies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "price_strategy_total",
			Help:      "Emitted listings by the price strategy that produced them.",
		}, []string{"strategy"}),
	}
}

func (m *metrics) handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *metrics) observeRequest(route, method string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *metrics) observeExtraction(rep extract.Report) {
	m.candidates.Add(float64(rep.Candidates))
	m.listings.Add(float64(len(rep.Listings)))
	for reason, n := range rep.Rejected {
		m.rejected.WithLabelValues(reason).Add(float64(n))
	}
	for name, n := range rep.PriceStrategies {
		m.priceStrategies.WithLabelValues(name).Add(float64(n))
	}
}

func (m *metrics) observeLookup(source string, found bool, err error) {
	outcome := "empty"
	switch {
	case err != nil:
		outcome = "error"
	case found:
		outcome = "found"
	}
	m.sourceLookups.WithLabelValues(source, outcome).Inc()
}
