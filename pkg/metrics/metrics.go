// Package metrics exposes Prometheus collectors for scans, signals and HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsPrepared = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "footprint_bars_prepared_total", Help: "Bars passed through the feature preparer"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "footprint_signals_total", Help: "Signal labels emitted"},
		[]string{"label"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "footprint_http_requests_total", Help: "HTTP requests served"},
		[]string{"route", "code"},
	)
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "footprint_scan_duration_seconds",
			Help:    "Time spent scanning symbol groups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(BarsPrepared, SignalsTotal, HTTPRequests, ScanDuration)
}

// Handler returns the scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a standalone metrics listener in the background
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
