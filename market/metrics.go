package market

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors updated by a Tracker.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	Price         *prometheus.GaugeVec
	LastSuccess   prometheus.Gauge
	Skipped       prometheus.Counter
}

// NewMetrics creates the tracker collectors. They are registered on reg unless it is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacker_price_fetches_total",
				Help: "Total number of price fetches by kind and result",
			},
			[]string{"kind", "result"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stacker_price_fetch_duration_seconds",
				Help:    "Duration of price fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
			},
			[]string{"kind"},
		),
		Price: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stacker_btc_price",
				Help: "Last known bitcoin spot price by currency",
			},
			[]string{"currency"},
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stacker_price_last_success_timestamp_seconds",
				Help: "Unix time of the last successful spot price fetch",
			},
		),
		Skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stacker_price_refresh_skipped_total",
				Help: "Total number of refresh requests skipped because the price is recent",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.FetchDuration, m.Price, m.LastSuccess, m.Skipped)
	}
	return m
}
