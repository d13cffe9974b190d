package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ao3courier_feed_polls_total",
		Help: "Feed polls by outcome",
	}, []string{"result"})

	malformedFeedsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ao3courier_malformed_feeds_total",
		Help: "Polls whose feed body was malformed and only partially recovered",
	})

	newEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ao3courier_new_entries_total",
		Help: "Entries detected as new across all feeds",
	})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ao3courier_deliveries_total",
		Help: "Delivery attempts by outcome",
	}, []string{"result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ao3courier_cycle_duration_seconds",
		Help:    "Duration of full polling cycles",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s up to ~2.3h
	})

	lastCycleTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ao3courier_last_cycle_timestamp_seconds",
		Help: "Unix time at which the last polling cycle finished",
	})
)
