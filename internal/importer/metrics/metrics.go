package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricPrefix = "iob_import_"

var JobsStarted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_started_total",
		Help: "Number of import jobs accepted by the ingestion gateway",
	})

var JobsCompleted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_completed_total",
		Help: "Number of import jobs that reached the completed state",
	})

var JobsFailed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_failed_total",
		Help: "Number of import jobs that reached the failed state",
	})

var JobsInflight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "jobs_inflight",
		Help: "Number of import jobs currently being processed",
	})

var ItemsProcessed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "items_processed_total",
		Help: "Number of items successfully created downstream",
	})

var ItemsFailed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "items_failed_total",
		Help: "Number of items rejected by the downstream sink",
	})

var PayloadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "payload_bytes",
		Help:    "Size of accepted import payloads in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})
