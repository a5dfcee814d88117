package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TracesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cos",
		Name:      "traces_total",
		Help:      "Reasoning traces produced, by source (ask, knowledge).",
	}, []string{"source"})

	CompletionFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cos",
		Name:      "completion_fallbacks_total",
		Help:      "Completions that could not be parsed and fell back to defaults, by stage.",
	}, []string{"stage"})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cos",
		Name:      "persist_failures_total",
		Help:      "Graph writes that failed after a trace was computed, by kind.",
	}, []string{"kind"})

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cos",
		Name:      "broadcast_dropped_total",
		Help:      "Traces dropped from slow subscriber queues.",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cos",
		Name:      "stream_subscribers",
		Help:      "Currently connected live-stream subscribers.",
	})

	EventBusDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cos",
		Name:      "event_bus_depth",
		Help:      "Events waiting to be drained.",
	})

	SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cos",
		Name:      "ask_duration_seconds",
		Help:      "End-to-end Ask latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cos",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status class.",
	}, []string{"route", "status"})
)
