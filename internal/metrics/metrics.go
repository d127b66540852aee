// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chronicle"

var (
	// EventsDispatched counts events applied by a projection handler.
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "projection",
		Name:      "events_dispatched_total",
		Help:      "Total number of events applied by a projection handler",
	}, []string{"handler"})

	// EventsUnrecognized counts events whose signature has no handler.
	EventsUnrecognized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "projection",
		Name:      "events_unrecognized_total",
		Help:      "Total number of events with no registered handler",
	})

	// DecodeFailures counts events that failed to decode, skipped or not.
	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "projection",
		Name:      "decode_failures_total",
		Help:      "Total number of events that failed to decode",
	}, []string{"handler", "skipped"})

	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "projection",
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent applying one event, checkpoint included",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"handler"})

	// CheckpointBlock is the last block recorded per source scope.
	CheckpointBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "checkpoint_block",
		Help:      "Last block number recorded by the checkpoint",
	}, []string{"source"})

	// ControllerState is the current state ordinal of each controller.
	ControllerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "controller_state",
		Help:      "Controller state: 0 init, 1 catchup, 2 live, 3 terminated",
	}, []string{"source"})

	TaskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "task_failures_total",
		Help:      "Total number of tasks that returned an error",
	}, []string{"task"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of query API requests",
	}, []string{"route", "code"})
)
