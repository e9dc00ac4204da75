// Package otmetrics declares the Prometheus instrumentation for the
// reference coordinator, following the promauto package-level-metric
// convention the wider example pack uses for its HTTP/cache/DB metrics.
package otmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsOpen is the number of documents currently held in memory
	// by the registry.
	DocumentsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quillpad",
		Name:      "documents_open",
		Help:      "Number of documents currently open in the coordinator registry.",
	})

	// ConnectedClients is the number of live websocket connections
	// across all documents.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quillpad",
		Name:      "connected_clients",
		Help:      "Number of websocket connections currently attached to a document.",
	})

	// OperationsApplied counts operations successfully applied by
	// Document.ApplyEdit.
	OperationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quillpad",
		Name:      "operations_applied_total",
		Help:      "Total number of operations successfully applied to a document.",
	})

	// OperationsRejected counts operations ApplyEdit refused (revision
	// ahead of history, oversized document, transform or apply failure).
	OperationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quillpad",
		Name:      "operations_rejected_total",
		Help:      "Total number of operations rejected by the coordinator, by reason.",
	}, []string{"reason"})

	// OperationsPersisted counts successful writes to the backing
	// store.
	OperationsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quillpad",
		Name:      "operations_persisted_total",
		Help:      "Total number of document snapshots written to the store.",
	})
)
