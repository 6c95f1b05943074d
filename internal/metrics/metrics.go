package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests counts catalog API calls by endpoint and outcome
	// ("success", "failure", "rejected").
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yoda_catalog_requests_total",
			Help: "Total number of catalog API requests",
		},
		[]string{"endpoint", "result"},
	)

	// CatalogBatches counts enrichment lookup batches by outcome.
	CatalogBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yoda_catalog_batches_total",
			Help: "Total number of video metadata lookup batches",
		},
		[]string{"result"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yoda_circuit_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// DashboardRequests counts dashboard API requests by route and status class.
	DashboardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yoda_dashboard_requests_total",
			Help: "Total number of dashboard API requests",
		},
		[]string{"route", "status"},
	)

	// ImportedRows records the row counts written by the last import.
	ImportedRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yoda_imported_rows",
			Help: "Rows written to each table by the most recent import",
		},
		[]string{"table"},
	)
)
