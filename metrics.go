package taxlot

// Prometheus metrics updated during reconciliation runs:
//
//	taxlot_runs_total{result}          - runs by outcome (ok|cancelled)
//	taxlot_disposals_total             - disposal records emitted
//	taxlot_wash_sales_total            - disposals with a disallowed loss
//	taxlot_duplicates_skipped_total    - executions skipped at ingestion
//	taxlot_pending_disposals           - disposals awaiting window close (gauge)
//
// They are registered in init(); serving them is left to the embedding
// program.

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxlot_runs_total",
			Help: "Reconciliation runs by outcome",
		},
		[]string{"result"},
	)

	mtxDisposals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taxlot_disposals_total",
			Help: "Disposal records emitted",
		},
	)

	mtxWashSales = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taxlot_wash_sales_total",
			Help: "Disposals with a wash-sale disallowed loss",
		},
	)

	mtxDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taxlot_duplicates_skipped_total",
			Help: "Duplicate executions skipped at ingestion",
		},
	)

	mtxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taxlot_pending_disposals",
			Help: "Disposals whose forward wash-sale window is still open",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxRuns, mtxDisposals, mtxWashSales, mtxDuplicates, mtxPending)
}
