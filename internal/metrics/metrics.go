// Package metrics exposes the ambient Prometheus instrumentation for
// ingestion and export volume. Nothing in the spec's invariants depends on
// these; they exist purely for operational visibility.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IngestedRecords counts MarketValueRecords folded into the store.
	IngestedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auctiondb_ingested_records_total",
		Help: "Total MarketValueRecords produced by the increment builder and merged into the store.",
	})

	// ExportRowsWritten counts items actually rendered into an export row.
	ExportRowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auctiondb_export_rows_written_total",
		Help: "Total items rendered into an export row.",
	})

	// ExportItemsSkipped counts items skipped by the export "all zero" rule.
	ExportItemsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auctiondb_export_items_skipped_total",
		Help: "Total items skipped during export because every numeric field was zero.",
	})

	// StoreSeriesCount tracks how many distinct items the store currently
	// holds a series for.
	StoreSeriesCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auctiondb_store_series_count",
		Help: "Number of distinct items currently held in the store.",
	})
)

func init() {
	prometheus.MustRegister(IngestedRecords, ExportRowsWritten, ExportItemsSkipped, StoreSeriesCount)
}
