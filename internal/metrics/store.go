package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Committed row store mutations",
		},
		[]string{"op"},
	)

	rowsAffected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_rows_affected_total",
			Help:      "Rows created, updated or deleted by committed mutations",
		},
		[]string{"op"},
	)

	storeRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_rows",
			Help:      "Number of rows in the store",
		},
	)

	extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction attempts by result",
		},
		[]string{"result"},
	)

	extractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Extraction duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(mutationsTotal, rowsAffected, storeRows, extractionsTotal, extractionDuration)
}

// StoreObserver is a rows.Observer updating the store metrics.
type StoreObserver struct{}

// OnChange implements rows.Observer.
func (StoreObserver) OnChange(_ context.Context, c rows.Change) {
	mutationsTotal.WithLabelValues(string(c.Op)).Inc()
	rowsAffected.WithLabelValues(string(c.Op)).Add(float64(len(c.IDs)))
	storeRows.Set(float64(c.Len))
}

// SetRows records the store size, e.g. after a snapshot was restored.
func SetRows(n int) {
	storeRows.Set(float64(n))
}

// Extractor wraps ex to record extraction outcomes.
func Extractor(ex extract.Extractor) extract.Extractor {
	return &instrumented{ex: ex}
}

type instrumented struct {
	ex extract.Extractor
}

func (i *instrumented) Extract(ctx context.Context, doc extract.Document) ([]rows.Input, error) {
	start := time.Now()
	out, err := i.ex.Extract(ctx, doc)
	extractionDuration.Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "abandoned"
	default:
		result = "failed"
	}
	extractionsTotal.WithLabelValues(result).Inc()
	return out, err
}
