package jsonfile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentIODuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_document_io_duration_seconds",
			Help:    "Duration of whole-document reads and writes in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"collection", "op"},
	)

	// documentItems tracks the size of each collection as last read or written.
	documentItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_document_items",
			Help: "Number of records in each stored collection",
		},
		[]string{"collection"},
	)
)

func observe(collection, op string, start time.Time) {
	documentIODuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}
