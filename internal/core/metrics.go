package core

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Total number of dataset import runs broken down by outcome.",
	}, []string{"result"})

	importRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "import",
		Name:      "rows_committed_total",
		Help:      "Total number of Pokemon rows committed by dataset imports.",
	})

	importRecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "import",
		Name:      "references_created_total",
		Help:      "Total number of Types and Generations created by committed imports.",
	}, []string{"kind"})

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "catalog",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Wall time of dataset import runs, including rolled back ones.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	importSlotsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "catalog",
		Subsystem: "import",
		Name:      "active",
		Help:      "Number of imports currently holding a limiter slot.",
	})
)

func recordImport(res ImportResult, elapsed time.Duration, err error) {
	importDuration.Observe(elapsed.Seconds())
	importRuns.WithLabelValues(importOutcome(err)).Inc()
	if err != nil {
		return
	}
	importRows.Add(float64(res.Rows))
	importRecordsCreated.WithLabelValues("type").Add(float64(res.TypesCreated))
	importRecordsCreated.WithLabelValues("generation").Add(float64(res.GenerationsCreated))
}

func importOutcome(err error) string {
	var malformed *MalformedNameError
	var field *FieldError
	var ref *ReferenceResolutionError
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrUniquenessViolation):
		return "duplicate"
	case errors.As(err, &malformed), errors.As(err, &field):
		return "invalid_row"
	case errors.As(err, &ref):
		return "unresolved_reference"
	default:
		return "failed"
	}
}
