package sparkify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/xerrors"
)

// Registry holds the collectors of sparkify runs.
var Registry = prometheus.NewRegistry()

var (
	filesProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkify",
			Name:      "files_processed_total",
			Help:      "Number of source files loaded, by handler.",
		},
		[]string{"handler"},
	)

	rowsProjected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkify",
			Name:      "rows_projected_total",
			Help:      "Number of rows handed to loaders, by destination table.",
		},
		[]string{"table"},
	)
)

// WriteMetrics writes the current metrics to path in the text exposition format,
// suitable for the node exporter textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return xerrors.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}
