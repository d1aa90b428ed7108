package background

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors of one Coordinator. With a nil Registerer
// they still count but are never exported.
type metrics struct {
	pagesScanned  prometheus.Counter
	matches       prometheus.Counter
	duplicates    prometheus.Counter
	faults        prometheus.Counter
	checkpoints   *prometheus.CounterVec
	checkpoint    prometheus.Gauge
	activeWorkers prometheus.Gauge
	droppedEvents prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, name string) *metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"scan": name}
	return &metrics{
		pagesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "pages_scanned_total",
			Help:        "Pages scanned by background workers",
			ConstLabels: labels,
		}),
		matches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "matches_total",
			Help:        "New matches persisted",
			ConstLabels: labels,
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "duplicate_matches_total",
			Help:        "Matches discarded because they were already persisted",
			ConstLabels: labels,
		}),
		faults: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "faults_total",
			Help:        "Pages skipped after a worker fault",
			ConstLabels: labels,
		}),
		// Labels: status (ok, failed)
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "checkpoints_total",
			Help:        "Checkpoint writes by outcome",
			ConstLabels: labels,
		}, []string{"status"}),
		checkpoint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "checkpoint_address",
			Help:        "Last saved resume address",
			ConstLabels: labels,
		}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "active_workers",
			Help:        "Workers currently scanning",
			ConstLabels: labels,
		}),
		droppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "babel",
			Subsystem:   "background",
			Name:        "dropped_events_total",
			Help:        "Events dropped because the subscriber fell behind",
			ConstLabels: labels,
		}),
	}
}
