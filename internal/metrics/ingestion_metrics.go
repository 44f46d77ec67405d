package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion counter vectors
var (
	IngestionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_runs_total",
		Help:      "Total number of ingestion runs by kind and outcome",
	}, []string{"source", "kind", "outcome"})

	IngestionRacesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_races_total",
		Help:      "Total number of races stored",
	}, []string{"source"})

	IngestionHorsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_horses_total",
		Help:      "Total number of horses stored",
	}, []string{"source"})

	IngestionErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_errors_total",
		Help:      "Total number of ingestion errors by type",
	}, []string{"source", "type"})

	HorseListUpdatesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "horse_list_updates_published_total",
		Help:      "Total number of horse list updates published to subscribers",
	})
)

// Ingestion histogram vectors
var (
	IngestionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingestion_duration_seconds",
		Help:      "Duration of ingestion runs in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"source", "kind"})
)

// RecordIngestionRun records a completed ingestion run.
func RecordIngestionRun(source, kind string, races, horses int, durationSeconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	IngestionRunsTotal.WithLabelValues(source, kind, outcome).Inc()
	IngestionRacesTotal.WithLabelValues(source).Add(float64(races))
	IngestionHorsesTotal.WithLabelValues(source).Add(float64(horses))
	IngestionDuration.WithLabelValues(source, kind).Observe(durationSeconds)
}

// RecordIngestionError records an ingestion error of the given type.
func RecordIngestionError(source, errType string) {
	IngestionErrorsTotal.WithLabelValues(source, errType).Inc()
}

// RecordHorseListPublished records a horse list update fanned out to subscribers.
func RecordHorseListPublished() {
	HorseListUpdatesPublished.Inc()
}
