package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// IngestionLogger provides dedicated logging for the odds ingestion pipeline.
type IngestionLogger struct {
	*logrus.Entry
}

// NewIngestionLogger creates a new ingestion logger.
func NewIngestionLogger(baseLogger *logrus.Logger) *IngestionLogger {
	return &IngestionLogger{
		Entry: baseLogger.WithField("component", "ingestion"),
	}
}

// LogRunCompleted logs the outcome of one ingestion pass.
func (il *IngestionLogger) LogRunCompleted(source, kind string, races, horses, snapshots, failures int, duration time.Duration) {
	entry := il.WithFields(logrus.Fields{
		"source":      source,
		"kind":        kind,
		"races":       races,
		"horses":      horses,
		"snapshots":   snapshots,
		"failures":    failures,
		"duration_ms": duration.Milliseconds(),
	})
	if failures > 0 {
		entry.Warn("Ingestion run completed with failures")
		return
	}
	entry.Info("Ingestion run completed")
}

// LogScratch logs a horse newly marked as scratched or disqualified.
func (il *IngestionLogger) LogScratch(raceID, horseName string, pp int) {
	il.WithFields(logrus.Fields{
		"race_id":    raceID,
		"horse_name": horseName,
		"pp":         pp,
	}).Info("Horse scratched")
}

// LogRaceFailure logs a race that could not be ingested.
func (il *IngestionLogger) LogRaceFailure(source, raceSourceID string, err error) {
	il.WithFields(logrus.Fields{
		"source":         source,
		"race_source_id": raceSourceID,
	}).WithError(err).Error("Race ingestion failed")
}

// LogResultsDeclared logs a race result marked official.
func (il *IngestionLogger) LogResultsDeclared(raceID string, finish []int) {
	il.WithFields(logrus.Fields{
		"race_id": raceID,
		"finish":  finish,
	}).Info("Race result declared")
}
