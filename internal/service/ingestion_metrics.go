package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/trackside/internal/metrics"
)

// Ingestion run kinds
const (
	KindCard    = "card"
	KindLive    = "live"
	KindResults = "results"
)

// IngestionMetrics tracks statistics about a single ingestion run
type IngestionMetrics struct {
	mu               sync.RWMutex
	Source           string
	Kind             string
	StartTime        time.Time
	Duration         time.Duration
	TotalRaces       int
	SuccessfulRaces  int
	TotalHorses      int
	Snapshots        int
	Scratches        int
	Published        int
	Results          int
	ValidationErrors int
	Errors           int
}

// NewIngestionMetrics creates a new metrics tracker for one run
func NewIngestionMetrics(source, kind string) *IngestionMetrics {
	return &IngestionMetrics{
		Source:    source,
		Kind:      kind,
		StartTime: time.Now(),
	}
}

// RecordRace records a race stored with its horses and snapshots
func (m *IngestionMetrics) RecordRace(horses, snapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessfulRaces++
	m.TotalHorses += horses
	m.Snapshots += snapshots
}

// RecordScratch increments the newly-scratched count
func (m *IngestionMetrics) RecordScratch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scratches++
}

// RecordPublished increments the horse list updates fanned out
func (m *IngestionMetrics) RecordPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published++
}

// RecordResult increments the stored results count
func (m *IngestionMetrics) RecordResult() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results++
}

// RecordError increments error count
func (m *IngestionMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors++
	metrics.RecordIngestionError(m.Source, "system")
}

// RecordValidationError increments validation error count
func (m *IngestionMetrics) RecordValidationError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
	metrics.RecordIngestionError(m.Source, "validation")
}

// Failures returns the number of races that could not be stored
func (m *IngestionMetrics) Failures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Errors + m.ValidationErrors
}

// Finish stamps the duration and exports the run to Prometheus
func (m *IngestionMetrics) Finish(runErr error) {
	m.mu.Lock()
	m.Duration = time.Since(m.StartTime)
	races, horses, duration := m.SuccessfulRaces, m.TotalHorses, m.Duration
	m.mu.Unlock()

	metrics.RecordIngestionRun(m.Source, m.Kind, races, horses, duration.Seconds(), runErr)
}

// String returns a formatted string representation of metrics
func (m *IngestionMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	successRate := float64(0)
	if m.TotalRaces > 0 {
		successRate = float64(m.SuccessfulRaces) / float64(m.TotalRaces) * 100
	}

	return fmt.Sprintf(
		"IngestionMetrics{Kind=%s, Total=%d, Successful=%d (%.1f%%), Horses=%d, Snapshots=%d, Scratches=%d, Published=%d, Results=%d, ValidationErrors=%d, Errors=%d, Duration=%v}",
		m.Kind,
		m.TotalRaces,
		m.SuccessfulRaces,
		successRate,
		m.TotalHorses,
		m.Snapshots,
		m.Scratches,
		m.Published,
		m.Results,
		m.ValidationErrors,
		m.Errors,
		m.Duration,
	)
}
