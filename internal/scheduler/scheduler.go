// Package scheduler runs the ingestion jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/service"
)

// MinPollingInterval is the shortest live odds polling interval accepted
const MinPollingInterval = 5 * time.Second

// Ingestor is the part of the ingestion service the scheduler drives
type Ingestor interface {
	IngestCard(ctx context.Context, sourceName string, start, end time.Time) (*service.IngestionMetrics, error)
	IngestLiveOdds(ctx context.Context, sourceName string) (*service.IngestionMetrics, error)
	SyncResults(ctx context.Context, sourceName string) (*service.IngestionMetrics, error)
}

// Scheduler manages scheduled data ingestion jobs
type Scheduler struct {
	cron            *cron.Cron
	ingestor        Ingestor
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler. A job still running when its next
// tick arrives skips that tick.
func NewScheduler(ingestor Ingestor, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ingestor:        ingestor,
		logger:          logger.OrDiscard(log).WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

func (s *Scheduler) add(spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	return nil
}

// ScheduleCardSync refreshes the race card from today through daysAhead
func (s *Scheduler) ScheduleCardSync(cronExpression, sourceName string, daysAhead int) error {
	err := s.add(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.syncCard(ctx, sourceName, daysAhead)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"cron": cronExpression, "source": sourceName}).Info("Scheduled card sync")
	return nil
}

// ScheduleLivePolling polls live odds every interval
func (s *Scheduler) ScheduleLivePolling(interval time.Duration, sourceName string) error {
	if interval < MinPollingInterval {
		interval = MinPollingInterval
	}

	err := s.add(fmt.Sprintf("@every %s", interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval-time.Second)
		defer cancel()

		if _, err := s.ingestor.IngestLiveOdds(ctx, sourceName); err != nil {
			s.logger.WithError(err).WithField("source", sourceName).Error("Live odds polling failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"interval": interval.String(), "source": sourceName}).Info("Scheduled live odds polling")
	return nil
}

// ScheduleResultsSync collects results for races past post time
func (s *Scheduler) ScheduleResultsSync(cronExpression, sourceName string) error {
	err := s.add(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := s.ingestor.SyncResults(ctx, sourceName); err != nil {
			s.logger.WithError(err).WithField("source", sourceName).Error("Results sync failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"cron": cronExpression, "source": sourceName}).Info("Scheduled results sync")
	return nil
}

// RunOnce runs every job for sourceName a single time, in order
func (s *Scheduler) RunOnce(ctx context.Context, sourceName string, daysAhead int) error {
	var errs []error
	if err := s.syncCard(ctx, sourceName, daysAhead); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.ingestor.IngestLiveOdds(ctx, sourceName); err != nil {
		errs = append(errs, fmt.Errorf("live odds: %w", err))
	}
	if _, err := s.ingestor.SyncResults(ctx, sourceName); err != nil {
		errs = append(errs, fmt.Errorf("results: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) syncCard(ctx context.Context, sourceName string, daysAhead int) error {
	start := s.now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, daysAhead+1)

	m, err := s.ingestor.IngestCard(ctx, sourceName, start, end)
	if err != nil {
		s.logger.WithError(err).WithField("source", sourceName).Error("Card sync failed")
		return fmt.Errorf("card: %w", err)
	}
	s.logger.WithField("source", sourceName).Infof("Card sync completed: %s", m.String())
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs still running after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, entry := range s.entries() {
		if nextRun.IsZero() || entry.Next.Before(nextRun) {
			nextRun = entry.Next
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries()
}

func (s *Scheduler) entries() []cron.Entry {
	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
