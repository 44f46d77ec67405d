package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/repository"
)

const (
	defaultLiveWindow = 12 * time.Hour
	liveLookback      = time.Hour
)

// HorsePublisher fans out a race's current horse list to ticket sessions
type HorsePublisher interface {
	PublishHorses(ctx context.Context, raceID uuid.UUID, horses []models.Horse) error
}

// Transactor runs fn inside a database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

type noTransaction struct{}

func (noTransaction) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// IngestionService handles the card, live odds and results workflows
type IngestionService struct {
	sources    map[string]datasource.DataSource
	races      repository.RaceRepository
	horses     repository.HorseRepository
	odds       repository.OddsRepository
	results    repository.RaceResultRepository
	tx         Transactor
	validator  *DataValidator
	normalizer *DataNormalizer
	publisher  HorsePublisher
	events     *logger.IngestionLogger
	logger     *logrus.Entry
	liveWindow time.Duration
	now        func() time.Time
}

// NewIngestionService creates a new ingestion service. tx and publisher may be nil.
func NewIngestionService(
	sources []datasource.DataSource,
	repos *repository.Repositories,
	tx Transactor,
	publisher HorsePublisher,
	log *logrus.Logger,
) *IngestionService {
	log = logger.OrDiscard(log)
	if tx == nil {
		tx = noTransaction{}
	}

	bySource := make(map[string]datasource.DataSource, len(sources))
	for _, src := range sources {
		bySource[src.Name()] = src
	}

	return &IngestionService{
		sources:    bySource,
		races:      repos.Race,
		horses:     repos.Horse,
		odds:       repos.Odds,
		results:    repos.RaceResult,
		tx:         tx,
		validator:  NewDataValidator(log),
		normalizer: NewDataNormalizer(log),
		publisher:  publisher,
		events:     logger.NewIngestionLogger(log),
		logger:     log.WithField("component", "ingestion_service"),
		liveWindow: defaultLiveWindow,
		now:        time.Now,
	}
}

// Sources returns the names of the configured data sources
func (s *IngestionService) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	return names
}

func (s *IngestionService) source(name string) (datasource.DataSource, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("data source not found: %s", name)
	}
	return src, nil
}

// IngestCard fetches and stores the card for every race posting between start and end
func (s *IngestionService) IngestCard(ctx context.Context, sourceName string, start, end time.Time) (*IngestionMetrics, error) {
	m := NewIngestionMetrics(sourceName, KindCard)

	source, err := s.source(sourceName)
	if err != nil {
		return nil, err
	}

	races, err := source.FetchRaces(ctx, start, end)
	if err != nil {
		m.RecordError()
		s.finish(m, err)
		return m, fmt.Errorf("failed to fetch races: %w", err)
	}

	m.TotalRaces = len(races)
	for i := range races {
		if ctx.Err() != nil {
			break
		}
		s.ingestRace(ctx, sourceName, &races[i], m)
	}

	s.finish(m, ctx.Err())
	return m, ctx.Err()
}

// IngestLiveOdds refreshes odds and scratches for races still open for wagering
func (s *IngestionService) IngestLiveOdds(ctx context.Context, sourceName string) (*IngestionMetrics, error) {
	m := NewIngestionMetrics(sourceName, KindLive)

	source, err := s.source(sourceName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	upcoming, err := s.races.GetByDateRange(ctx, now.Add(-liveLookback), now.Add(s.liveWindow))
	if err != nil {
		m.RecordError()
		s.finish(m, err)
		return m, fmt.Errorf("failed to load upcoming races: %w", err)
	}

	for _, race := range upcoming {
		if !race.IsUpcoming() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		m.TotalRaces++

		details, err := source.FetchRaceDetails(ctx, race.SourceID)
		if err != nil {
			m.RecordError()
			s.events.LogRaceFailure(sourceName, race.SourceID, err)
			continue
		}
		s.ingestRace(ctx, sourceName, details, m)
	}

	s.finish(m, ctx.Err())
	return m, ctx.Err()
}

// SyncResults fetches results for races past post time that are not yet official
func (s *IngestionService) SyncResults(ctx context.Context, sourceName string) (*IngestionMetrics, error) {
	m := NewIngestionMetrics(sourceName, KindResults)

	source, err := s.source(sourceName)
	if err != nil {
		return nil, err
	}

	awaiting, err := s.races.GetAwaitingResults(ctx, s.now())
	if err != nil {
		m.RecordError()
		s.finish(m, err)
		return m, fmt.Errorf("failed to load races awaiting results: %w", err)
	}

	m.TotalRaces = len(awaiting)
	for _, race := range awaiting {
		if ctx.Err() != nil {
			break
		}
		if err := s.syncResult(ctx, source, race, m); err != nil {
			m.RecordError()
			s.events.LogRaceFailure(sourceName, race.SourceID, err)
		}
	}

	s.finish(m, ctx.Err())
	return m, ctx.Err()
}

// ingestRace runs normalize, validate, persist and publish for one race.
// Failures are counted on m rather than returned.
func (s *IngestionService) ingestRace(ctx context.Context, sourceName string, data *datasource.RaceData, m *IngestionMetrics) {
	race, err := s.normalizer.NormalizeRace(data)
	if err != nil {
		m.RecordError()
		s.events.LogRaceFailure(sourceName, data.SourceID, err)
		return
	}

	if errs := s.validator.ValidateRace(race); len(errs) > 0 {
		m.RecordValidationError()
		s.events.LogRaceFailure(sourceName, data.SourceID, fmt.Errorf("validation failed: %v", errs))
		return
	}

	var before, after []models.Horse
	snapshots := 0
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.races.Upsert(ctx, race); err != nil {
			return err
		}

		var err error
		before, err = s.horses.GetByRaceID(ctx, race.ID)
		if err != nil {
			return err
		}

		if err := s.horses.UpsertForRace(ctx, race.ID, race.Horses); err != nil {
			return err
		}

		after, err = s.horses.GetByRaceID(ctx, race.ID)
		if err != nil {
			return err
		}

		snaps := s.snapshotsFor(after)
		snapshots = len(snaps)
		return s.odds.InsertBatch(ctx, snaps)
	})
	if err != nil {
		m.RecordError()
		s.events.LogRaceFailure(sourceName, data.SourceID, err)
		return
	}

	m.RecordRace(len(after), snapshots)

	for _, pp := range newlyScratched(before, after) {
		m.RecordScratch()
		s.events.LogScratch(race.ID.String(), horseName(after, pp), pp)
	}

	if !models.HorsesChanged(before, after) || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishHorses(ctx, race.ID, after); err != nil {
		s.logger.WithError(err).WithField("race_id", race.ID).Warn("Failed to publish horse list")
		return
	}
	m.RecordPublished()
}

func (s *IngestionService) syncResult(ctx context.Context, source datasource.DataSource, race *models.Race, m *IngestionMetrics) error {
	data, err := source.FetchResults(ctx, race.SourceID)
	if errors.Is(err, datasource.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch results: %w", err)
	}

	field, err := s.horses.GetByRaceID(ctx, race.ID)
	if err != nil {
		return fmt.Errorf("failed to load field: %w", err)
	}

	if errs := s.validator.ValidateResult(data, field); len(errs) > 0 {
		m.RecordValidationError()
		return fmt.Errorf("result validation failed: %v", errs)
	}

	result := &models.RaceResult{
		RaceID:     race.ID,
		Finish:     data.Finish,
		Official:   data.Official,
		DeclaredAt: data.DeclaredAt,
		Payoffs:    make([]models.WagerPayoff, 0, len(data.Payoffs)),
	}
	for _, p := range data.Payoffs {
		result.Payoffs = append(result.Payoffs, models.WagerPayoff{
			BetType:     p.BetType,
			Combination: p.Combination,
			Payoff:      p.Payoff,
		})
	}

	status := models.RaceStatusClosed
	if result.Official {
		status = models.RaceStatusOfficial
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.results.Upsert(ctx, result); err != nil {
			return err
		}
		return s.races.UpdateStatus(ctx, race.ID, status)
	})
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	m.RecordResult()
	if result.Official {
		s.events.LogResultsDeclared(race.ID.String(), result.Finish)
	}
	return nil
}

// snapshotsFor records the current odds of every horse with a price
func (s *IngestionService) snapshotsFor(horses []models.Horse) []*models.OddsSnapshot {
	at := s.now().UTC()
	snaps := make([]*models.OddsSnapshot, 0, len(horses))
	for i := range horses {
		if horses[i].LiveOdds.IsZero() && !horses[i].Disqualified {
			continue
		}
		snaps = append(snaps, models.SnapshotFromHorse(&horses[i], at))
	}
	return snaps
}

func (s *IngestionService) finish(m *IngestionMetrics, err error) {
	m.Finish(err)
	s.events.LogRunCompleted(m.Source, m.Kind, m.SuccessfulRaces, m.TotalHorses, m.Snapshots, m.Failures(), m.Duration)
}

// newlyScratched returns post positions disqualified in after but not in before
func newlyScratched(before, after []models.Horse) []int {
	was := make(map[int]bool, len(before))
	for _, h := range before {
		was[h.PP] = h.Disqualified
	}
	var pps []int
	for _, h := range after {
		if h.Disqualified && !was[h.PP] {
			pps = append(pps, h.PP)
		}
	}
	return pps
}

func horseName(horses []models.Horse, pp int) string {
	for _, h := range horses {
		if h.PP == pp {
			return h.Name
		}
	}
	return ""
}
