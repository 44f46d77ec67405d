package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/repository"
)

// MockDataSource mocks a racing data provider
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) FetchRaces(ctx context.Context, start, end time.Time) ([]datasource.RaceData, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]datasource.RaceData), args.Error(1)
}

func (m *MockDataSource) FetchRaceDetails(ctx context.Context, raceID string) (*datasource.RaceData, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*datasource.RaceData), args.Error(1)
}

func (m *MockDataSource) FetchResults(ctx context.Context, raceID string) (*datasource.ResultData, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*datasource.ResultData), args.Error(1)
}

func (m *MockDataSource) Name() string    { return "racing_api" }
func (m *MockDataSource) IsEnabled() bool { return true }

// MockPublisher mocks the horse list fan-out
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishHorses(ctx context.Context, raceID uuid.UUID, horses []models.Horse) error {
	args := m.Called(ctx, raceID, horses)
	return args.Error(0)
}

// memStore is an in-memory stand-in for the postgres repositories
type memStore struct {
	races     map[uuid.UUID]*models.Race
	horses    map[uuid.UUID]map[int]models.Horse
	snapshots []*models.OddsSnapshot
	results   map[uuid.UUID]*models.RaceResult
	failHorse error
}

func newMemStore() *memStore {
	return &memStore{
		races:   map[uuid.UUID]*models.Race{},
		horses:  map[uuid.UUID]map[int]models.Horse{},
		results: map[uuid.UUID]*models.RaceResult{},
	}
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Race:       memRaces{s},
		Horse:      memHorses{s},
		Odds:       memOdds{s},
		RaceResult: memResults{s},
	}
}

type memRaces struct{ s *memStore }

func (r memRaces) Upsert(ctx context.Context, race *models.Race) error {
	if race.ID == uuid.Nil {
		race.ID = uuid.New()
	}
	for _, existing := range r.s.races {
		if existing.SourceID == race.SourceID {
			race.ID = existing.ID
			if existing.Status == models.RaceStatusOfficial || existing.Status == models.RaceStatusCancelled {
				race.Status = existing.Status
			}
		}
	}
	stored := *race
	stored.Horses = nil
	r.s.races[race.ID] = &stored
	return nil
}

func (r memRaces) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	race, ok := r.s.races[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return race, nil
}

func (r memRaces) GetBySourceID(ctx context.Context, sourceID string) (*models.Race, error) {
	for _, race := range r.s.races {
		if race.SourceID == sourceID {
			return race, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r memRaces) GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error) {
	return r.GetByDateRange(ctx, time.Now(), time.Now().Add(24*time.Hour))
}

func (r memRaces) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error) {
	var out []*models.Race
	for _, race := range r.s.races {
		if !race.PostTime.Before(start) && !race.PostTime.After(end) {
			out = append(out, race)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostTime.Before(out[j].PostTime) })
	return out, nil
}

func (r memRaces) GetAwaitingResults(ctx context.Context, cutoff time.Time) ([]*models.Race, error) {
	var out []*models.Race
	for _, race := range r.s.races {
		if race.PostTime.Before(cutoff) && race.Status != models.RaceStatusOfficial && race.Status != models.RaceStatusCancelled {
			out = append(out, race)
		}
	}
	return out, nil
}

func (r memRaces) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RaceStatus) error {
	race, ok := r.s.races[id]
	if !ok {
		return models.ErrNotFound
	}
	race.Status = status
	return nil
}

type memHorses struct{ s *memStore }

func (r memHorses) UpsertForRace(ctx context.Context, raceID uuid.UUID, horses []*models.Horse) error {
	if r.s.failHorse != nil {
		return r.s.failHorse
	}
	field, ok := r.s.horses[raceID]
	if !ok {
		field = map[int]models.Horse{}
		r.s.horses[raceID] = field
	}
	for _, h := range horses {
		h.RaceID = raceID
		if existing, ok := field[h.PP]; ok {
			h.ID = existing.ID
			h.Disqualified = h.Disqualified || existing.Disqualified
		} else if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		field[h.PP] = *h
	}
	return nil
}

func (r memHorses) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error) {
	out := []models.Horse{}
	for _, h := range r.s.horses[raceID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PP < out[j].PP })
	return out, nil
}

func (r memHorses) GetByID(ctx context.Context, id uuid.UUID) (*models.Horse, error) {
	for _, field := range r.s.horses {
		for _, h := range field {
			if h.ID == id {
				return &h, nil
			}
		}
	}
	return nil, models.ErrNotFound
}

type memOdds struct{ s *memStore }

func (r memOdds) InsertBatch(ctx context.Context, odds []*models.OddsSnapshot) error {
	r.s.snapshots = append(r.s.snapshots, odds...)
	return nil
}

func (r memOdds) GetLatest(ctx context.Context, horseID uuid.UUID) (*models.OddsSnapshot, error) {
	return nil, models.ErrNotFound
}

func (r memOdds) GetTimeSeriesForHorse(ctx context.Context, horseID uuid.UUID, start, end time.Time) ([]*models.OddsSnapshot, error) {
	return nil, nil
}

type memResults struct{ s *memStore }

func (r memResults) Upsert(ctx context.Context, result *models.RaceResult) error {
	r.s.results[result.RaceID] = result
	return nil
}

func (r memResults) GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceResult, error) {
	result, ok := r.s.results[raceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return result, nil
}

func odds(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func cardRace(post time.Time) datasource.RaceData {
	return datasource.RaceData{
		SourceID:   "SA-20240504-7",
		Track:      "Santa Anita",
		RaceNumber: 7,
		PostTime:   post,
		Status:     "open",
		Horses: []datasource.HorseData{
			{PP: 1, Name: "Dust Devil", LiveOdds: odds("2.5")},
			{PP: 2, Name: "Night Shift", LiveOdds: odds("8")},
			{PP: 3, Name: "Paper Moon", LiveOdds: odds("4")},
		},
	}
}

func newTestService(store *memStore, src *MockDataSource, pub HorsePublisher) *IngestionService {
	return NewIngestionService([]datasource.DataSource{src}, store.repositories(), nil, pub, nil)
}

func TestIngestCardStoresAndPublishes(t *testing.T) {
	store := newMemStore()
	src := &MockDataSource{}
	pub := &MockPublisher{}
	svc := newTestService(store, src, pub)

	post := time.Now().Add(2 * time.Hour).UTC()
	bad := cardRace(post)
	bad.SourceID = "SA-20240504-8"
	bad.Horses = nil

	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).
		Return([]datasource.RaceData{cardRace(post), bad}, nil)
	pub.On("PublishHorses", mock.Anything, mock.Anything, mock.MatchedBy(func(h []models.Horse) bool {
		return len(h) == 3
	})).Return(nil).Once()

	m, err := svc.IngestCard(context.Background(), "racing_api", post, post.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalRaces)
	assert.Equal(t, 1, m.SuccessfulRaces)
	assert.Equal(t, 1, m.ValidationErrors)
	assert.Equal(t, 3, m.TotalHorses)
	assert.Equal(t, 3, m.Snapshots)
	assert.Equal(t, 1, m.Published)
	assert.Len(t, store.races, 1)
	assert.Len(t, store.snapshots, 3)
	pub.AssertExpectations(t)

	// Same card again: nothing changed, nothing published
	m, err = svc.IngestCard(context.Background(), "racing_api", post, post.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Published)
	assert.Len(t, store.races, 1, "upsert by source id")
	pub.AssertNumberOfCalls(t, "PublishHorses", 1)
}

func TestIngestLiveOddsPublishesScratch(t *testing.T) {
	store := newMemStore()
	src := &MockDataSource{}
	pub := &MockPublisher{}
	svc := newTestService(store, src, pub)

	post := time.Now().Add(30 * time.Minute).UTC()
	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).Return([]datasource.RaceData{cardRace(post)}, nil)
	pub.On("PublishHorses", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.IngestCard(context.Background(), "racing_api", post, post)
	require.NoError(t, err)

	live := cardRace(post)
	live.Horses[1].Scratched = true
	live.Horses[1].LiveOdds = nil
	src.On("FetchRaceDetails", mock.Anything, "SA-20240504-7").Return(&live, nil)

	m, err := svc.IngestLiveOdds(context.Background(), "racing_api")
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalRaces)
	assert.Equal(t, 1, m.Scratches)
	assert.Equal(t, 1, m.Published)

	last := pub.Calls[len(pub.Calls)-1].Arguments.Get(2).([]models.Horse)
	require.Len(t, last, 3)
	assert.True(t, last[1].Disqualified)
	assert.Len(t, models.EligibleHorses(last), 2)

	// A later feed without the scratch flag cannot reinstate the horse
	src.ExpectedCalls = nil
	again := cardRace(post)
	src.On("FetchRaceDetails", mock.Anything, "SA-20240504-7").Return(&again, nil)
	m, err = svc.IngestLiveOdds(context.Background(), "racing_api")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Scratches)
	horses, _ := store.repositories().Horse.GetByRaceID(context.Background(), last[1].RaceID)
	assert.True(t, horses[1].Disqualified)
}

func TestIngestLiveOddsCountsFetchFailures(t *testing.T) {
	store := newMemStore()
	src := &MockDataSource{}
	svc := newTestService(store, src, nil)

	race := &models.Race{SourceID: "X-1", Track: "Del Mar", RaceNumber: 1, PostTime: time.Now().Add(time.Hour), Status: models.RaceStatusOpen}
	require.NoError(t, store.repositories().Race.Upsert(context.Background(), race))
	src.On("FetchRaceDetails", mock.Anything, "X-1").Return(nil, errors.New("timeout"))

	m, err := svc.IngestLiveOdds(context.Background(), "racing_api")
	require.NoError(t, err, "per-race failures are not fatal")
	assert.Equal(t, 1, m.Errors)
}

func TestIngestCardPersistenceFailure(t *testing.T) {
	store := newMemStore()
	store.failHorse = errors.New("connection reset")
	src := &MockDataSource{}
	svc := newTestService(store, src, nil)

	post := time.Now().Add(time.Hour)
	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).Return([]datasource.RaceData{cardRace(post)}, nil)

	m, err := svc.IngestCard(context.Background(), "racing_api", post, post)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 0, m.SuccessfulRaces)
}

func TestIngestUnknownSourceAndFetchError(t *testing.T) {
	src := &MockDataSource{}
	svc := newTestService(newMemStore(), src, nil)

	_, err := svc.IngestCard(context.Background(), "tote_feed", time.Now(), time.Now())
	assert.Error(t, err)

	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	m, err := svc.IngestCard(context.Background(), "racing_api", time.Now(), time.Now())
	require.Error(t, err)
	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, []string{"racing_api"}, svc.Sources())
}

func TestSyncResults(t *testing.T) {
	store := newMemStore()
	src := &MockDataSource{}
	svc := newTestService(store, src, nil)
	ctx := context.Background()

	post := time.Now().Add(-20 * time.Minute).UTC()
	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).Return([]datasource.RaceData{cardRace(post)}, nil)
	_, err := svc.IngestCard(ctx, "racing_api", post, post)
	require.NoError(t, err)

	pending := &models.Race{SourceID: "SA-20240504-6", Track: "Santa Anita", RaceNumber: 6, PostTime: post.Add(-30 * time.Minute), Status: models.RaceStatusClosed}
	require.NoError(t, store.repositories().Race.Upsert(ctx, pending))

	src.On("FetchResults", mock.Anything, "SA-20240504-7").Return(&datasource.ResultData{
		Finish:     []int{3, 1, 2},
		Official:   true,
		DeclaredAt: time.Now(),
		Payoffs:    []datasource.PayoffData{{BetType: "win", Combination: "3", Payoff: decimal.RequireFromString("10.00")}},
	}, nil)
	src.On("FetchResults", mock.Anything, "SA-20240504-6").
		Return(nil, datasource.NewDataSourceError("racing_api", datasource.ErrCodeNotFound, "results not found", nil))

	m, err := svc.SyncResults(ctx, "racing_api")
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalRaces)
	assert.Equal(t, 1, m.Results)
	assert.Equal(t, 0, m.Errors, "undeclared results are retried later")

	race, err := store.repositories().Race.GetBySourceID(ctx, "SA-20240504-7")
	require.NoError(t, err)
	assert.Equal(t, models.RaceStatusOfficial, race.Status)
	assert.Equal(t, 3, store.results[race.ID].Winner())

	awaiting, _ := store.repositories().Race.GetAwaitingResults(ctx, time.Now())
	assert.Len(t, awaiting, 1)
}

func TestSyncResultsRejectsUnknownFinisher(t *testing.T) {
	store := newMemStore()
	src := &MockDataSource{}
	svc := newTestService(store, src, nil)
	ctx := context.Background()

	post := time.Now().Add(-20 * time.Minute).UTC()
	src.On("FetchRaces", mock.Anything, mock.Anything, mock.Anything).Return([]datasource.RaceData{cardRace(post)}, nil)
	_, err := svc.IngestCard(ctx, "racing_api", post, post)
	require.NoError(t, err)

	src.On("FetchResults", mock.Anything, "SA-20240504-7").Return(&datasource.ResultData{Finish: []int{9}, Official: true}, nil)

	m, err := svc.SyncResults(ctx, "racing_api")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ValidationErrors)
	assert.Empty(t, store.results)
}

func TestNewlyScratched(t *testing.T) {
	before := []models.Horse{{PP: 1}, {PP: 2, Disqualified: true}}
	after := []models.Horse{{PP: 1, Disqualified: true}, {PP: 2, Disqualified: true}, {PP: 3, Disqualified: true}}
	assert.Equal(t, []int{1, 3}, newlyScratched(before, after))
}
