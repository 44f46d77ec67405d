package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/feed"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/session"
	"github.com/yourusername/trackside/internal/submission"
	"github.com/yourusername/trackside/internal/wager"
)

type fakeRaces struct {
	races     map[uuid.UUID]*models.Race
	lastLimit int
	lastStart time.Time
}

func (f *fakeRaces) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	race, ok := f.races[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return race, nil
}

func (f *fakeRaces) GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error) {
	f.lastLimit = limit
	out := make([]*models.Race, 0, len(f.races))
	for _, r := range f.races {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRaces) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error) {
	f.lastStart = start
	return nil, nil
}

type fakeResults struct {
	result *models.RaceResult
}

func (f fakeResults) GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceResult, error) {
	if f.result == nil || f.result.RaceID != raceID {
		return nil, models.ErrNotFound
	}
	return f.result, nil
}

type fakeOdds struct {
	series    []*models.OddsSnapshot
	lastStart time.Time
}

func (f *fakeOdds) GetTimeSeriesForHorse(ctx context.Context, horseID uuid.UUID, start, end time.Time) ([]*models.OddsSnapshot, error) {
	f.lastStart = start
	return f.series, nil
}

type horseLoader []models.Horse

func (h horseLoader) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error) {
	return h, nil
}

type recordingSubmitter struct {
	tickets []submission.TicketSubmission
	err     error
}

func (r *recordingSubmitter) Submit(ctx context.Context, ticket submission.TicketSubmission) error {
	r.tickets = append(r.tickets, ticket)
	return r.err
}

type testAPI struct {
	handler   http.Handler
	race      *models.Race
	feed      *feed.Feed
	races     *fakeRaces
	odds      *fakeOdds
	submitter *recordingSubmitter
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	race := &models.Race{
		ID:         uuid.New(),
		SourceID:   "SA-20240504-5",
		Track:      "Santa Anita",
		RaceNumber: 5,
		PostTime:   time.Now().Add(time.Hour),
		Status:     models.RaceStatusOpen,
	}
	horses := horseLoader{
		{ID: uuid.New(), RaceID: race.ID, PP: 1, Name: "Dust Devil", LiveOdds: decimal.NewFromInt(2)},
		{ID: uuid.New(), RaceID: race.ID, PP: 2, Name: "Night Shift", LiveOdds: decimal.NewFromInt(5)},
		{ID: uuid.New(), RaceID: race.ID, PP: 3, Name: "Paper Moon", LiveOdds: decimal.NewFromInt(9)},
		{ID: uuid.New(), RaceID: race.ID, PP: 4, Name: "Gate Crasher", LiveOdds: decimal.NewFromInt(12), Disqualified: true},
	}

	f := feed.New(horses, nil)
	races := &fakeRaces{races: map[uuid.UUID]*models.Race{race.ID: race}}
	sub := &recordingSubmitter{}
	odds := &fakeOdds{series: []*models.OddsSnapshot{
		{Time: time.Now(), RaceID: race.ID, HorseID: horses[0].ID, Odds: decimal.RequireFromString("2.5")},
	}}
	store := session.NewStore(f, nil, time.Minute, time.Minute)
	t.Cleanup(store.Flush)

	srv, err := NewServer(config.APIConfig{Port: 8080, AllowedOrigins: []string{"https://dash.example.com"}}, Deps{
		Races:     races,
		Results:   fakeResults{result: &models.RaceResult{RaceID: race.ID, Finish: []int{2, 1, 3}, Official: true}},
		Horses:    f,
		Odds:      odds,
		Sessions:  store,
		Submitter: sub,
	})
	require.NoError(t, err)

	return &testAPI{handler: srv.Router(), race: race, feed: f, races: races, odds: odds, submitter: sub}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) openTicket(t *testing.T) ticketResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/races/"+a.race.ID.String()+"/tickets", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ticketResponse](t, rec)
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(config.APIConfig{}, Deps{})
	assert.Error(t, err)
}

func TestListRaces(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/races", "")
	require.Equal(t, http.StatusOK, rec.Code)
	races := decode[[]models.Race](t, rec)
	require.Len(t, races, 1)
	assert.Equal(t, "Santa Anita", races[0].Track)
	assert.Equal(t, defaultRaceLimit, a.races.lastLimit)

	rec = a.do(t, http.MethodGet, "/api/v1/races?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRaceLimit, a.races.lastLimit)

	rec = a.do(t, http.MethodGet, "/api/v1/races?date=2024-05-04", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), a.races.lastStart)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/races?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/races?date=May", "").Code)
}

func TestGetRace(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/races/"+a.race.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "SA-20240504-5", body["source_id"])
	assert.Len(t, body["field"], 4)

	rec = a.do(t, http.MethodGet, "/api/v1/races/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "not found")

	rec = a.do(t, http.MethodGet, "/api/v1/races/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHorsesAndResults(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/races/"+a.race.ID.String()+"/horses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	horses := decode[[]models.Horse](t, rec)
	require.Len(t, horses, 4)
	assert.True(t, horses[3].Disqualified)

	rec = a.do(t, http.MethodGet, "/api/v1/races/"+a.race.ID.String()+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[models.RaceResult](t, rec)
	assert.Equal(t, 2, result.Winner())

	rec = a.do(t, http.MethodGet, "/api/v1/races/"+uuid.NewString()+"/results", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOddsHistory(t *testing.T) {
	a := newTestAPI(t)
	path := "/api/v1/races/" + a.race.ID.String() + "/horses/" + uuid.NewString() + "/odds"

	rec := a.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	series := decode[[]models.OddsSnapshot](t, rec)
	require.Len(t, series, 1)
	assert.True(t, series[0].Odds.Equal(decimal.RequireFromString("2.5")))

	rec = a.do(t, http.MethodGet, path+"?since=2024-05-04T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC), a.odds.lastStart)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, path+"?since=yesterday", "").Code)
}

func TestBoxCostEndpoint(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/cost?betType=trifecta&horses=4&amount=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cost := decode[costResponse](t, rec)
	assert.True(t, cost.Combinations.Equal(decimal.NewFromInt(24)))
	assert.True(t, cost.Cost.Equal(decimal.NewFromInt(24)))

	rec = a.do(t, http.MethodGet, "/api/v1/cost?betType=exacta&horses=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cost = decode[costResponse](t, rec)
	assert.True(t, cost.Cost.IsZero())
	assert.True(t, cost.Amount.Equal(wager.DefaultAmount))

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/cost?betType=quinella&horses=3", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/cost?betType=exacta&horses=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/cost?betType=exacta&horses=25", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/cost?betType=exacta&horses=3&amount=two", "").Code)
}

func TestListBetTypes(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/bet-types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]map[string]interface{}](t, rec)
	assert.Len(t, types, len(wager.AllBetTypes()))
}

func TestBoxTicketFlow(t *testing.T) {
	a := newTestAPI(t)
	ticket := a.openTicket(t)
	base := "/api/v1/tickets/" + ticket.ID
	assert.Equal(t, 5, ticket.State.RaceContext.CurrentRace)

	rec := a.do(t, http.MethodPut, base+"/bet-type", `{"betType":"exacta"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, base+"/mode", `{"mode":"box"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ticketResponse](t, rec)
	require.NotNil(t, resp.Applied)
	assert.True(t, *resp.Applied)
	assert.True(t, resp.State.Construction.IsBoxMode)

	for _, pp := range []string{"1", "2", "3"} {
		rec = a.do(t, http.MethodPost, base+"/horses/"+pp, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = a.do(t, http.MethodPost, base+"/horses/4", "")
	resp = decode[ticketResponse](t, rec)
	assert.False(t, *resp.Applied, "disqualified horse cannot be picked")
	assert.Equal(t, []int{1, 2, 3}, resp.State.Construction.BoxHorses)

	rec = a.do(t, http.MethodPost, base+"/add", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ticketResponse](t, rec)
	require.Len(t, resp.Added, 3)
	for _, sel := range resp.Added {
		assert.True(t, sel.IsBoxBet)
		assert.True(t, sel.Amount.Equal(decimal.NewFromInt(12)))
		assert.Equal(t, 5, sel.RaceNumber)
	}
	assert.True(t, resp.State.TotalCost.Equal(decimal.NewFromInt(36)))
	assert.False(t, resp.State.Construction.IsBoxMode)

	rec = a.do(t, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, a.submitter.tickets, 1)
	assert.Equal(t, ticket.ID, a.submitter.tickets[0].SessionID)
	assert.Len(t, a.submitter.tickets[0].Selections, 3)
}

func TestStraightTicketEditing(t *testing.T) {
	a := newTestAPI(t)
	ticket := a.openTicket(t)
	base := "/api/v1/tickets/" + ticket.ID

	rec := a.do(t, http.MethodPost, base+"/mode", `{"mode":"box"}`)
	resp := decode[ticketResponse](t, rec)
	assert.False(t, *resp.Applied, "win bets cannot be boxed")

	a.do(t, http.MethodPost, base+"/horses/1", "")
	rec = a.do(t, http.MethodPost, base+"/horses/2", "")
	resp = decode[ticketResponse](t, rec)
	require.Equal(t, 2, resp.State.Count)

	rec = a.do(t, http.MethodPatch, base+"/selections/0", `{"amount":"0.5"}`)
	resp = decode[ticketResponse](t, rec)
	assert.True(t, *resp.Applied)
	assert.True(t, resp.State.Selections[0].Amount.Equal(wager.MinAmount))

	rec = a.do(t, http.MethodDelete, base+"/selections/9", "")
	resp = decode[ticketResponse](t, rec)
	assert.False(t, *resp.Applied)

	rec = a.do(t, http.MethodDelete, base+"/selections/0", "")
	resp = decode[ticketResponse](t, rec)
	require.Equal(t, 1, resp.State.Count)
	assert.Equal(t, 2, resp.State.Selections[0].PP)

	rec = a.do(t, http.MethodDelete, base+"/selections", "")
	resp = decode[ticketResponse](t, rec)
	assert.Equal(t, 0, resp.State.Count)

	rec = a.do(t, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaceContextAndAmount(t *testing.T) {
	a := newTestAPI(t)
	ticket := a.openTicket(t)
	base := "/api/v1/tickets/" + ticket.ID

	rec := a.do(t, http.MethodPut, base+"/race-context", `{"currentRace":5,"dailyDoubleRace":6}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ticketResponse](t, rec)
	assert.Equal(t, 6, resp.State.RaceContext.DailyDoubleRace)

	rec = a.do(t, http.MethodPut, base+"/amount", `{"amount":10}`)
	resp = decode[ticketResponse](t, rec)
	assert.True(t, resp.State.Construction.Amount.Equal(decimal.NewFromInt(10)))

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPut, base+"/bet-type", `{"betType":"quinella"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPut, base+"/amount", `{"stake":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, base+"/mode", `{"mode":"wheel"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, base+"/horses/first", "").Code)
}

func TestScratchPrunesOpenTicket(t *testing.T) {
	a := newTestAPI(t)
	ticket := a.openTicket(t)
	base := "/api/v1/tickets/" + ticket.ID

	a.do(t, http.MethodPost, base+"/horses/1", "")
	a.do(t, http.MethodPost, base+"/horses/2", "")

	horses, err := a.feed.Latest(context.Background(), a.race.ID)
	require.NoError(t, err)
	horses[0].Disqualified = true
	a.feed.Publish(a.race.ID, horses)

	rec := a.do(t, http.MethodGet, base, "")
	resp := decode[ticketResponse](t, rec)
	require.Equal(t, 1, resp.State.Count)
	assert.Equal(t, 2, resp.State.Selections[0].PP)
}

func TestTicketLifecycleErrors(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/races/"+uuid.NewString()+"/tickets", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/tickets/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ticket := a.openTicket(t)
	rec = a.do(t, http.MethodDelete, "/api/v1/tickets/"+ticket.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/v1/tickets/"+ticket.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitFailure(t *testing.T) {
	a := newTestAPI(t)
	a.submitter.err = errors.New("broker unavailable")
	ticket := a.openTicket(t)
	base := "/api/v1/tickets/" + ticket.ID

	a.do(t, http.MethodPost, base+"/horses/1", "")
	rec := a.do(t, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "broker")
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/races", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/races", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}
