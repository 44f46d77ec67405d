package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/logger"
)

const (
	// RacingAPISourceName is the configured name of the racing API source
	RacingAPISourceName   = "racing_api"
	defaultRacingAPIURL   = "https://api.theracingapi.com/v1"
	dataSourceDisabledMsg = "data source is disabled"
	scratchedMarker       = "SCR"
)

// RacingAPIClient implements DataSource for a JSON racing data API with bearer auth
type RacingAPIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *logrus.Entry
}

// racingAPIRace is a race as served by the racing API
type racingAPIRace struct {
	ID         string           `json:"id"`
	Track      string           `json:"track"`
	RaceNumber int              `json:"raceNumber"`
	PostTime   string           `json:"postTime"`
	Distance   string           `json:"distance"`
	Surface    string           `json:"surface"`
	RaceType   string           `json:"raceType"`
	Purse      *int64           `json:"purse"`
	Status     string           `json:"status"`
	Entries    []racingAPIEntry `json:"entries"`
}

// racingAPIEntry is a single entrant; odds come as decimal ("3.5"), fractional ("5/2") or "SCR"
type racingAPIEntry struct {
	ID          string  `json:"id"`
	PP          int     `json:"programNumber"`
	Name        string  `json:"name"`
	Jockey      string  `json:"jockey"`
	Trainer     string  `json:"trainer"`
	MorningLine *string `json:"morningLine"`
	Odds        *string `json:"odds"`
	Scratched   bool    `json:"scratched"`
}

type racingAPIResult struct {
	RaceID     string            `json:"raceId"`
	Finish     []int             `json:"finish"`
	Official   bool              `json:"official"`
	DeclaredAt string            `json:"declaredAt"`
	Payoffs    []racingAPIPayoff `json:"payoffs"`
}

type racingAPIPayoff struct {
	BetType     string `json:"betType"`
	Combination string `json:"combination"`
	Payoff      string `json:"payoff"`
}

// NewRacingAPIClient creates a new racing API client
func NewRacingAPIClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, enabled bool, log *logrus.Logger) *RacingAPIClient {
	if baseURL == "" {
		baseURL = defaultRacingAPIURL
	}
	return &RacingAPIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger.OrDiscard(log).WithField("source", RacingAPISourceName),
	}
}

// FetchRaces retrieves races within the specified date range
func (c *RacingAPIClient) FetchRaces(ctx context.Context, startDate, endDate time.Time) ([]RaceData, error) {
	q := url.Values{}
	q.Set("from", startDate.Format("2006-01-02"))
	q.Set("to", endDate.Format("2006-01-02"))

	var raw []racingAPIRace
	if err := c.getJSON(ctx, "/races?"+q.Encode(), "races", &raw); err != nil {
		return nil, err
	}

	races := make([]RaceData, 0, len(raw))
	for i := range raw {
		race, err := c.convertRace(&raw[i])
		if err != nil {
			c.logger.WithError(err).WithField("race_source_id", raw[i].ID).Warn("Skipping unparseable race")
			continue
		}
		races = append(races, *race)
	}

	return races, nil
}

// FetchRaceDetails retrieves detailed information for a specific race
func (c *RacingAPIClient) FetchRaceDetails(ctx context.Context, raceID string) (*RaceData, error) {
	var raw racingAPIRace
	if err := c.getJSON(ctx, "/races/"+url.PathEscape(raceID), "race", &raw); err != nil {
		return nil, err
	}

	race, err := c.convertRace(&raw)
	if err != nil {
		return nil, NewDataSourceError(RacingAPISourceName, ErrCodeInvalidData, "failed to convert race", err)
	}
	return race, nil
}

// FetchResults retrieves the declared result for a race. A race with no result yet is ErrNotFound.
func (c *RacingAPIClient) FetchResults(ctx context.Context, raceID string) (*ResultData, error) {
	var raw racingAPIResult
	if err := c.getJSON(ctx, "/races/"+url.PathEscape(raceID)+"/results", "results", &raw); err != nil {
		return nil, err
	}

	declared, err := time.Parse(time.RFC3339, raw.DeclaredAt)
	if err != nil {
		declared = time.Now().UTC()
	}

	result := &ResultData{
		RaceSourceID: raw.RaceID,
		Finish:       raw.Finish,
		Official:     raw.Official,
		DeclaredAt:   declared,
		Payoffs:      make([]PayoffData, 0, len(raw.Payoffs)),
	}
	if result.RaceSourceID == "" {
		result.RaceSourceID = raceID
	}

	for _, p := range raw.Payoffs {
		amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(p.Payoff), "$"))
		if err != nil {
			c.logger.WithFields(logrus.Fields{"race_source_id": raceID, "bet_type": p.BetType}).Warn("Skipping unparseable payoff")
			continue
		}
		result.Payoffs = append(result.Payoffs, PayoffData{
			BetType:     strings.ToLower(p.BetType),
			Combination: p.Combination,
			Payoff:      amount,
		})
	}

	return result, nil
}

// Name returns the data source name
func (c *RacingAPIClient) Name() string {
	return RacingAPISourceName
}

// IsEnabled returns whether this data source is enabled
func (c *RacingAPIClient) IsEnabled() bool {
	return c.enabled
}

// getJSON performs an authenticated GET and decodes the body into out
func (c *RacingAPIClient) getJSON(ctx context.Context, path, what string, out interface{}) error {
	if !c.enabled {
		return NewDataSourceError(RacingAPISourceName, ErrCodeDisabled, dataSourceDisabledMsg, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return NewDataSourceError(RacingAPISourceName, ErrCodeNetworkError, "failed to create request", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(RacingAPISourceName, ErrCodeNetworkError, "failed to fetch "+what, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return NewDataSourceError(RacingAPISourceName, ErrCodeNotFound, what+" not found", nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewDataSourceError(RacingAPISourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusTooManyRequests:
		return NewDataSourceError(RacingAPISourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(RacingAPISourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(RacingAPISourceName, ErrCodeInvalidData, "failed to parse response", err)
	}
	return nil
}

// convertRace converts the racing API format to RaceData
func (c *RacingAPIClient) convertRace(raw *racingAPIRace) (*RaceData, error) {
	if raw.ID == "" {
		return nil, fmt.Errorf("race has no id")
	}

	postTime, err := time.Parse(time.RFC3339, raw.PostTime)
	if err != nil {
		return nil, fmt.Errorf("invalid post time %q: %w", raw.PostTime, err)
	}

	race := &RaceData{
		SourceID:   raw.ID,
		Track:      raw.Track,
		RaceNumber: raw.RaceNumber,
		PostTime:   postTime.UTC(),
		Distance:   raw.Distance,
		Surface:    strings.ToLower(raw.Surface),
		RaceType:   raw.RaceType,
		Purse:      raw.Purse,
		Status:     strings.ToLower(raw.Status),
		Horses:     make([]HorseData, 0, len(raw.Entries)),
		FetchedAt:  time.Now().UTC(),
	}

	for _, e := range raw.Entries {
		horse := HorseData{
			SourceID:  e.ID,
			PP:        e.PP,
			Name:      e.Name,
			Jockey:    e.Jockey,
			Trainer:   e.Trainer,
			Scratched: e.Scratched,
		}

		if e.MorningLine != nil {
			if ml, _, err := ParseOdds(*e.MorningLine); err == nil {
				horse.MorningLine = ml
			}
		}

		if e.Odds != nil {
			odds, scratched, err := ParseOdds(*e.Odds)
			switch {
			case err != nil:
				c.logger.WithFields(logrus.Fields{"horse": e.Name, "odds": *e.Odds}).Debug("Failed to parse odds")
			case scratched:
				horse.Scratched = true
			default:
				horse.LiveOdds = odds
			}
		}

		race.Horses = append(race.Horses, horse)
	}

	return race, nil
}

// ParseOdds parses odds-to-1 from decimal ("3.5"), fractional ("5/2") or even-money ("EVN")
// notation. The scratch marker "SCR" yields scratched=true with nil odds.
func ParseOdds(s string) (*decimal.Decimal, bool, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return nil, false, fmt.Errorf("empty odds")
	case scratchedMarker, "SCRATCHED":
		return nil, true, nil
	case "EVN", "EVEN", "EVENS":
		one := decimal.NewFromInt(1)
		return &one, false, nil
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := decimal.NewFromString(strings.TrimSpace(num))
		if err != nil {
			return nil, false, fmt.Errorf("invalid odds format: %s", s)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(den))
		if err != nil || !d.IsPositive() {
			return nil, false, fmt.Errorf("invalid odds format: %s", s)
		}
		if n.IsNegative() {
			return nil, false, fmt.Errorf("negative odds: %s", s)
		}
		odds := n.Div(d)
		return &odds, false, nil
	}

	odds, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false, fmt.Errorf("invalid odds format: %s", s)
	}
	if odds.IsNegative() {
		return nil, false, fmt.Errorf("negative odds: %s", s)
	}
	return &odds, false, nil
}
