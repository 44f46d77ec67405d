package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DataSource defines the interface for fetching race cards, odds and results from external providers
type DataSource interface {
	// FetchRaces retrieves races posting within the specified date range
	FetchRaces(ctx context.Context, startDate, endDate time.Time) ([]RaceData, error)

	// FetchRaceDetails retrieves the full card for a specific race, including live odds
	FetchRaceDetails(ctx context.Context, raceID string) (*RaceData, error)

	// FetchResults retrieves the declared result for a race
	FetchResults(ctx context.Context, raceID string) (*ResultData, error)

	// Name returns the name of the data source
	Name() string

	// IsEnabled returns whether this data source is currently enabled
	IsEnabled() bool
}

// RaceData represents normalized race data from any data source
type RaceData struct {
	SourceID   string      `json:"source_id"`   // Provider's unique race ID
	Track      string      `json:"track"`       // Track name (e.g., "Santa Anita")
	RaceNumber int         `json:"race_number"` // Race number on the card
	PostTime   time.Time   `json:"post_time"`   // Scheduled post time UTC
	Distance   string      `json:"distance"`    // e.g. "6f", "1 1/16m"
	Surface    string      `json:"surface"`     // dirt, turf, synthetic
	RaceType   string      `json:"race_type"`   // e.g. "MSW", "CLM", "G1"
	Purse      *int64      `json:"purse"`
	Status     string      `json:"status"`
	Horses     []HorseData `json:"horses"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// HorseData represents a normalized entrant from any data source
type HorseData struct {
	SourceID    string           `json:"source_id"`
	PP          int              `json:"pp"` // Post position
	Name        string           `json:"name"`
	Jockey      string           `json:"jockey"`
	Trainer     string           `json:"trainer"`
	MorningLine *decimal.Decimal `json:"morning_line"` // Odds-to-1
	LiveOdds    *decimal.Decimal `json:"live_odds"`    // Odds-to-1, nil before the pools open
	Scratched   bool             `json:"scratched"`
}

// ResultData represents a declared race result
type ResultData struct {
	RaceSourceID string       `json:"race_source_id"`
	Finish       []int        `json:"finish"` // Post positions in finishing order
	Payoffs      []PayoffData `json:"payoffs"`
	Official     bool         `json:"official"`
	DeclaredAt   time.Time    `json:"declared_at"`
}

// PayoffData is a published $2 payoff for one pool
type PayoffData struct {
	BetType     string          `json:"bet_type"`
	Combination string          `json:"combination"`
	Payoff      decimal.Decimal `json:"payoff"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Is matches a DataSourceError against the sentinel for its code
func (e DataSourceError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeDisabled             = "disabled"
	ErrCodeUnknown              = "unknown"
)

// Sentinel errors, matched by errors.Is against a DataSourceError's code
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
	ErrDisabled             = errors.New("data source disabled")
)

var codeSentinels = map[string]error{
	ErrCodeRateLimitExceeded:    ErrRateLimitExceeded,
	ErrCodeAuthenticationFailed: ErrAuthenticationFailed,
	ErrCodeNotFound:             ErrNotFound,
	ErrCodeInvalidData:          ErrInvalidData,
	ErrCodeNetworkError:         ErrNetworkError,
	ErrCodeServerError:          ErrServerError,
	ErrCodeDisabled:             ErrDisabled,
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
