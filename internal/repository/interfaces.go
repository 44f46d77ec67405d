package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/trackside/internal/models"
)

// RaceRepository defines the interface for race data access
type RaceRepository interface {
	// Upsert inserts the race or updates the one sharing its source id.
	// The stored id and timestamps are written back onto race.
	Upsert(ctx context.Context, race *models.Race) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error)
	GetBySourceID(ctx context.Context, sourceID string) (*models.Race, error)
	GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error)
	// GetAwaitingResults returns races that went to post before cutoff and are not yet official
	GetAwaitingResults(ctx context.Context, cutoff time.Time) ([]*models.Race, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RaceStatus) error
}

// HorseRepository defines the interface for horse data access
type HorseRepository interface {
	// UpsertForRace inserts or updates horses by (race, post position), writing stored ids back
	UpsertForRace(ctx context.Context, raceID uuid.UUID, horses []*models.Horse) error
	GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Horse, error)
}

// OddsRepository defines the interface for odds data access
type OddsRepository interface {
	InsertBatch(ctx context.Context, odds []*models.OddsSnapshot) error
	GetLatest(ctx context.Context, horseID uuid.UUID) (*models.OddsSnapshot, error)
	GetTimeSeriesForHorse(ctx context.Context, horseID uuid.UUID, start, end time.Time) ([]*models.OddsSnapshot, error)
}

// RaceResultRepository defines operations for race results
type RaceResultRepository interface {
	Upsert(ctx context.Context, result *models.RaceResult) error
	GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceResult, error)
}
