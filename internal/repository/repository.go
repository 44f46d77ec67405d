package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/models"
)

const uniqueViolation = "23505"

// Repositories holds all repository implementations
type Repositories struct {
	Race       RaceRepository
	Horse      HorseRepository
	Odds       OddsRepository
	RaceResult RaceResultRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Race:       NewPostgresRaceRepository(db),
		Horse:      NewPostgresHorseRepository(db),
		Odds:       NewPostgresOddsRepository(db),
		RaceResult: NewPostgresRaceResultRepository(db),
	}, nil
}

// mapError translates driver errors into model sentinels
func mapError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
