package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/models"
)

// PostgresRaceResultRepository implements RaceResultRepository for PostgreSQL
type PostgresRaceResultRepository struct {
	db *database.DB
}

// NewPostgresRaceResultRepository creates a new race result repository
func NewPostgresRaceResultRepository(db *database.DB) RaceResultRepository {
	return &PostgresRaceResultRepository{db: db}
}

// Upsert stores a race result, replacing any earlier unofficial one
func (r *PostgresRaceResultRepository) Upsert(ctx context.Context, result *models.RaceResult) error {
	payoffs := result.Payoffs
	if payoffs == nil {
		payoffs = []models.WagerPayoff{}
	}

	query := `
		INSERT INTO race_results (race_id, finish, payoffs, official, declared_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (race_id) DO UPDATE SET
			finish = EXCLUDED.finish,
			payoffs = EXCLUDED.payoffs,
			official = EXCLUDED.official,
			declared_at = EXCLUDED.declared_at
		RETURNING created_at
	`

	err := r.db.Querier(ctx).QueryRow(ctx, query,
		result.RaceID, result.Finish, payoffs, result.Official, result.DeclaredAt,
	).Scan(&result.CreatedAt)
	if err != nil {
		return mapError(err, "failed to upsert race result")
	}

	return nil
}

// GetByRaceID retrieves the result for a specific race
func (r *PostgresRaceResultRepository) GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceResult, error) {
	query := `
		SELECT race_id, finish, payoffs, official, declared_at, created_at
		FROM race_results
		WHERE race_id = $1
	`

	result := &models.RaceResult{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, raceID).Scan(
		&result.RaceID, &result.Finish, &result.Payoffs, &result.Official, &result.DeclaredAt, &result.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to get result for race %s", raceID))
	}

	return result, nil
}
