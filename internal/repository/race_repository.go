package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/models"
)

const raceColumns = `id, source_id, track, race_number, post_time, distance, surface,
	race_type, purse, status, created_at, updated_at`

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(db *database.DB) RaceRepository {
	return &PostgresRaceRepository{db: db}
}

func scanRace(row pgx.Row) (*models.Race, error) {
	race := &models.Race{}
	err := row.Scan(
		&race.ID, &race.SourceID, &race.Track, &race.RaceNumber, &race.PostTime, &race.Distance,
		&race.Surface, &race.RaceType, &race.Purse, &race.Status, &race.CreatedAt, &race.UpdatedAt,
	)
	return race, err
}

func collectRaces(rows pgx.Rows) ([]*models.Race, error) {
	defer rows.Close()

	var races []*models.Race
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}
	return races, rows.Err()
}

// Upsert inserts a race or refreshes the card data of an existing one.
// Official and cancelled races keep their status.
func (r *PostgresRaceRepository) Upsert(ctx context.Context, race *models.Race) error {
	if race.ID == uuid.Nil {
		race.ID = uuid.New()
	}
	if race.Status == "" {
		race.Status = models.RaceStatusScheduled
	}

	query := `
		INSERT INTO races (id, source_id, track, race_number, post_time, distance, surface, race_type, purse, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_id) DO UPDATE SET
			track = EXCLUDED.track,
			race_number = EXCLUDED.race_number,
			post_time = EXCLUDED.post_time,
			distance = EXCLUDED.distance,
			surface = EXCLUDED.surface,
			race_type = EXCLUDED.race_type,
			purse = EXCLUDED.purse,
			status = CASE WHEN races.status IN ('official', 'cancelled') THEN races.status ELSE EXCLUDED.status END,
			updated_at = NOW()
		RETURNING id, status, created_at, updated_at
	`

	err := r.db.Querier(ctx).QueryRow(ctx, query,
		race.ID, race.SourceID, race.Track, race.RaceNumber, race.PostTime, race.Distance,
		race.Surface, race.RaceType, race.Purse, race.Status,
	).Scan(&race.ID, &race.Status, &race.CreatedAt, &race.UpdatedAt)
	if err != nil {
		return mapError(err, "failed to upsert race")
	}

	return nil
}

// GetByID retrieves a race by ID
func (r *PostgresRaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	race, err := scanRace(r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+raceColumns+` FROM races WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "failed to get race")
	}
	return race, nil
}

// GetBySourceID retrieves a race by the data source's identifier
func (r *PostgresRaceRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Race, error) {
	race, err := scanRace(r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+raceColumns+` FROM races WHERE source_id = $1`, sourceID))
	if err != nil {
		return nil, mapError(err, "failed to get race by source id")
	}
	return race, nil
}

// GetUpcoming retrieves races still open for wagering ordered by post time
func (r *PostgresRaceRepository) GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE status IN ('scheduled', 'open') AND post_time > NOW()
		ORDER BY post_time ASC
		LIMIT $1
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming races: %w", err)
	}
	return collectRaces(rows)
}

// GetByDateRange retrieves races posting within a time range
func (r *PostgresRaceRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE post_time >= $1 AND post_time <= $2
		ORDER BY post_time ASC, track ASC, race_number ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query races by date range: %w", err)
	}
	return collectRaces(rows)
}

// GetAwaitingResults retrieves races past post time whose result is not yet official
func (r *PostgresRaceRepository) GetAwaitingResults(ctx context.Context, cutoff time.Time) ([]*models.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE post_time <= $1 AND status NOT IN ('official', 'cancelled')
		ORDER BY post_time ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query races awaiting results: %w", err)
	}
	return collectRaces(rows)
}

// UpdateStatus moves a race to a new status
func (r *PostgresRaceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RaceStatus) error {
	tag, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE races SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update race status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
