package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/models"
)

const horseColumns = `id, race_id, source_id, pp, name, jockey, trainer, morning_line,
	live_odds, disqualified, created_at, updated_at`

// PostgresHorseRepository implements HorseRepository for PostgreSQL
type PostgresHorseRepository struct {
	db *database.DB
}

// NewPostgresHorseRepository creates a new horse repository
func NewPostgresHorseRepository(db *database.DB) HorseRepository {
	return &PostgresHorseRepository{db: db}
}

func scanHorse(row pgx.Row, h *models.Horse) error {
	return row.Scan(
		&h.ID, &h.RaceID, &h.SourceID, &h.PP, &h.Name, &h.Jockey, &h.Trainer, &h.MorningLine,
		&h.LiveOdds, &h.Disqualified, &h.CreatedAt, &h.UpdatedAt,
	)
}

// UpsertForRace writes the whole field for a race in one batch round trip
func (r *PostgresHorseRepository) UpsertForRace(ctx context.Context, raceID uuid.UUID, horses []*models.Horse) error {
	if len(horses) == 0 {
		return nil
	}

	query := `
		INSERT INTO horses (id, race_id, source_id, pp, name, jockey, trainer, morning_line, live_odds, disqualified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (race_id, pp) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			name = EXCLUDED.name,
			jockey = EXCLUDED.jockey,
			trainer = EXCLUDED.trainer,
			morning_line = COALESCE(EXCLUDED.morning_line, horses.morning_line),
			live_odds = EXCLUDED.live_odds,
			disqualified = horses.disqualified OR EXCLUDED.disqualified,
			updated_at = NOW()
		RETURNING id, disqualified, created_at, updated_at
	`

	batch := &pgx.Batch{}
	for _, h := range horses {
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		h.RaceID = raceID
		batch.Queue(query,
			h.ID, raceID, h.SourceID, h.PP, h.Name, h.Jockey, h.Trainer, h.MorningLine, h.LiveOdds, h.Disqualified,
		)
	}

	results := r.db.Querier(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for _, h := range horses {
		if err := results.QueryRow().Scan(&h.ID, &h.Disqualified, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return mapError(err, fmt.Sprintf("failed to upsert horse pp %d", h.PP))
		}
	}

	return nil
}

// GetByRaceID retrieves the field for a race ordered by post position
func (r *PostgresHorseRepository) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error) {
	rows, err := r.db.Querier(ctx).Query(ctx,
		`SELECT `+horseColumns+` FROM horses WHERE race_id = $1 ORDER BY pp ASC`, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query horses: %w", err)
	}
	defer rows.Close()

	horses := []models.Horse{}
	for rows.Next() {
		var h models.Horse
		if err := scanHorse(rows, &h); err != nil {
			return nil, fmt.Errorf("failed to scan horse: %w", err)
		}
		horses = append(horses, h)
	}

	return horses, rows.Err()
}

// GetByID retrieves a horse by ID
func (r *PostgresHorseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Horse, error) {
	h := &models.Horse{}
	err := scanHorse(r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+horseColumns+` FROM horses WHERE id = $1`, id), h)
	if err != nil {
		return nil, mapError(err, "failed to get horse")
	}
	return h, nil
}
