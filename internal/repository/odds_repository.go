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

// PostgresOddsRepository implements OddsRepository for PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new odds repository
func NewPostgresOddsRepository(db *database.DB) OddsRepository {
	return &PostgresOddsRepository{db: db}
}

// InsertBatch inserts odds snapshots with COPY
func (o *PostgresOddsRepository) InsertBatch(ctx context.Context, odds []*models.OddsSnapshot) error {
	if len(odds) == 0 {
		return nil
	}

	columns := []string{"time", "race_id", "horse_id", "odds", "win_pool", "scratched"}

	rows := make([][]interface{}, len(odds))
	for i, s := range odds {
		rows[i] = []interface{}{s.Time, s.RaceID, s.HorseID, s.Odds, s.WinPool, s.Scratched}
	}

	count, err := o.db.Querier(ctx).CopyFrom(ctx, pgx.Identifier{"odds_snapshots"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert odds snapshots: %w", err)
	}

	if count != int64(len(odds)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(odds))
	}

	return nil
}

func scanSnapshot(row pgx.Row) (*models.OddsSnapshot, error) {
	s := &models.OddsSnapshot{}
	err := row.Scan(&s.Time, &s.RaceID, &s.HorseID, &s.Odds, &s.WinPool, &s.Scratched)
	return s, err
}

// GetLatest retrieves the most recent odds snapshot for a horse
func (o *PostgresOddsRepository) GetLatest(ctx context.Context, horseID uuid.UUID) (*models.OddsSnapshot, error) {
	query := `
		SELECT time, race_id, horse_id, odds, win_pool, scratched
		FROM odds_snapshots
		WHERE horse_id = $1
		ORDER BY time DESC
		LIMIT 1
	`

	s, err := scanSnapshot(o.db.Querier(ctx).QueryRow(ctx, query, horseID))
	if err != nil {
		return nil, mapError(err, "failed to get latest odds")
	}
	return s, nil
}

// GetTimeSeriesForHorse retrieves a horse's odds history within a time range
func (o *PostgresOddsRepository) GetTimeSeriesForHorse(ctx context.Context, horseID uuid.UUID, start, end time.Time) ([]*models.OddsSnapshot, error) {
	query := `
		SELECT time, race_id, horse_id, odds, win_pool, scratched
		FROM odds_snapshots
		WHERE horse_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC
	`

	rows, err := o.db.Querier(ctx).Query(ctx, query, horseID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds time series: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.OddsSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan odds: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
