package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackside/internal/config"
)

func TestMigrationsOrdered(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
	assert.Equal(t, "000001_create_races", migrations[0].Version)
	assert.True(t, strings.Contains(migrations[1].SQL, "REFERENCES races"))
}

func TestConnString(t *testing.T) {
	cs := ConnString(&config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Name: "trackside", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=trackside sslmode=require", cs)
}

func TestMigrateAndTransaction(t *testing.T) {
	db := SetupTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run is a no-op")

	boom := errors.New("boom")
	err = db.WithTransaction(ctx, func(txCtx context.Context) error {
		_, execErr := db.Querier(txCtx).Exec(txCtx,
			`INSERT INTO races (id, source_id, track, race_number, post_time)
			 VALUES (gen_random_uuid(), 'tx-test', 'Test Downs', 1, NOW())`)
		require.NoError(t, execErr)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.GetPool().QueryRow(ctx, "SELECT COUNT(*) FROM races WHERE source_id = 'tx-test'").Scan(&n))
	assert.Zero(t, n, "rolled back")
	require.NoError(t, db.HealthCheck(ctx))
}
