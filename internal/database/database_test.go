package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/planner/internal/config"
	"github.com/paiban/planner/pkg/logger"
)

func init() {
	logger.Init(logger.Config{Level: "disabled", Output: "discard"})
}

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Driver:          config.DriverSQLite,
		DSN:             "file::memory:",
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func countPlans(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM plans`).Scan(&n))
	return n
}

const insertPlan = `INSERT INTO plans (id, engine, status, score, max_score, users, days, shifts, conflicts, branches, wall_time, document, created_at)
	VALUES ($1, 'pb', 'OPTIMAL', 0, 0, 1, 1, 1, 0, 0, 0, '{}', $2)`

func TestMigrate_Idempotent(t *testing.T) {
	db := newMemoryDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	assert.Equal(t, 0, countPlans(t, db))
	assert.Equal(t, config.DriverSQLite, db.Driver())
	assert.NoError(t, db.Health(context.Background()))
}

func TestTransaction_Commit(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertPlan, "p1", time.Now())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countPlans(t, db))
}

func TestTransaction_Rollback(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertPlan, "p1", time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countPlans(t, db))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "nosuchdriver", DSN: "x"})
	assert.Error(t, err)
}

func TestTruncateQuery(t *testing.T) {
	long := strings.Repeat("x", 250)
	assert.Len(t, truncateQuery(long), 203)
	assert.Equal(t, "SELECT 1", truncateQuery("SELECT 1"))
}
