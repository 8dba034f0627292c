package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stubGoose(t *testing.T, fn func(ctx context.Context, command string, db *sql.DB, dir string, args ...string) error) {
	t.Helper()
	original := gooseRun
	gooseRun = fn
	t.Cleanup(func() { gooseRun = original })
}

func newMockDB(t *testing.T) *sqlx.DB {
	t.Helper()
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock")
}

func TestEmbeddedMigrationsCarryGooseMarkers(t *testing.T) {
	raw, err := fs.ReadFile(migrationFiles, migrationDir+"/001_init.sql")
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "-- +goose Up")
	assert.Contains(t, body, "-- +goose Down")
	assert.Contains(t, body, "UNIQUE (student_id, date)")
}

func TestEmbeddedMigrationsCollect(t *testing.T) {
	require.NoError(t, configureGoose(zap.NewNop()))
	migrations, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, int64(1), migrations[0].Version)
}

func TestMigrateRunsUp(t *testing.T) {
	db := newMockDB(t)
	var gotCommand, gotDir string
	stubGoose(t, func(ctx context.Context, command string, conn *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir = command, dir
		assert.Same(t, db.DB, conn)
		return nil
	})

	require.NoError(t, Migrate(context.Background(), db, nil))
	assert.Equal(t, "up", gotCommand)
	assert.Equal(t, migrationDir, gotDir)
}

func TestRunPassesCommandAndArgs(t *testing.T) {
	db := newMockDB(t)
	var gotArgs []string
	stubGoose(t, func(ctx context.Context, command string, conn *sql.DB, dir string, args ...string) error {
		assert.Equal(t, "down-to", command)
		gotArgs = args
		return nil
	})

	require.NoError(t, Run(context.Background(), db, zap.NewNop(), "down-to", "0"))
	assert.Equal(t, []string{"0"}, gotArgs)
}

func TestRunWrapsFailures(t *testing.T) {
	db := newMockDB(t)
	boom := errors.New("boom")
	stubGoose(t, func(ctx context.Context, command string, conn *sql.DB, dir string, args ...string) error {
		return boom
	})

	err := Run(context.Background(), db, zap.NewNop(), "status")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migrate status")
}
