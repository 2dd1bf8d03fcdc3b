package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

func TestSQLJobRepository_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "lantern.db")
	require.NoError(t, repository.Migrate(dialect.SQLite, dsn, nil))
	// a second run is a no-op
	require.NoError(t, repository.Migrate(dialect.SQLite, dsn, nil))

	db, err := repository.Open(context.Background(), repository.Config{Dialect: dialect.SQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))

	repo := repository.NewSQLJobRepository(db, nil)
	t.Cleanup(func() { _ = repo.Close() })
	p, ok := repo.(repository.Pinger)
	require.True(t, ok)
	require.NoError(t, p.Ping(context.Background()))
	exerciseJobRepository(t, repo)
}

func TestOpenJobRepository_SQLiteCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := &common.Config{DataDir: dir, Store: common.StoreConfig{Backend: "sqlite", DSN: filepath.Join(dir, "lantern.db")}}

	repo, err := repository.OpenJobRepository(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestOpenJobRepository_UnknownBackend(t *testing.T) {
	_, err := repository.OpenJobRepository(context.Background(), &common.Config{Store: common.StoreConfig{Backend: "tape"}}, nil)
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSQLJobRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("lantern_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pgContainer.Terminate(ctx)) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := &common.Config{Store: common.StoreConfig{Backend: "postgres", DSN: connStr, MaxConns: 4, DialTimeout: 10 * time.Second}}
	repo, err := repository.OpenJobRepository(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseJobRepository(t, repo)
}
