package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/lantern/internal/common"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// OpenJobRepository builds the configured job store. SQL backends are
// migrated before use.
func OpenJobRepository(ctx context.Context, cfg *common.Config, logger *slog.Logger) (JobRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store
	switch sc.Backend {
	case BackendSQLite, BackendPostgres:
		sqlDialect := dialect.Postgres
		if sc.Backend == BackendSQLite {
			sqlDialect = dialect.SQLite
			if dir := filepath.Dir(sc.DSN); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
		}
		if err := Migrate(sqlDialect, sc.DSN, logger); err != nil {
			return nil, err
		}
		db, err := Open(ctx, Config{
			Dialect:     sqlDialect,
			DSN:         sc.DSN,
			MaxConns:    sc.MaxConns,
			MinConns:    sc.MinConns,
			DialTimeout: sc.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLJobRepository(db, logger), nil
	case BackendFile:
		return NewFileJobRepository(filepath.Join(cfg.DataDir, "inbox_jobs"), logger)
	case BackendRedis:
		return NewRedisJobRepository(ctx, sc.RedisURL, logger)
	case BackendMongo:
		return NewMongoJobRepository(ctx, sc.MongoURI, sc.MongoDatabase, sc.DialTimeout, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store backend %q", sc.Backend), common.ErrInvalidInput)
	}
}
