package auth

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDB opens a bun database for the given driver and checks connectivity
func OpenDB(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var db *bun.DB

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, internalError(err, "failed to open sqlite database")
		}
		// in-memory databases live and die with their connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, internalError(err, "failed to open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, internalError(fmt.Errorf("unknown driver %q", driver), "unsupported database driver")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, internalError(err, "failed to reach database", "driver", driver)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations
func Migrate(ctx context.Context, db *bun.DB, driver string, logger Logger) error {
	dialect := "sqlite3"
	if driver == DriverPostgres {
		dialect = "pgx"
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: resolveLogger(logger)})
	if err := goose.SetDialect(dialect); err != nil {
		return internalError(err, "failed to set migration dialect", "dialect", dialect)
	}

	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return internalError(err, "failed to run migrations")
	}
	return nil
}

type gooseLogger struct {
	logger Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Debug(fmt.Sprintf(format, v...), "source", "goose")
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	g.logger.Error(msg, "source", "goose")
	panic(msg)
}
