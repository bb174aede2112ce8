package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-theatre/internal/config"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	ClientPQ       = "pq"
	ClientPGDriver = "pgdriver"
)

// UsesMigrations reports whether the driver's schema is managed by the SQL
// migrations. The other drivers build it from the models.
func UsesMigrations(driver string) bool {
	return driver == DriverPostgres
}

// Pinger is the part of *sql.DB used while waiting for the database to come up.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Open connects to the configured database and returns a bun.DB with the
// theatre models registered.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.Driver {
	case DriverPostgres:
		sqldb, err := OpenPostgres(cfg)
		if err != nil {
			return nil, err
		}
		if err := connectPool(ctx, sqldb, cfg, log); err != nil {
			return nil, err
		}
		db = bun.NewDB(sqldb, pgdialect.New())

	case DriverMySQL:
		sqldb, err := sql.Open("mysql", MySQLDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		if err := connectPool(ctx, sqldb, cfg, log); err != nil {
			return nil, err
		}
		db = bun.NewDB(sqldb, mysqldialect.New())

	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:theatre.db?cache=shared"
		}
		sqldb, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	RegisterModels(db)
	if cfg.Debug {
		db.AddQueryHook(&QueryLogger{Log: log})
	}

	log.Info("DATABASE", fmt.Sprintf("Connected using %s driver", cfg.Driver))
	return db, nil
}

func connectPool(ctx context.Context, sqldb *sql.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := PingWithRetry(ctx, sqldb, cfg.ConnectRetries, cfg.RetryInterval, log); err != nil {
		sqldb.Close()
		return err
	}
	return nil
}

// OpenPostgres returns an unconnected pool using either lib/pq or bun's own
// pgdriver, selected by cfg.PostgresClient.
func OpenPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := PostgresDSN(cfg)
	switch cfg.PostgresClient {
	case "", ClientPQ:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return sqldb, nil
	case ClientPGDriver:
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
	default:
		return nil, fmt.Errorf("unsupported postgres client %q", cfg.PostgresClient)
	}
}

// OpenSQLite opens a single-connection SQLite handle with foreign keys on.
// SQLite allows one writer at a time; a single pooled connection makes
// concurrent transactions queue instead of failing with SQLITE_BUSY.
func OpenSQLite(dsn string) (*sql.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	if _, err := sqldb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}
	return sqldb, nil
}

func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

func MySQLDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// RegisterModels must run before any m2m relation query.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(models.JoinModels()...)
}

// PingWithRetry pings until the database answers or attempts run out.
func PingWithRetry(ctx context.Context, db Pinger, attempts int, interval time.Duration, log *logger.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to database (attempt %d/%d)", i+1, attempts))
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
}

// QueryLogger logs every executed statement at DEBUG level.
type QueryLogger struct {
	Log *logger.Logger
}

func (h *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	msg := fmt.Sprintf("%s (%s)", event.Query, time.Since(event.StartTime))
	if event.Err != nil && event.Err != sql.ErrNoRows {
		h.Log.Warn("DATABASE", fmt.Sprintf("%s: %v", msg, event.Err))
		return
	}
	h.Log.Debug("DATABASE", msg)
}
