package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	BackendMemory   = "memory"
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ParseBackend splits a store spec such as "memory", "http",
// "postgres:postgres://..." or "sqlite:folio.db" into backend and argument.
func ParseBackend(spec string) (backend, arg string) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return BackendMemory, ""
	}
	parts := strings.SplitN(spec, ":", 2)
	backend = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = parts[1]
	}
	return backend, arg
}

// Connect opens a pool for driver ("postgres" or "sqlite"), pings it and
// makes sure the schema exists.
func Connect(ctx context.Context, driver, dsn string, log *logrus.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == BackendSQLite {
		// SQLite allows one writer; an in-memory database also lives in a
		// single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	log.Infof("connected to %s and ensured schema", driver)
	return db, nil
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	numeric := "NUMERIC(24,8)"
	if db.DriverName() == BackendSQLite {
		// TEXT keeps decimals exact; SQLite NUMERIC affinity would turn them into floats.
		numeric = "TEXT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS holdings (
    symbol VARCHAR(32) PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    quantity BIGINT NOT NULL CHECK (quantity > 0),
    cost_basis_per_unit ` + numeric + ` NOT NULL,
    total_cost_basis ` + numeric + ` NOT NULL,
    reference_price ` + numeric + ` NOT NULL,
    current_price ` + numeric + ` NOT NULL,
    purchase_currency VARCHAR(8) NOT NULL,
    dividend_per_unit ` + numeric + ` NOT NULL,
    dividend_yield_percent ` + numeric + ` NOT NULL,
    total_profit ` + numeric + ` NOT NULL,
    daily_profit ` + numeric + ` NOT NULL,
    seq BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS price_history (
    symbol VARCHAR(32) NOT NULL,
    price ` + numeric + ` NOT NULL,
    recorded_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS price_history_symbol_idx ON price_history (symbol, recorded_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
