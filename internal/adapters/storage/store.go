package storage

// store.go: persistencia de cuentas, posiciones y backtests.
//
// Un único Store sobre sqlx sirve SQLite (modernc, sin CGo) y Postgres (lib/pq).
// Las queries se escriben con `?` y se reescriben con Rebind para cada driver.
// Las transiciones ACTIVE → WON/LOST son updates condicionales: una posición
// solo se cierra una vez aunque dos pasadas del resolver se solapen.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
    id                  TEXT PRIMARY KEY,
    balance             DOUBLE PRECISION NOT NULL,
    risk_percentage     DOUBLE PRECISION NOT NULL,
    total_closed_trades INTEGER          NOT NULL DEFAULT 0,
    win_rate_percent    DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at          TIMESTAMP        NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS positions (
    id          TEXT PRIMARY KEY,
    account_id  TEXT             NOT NULL,
    symbol      TEXT             NOT NULL,
    direction   TEXT             NOT NULL,
    entry       DOUBLE PRECISION NOT NULL,
    stop_loss   DOUBLE PRECISION NOT NULL,
    take_profit DOUBLE PRECISION NOT NULL,
    risk_amount DOUBLE PRECISION NOT NULL,
    size        DOUBLE PRECISION NOT NULL DEFAULT 0,
    status      TEXT             NOT NULL,
    pnl         DOUBLE PRECISION NOT NULL DEFAULT 0,
    source      TEXT             NOT NULL DEFAULT '',
    opened_at   TIMESTAMP        NOT NULL,
    closed_at   TIMESTAMP
)`,
	// Respaldo del límite de una posición ACTIVE por (cuenta, símbolo)
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_positions_active ON positions(account_id, symbol) WHERE status = 'ACTIVE'`,
	`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_account ON positions(account_id, opened_at)`,
	`CREATE TABLE IF NOT EXISTS backtest_runs (
    id                   TEXT PRIMARY KEY,
    account_id           TEXT             NOT NULL,
    asset                TEXT             NOT NULL,
    timeframe            TEXT             NOT NULL,
    initial_balance      DOUBLE PRECISION NOT NULL,
    final_balance        DOUBLE PRECISION NOT NULL,
    total_pnl            DOUBLE PRECISION NOT NULL,
    win_rate_percent     DOUBLE PRECISION NOT NULL,
    profit_factor        DOUBLE PRECISION NOT NULL,
    max_drawdown_percent DOUBLE PRECISION NOT NULL,
    wins                 INTEGER          NOT NULL,
    losses               INTEGER          NOT NULL,
    candles              INTEGER          NOT NULL,
    created_at           TIMESTAMP        NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_account ON backtest_runs(account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS backtest_trades (
    run_id      TEXT             NOT NULL,
    seq         INTEGER          NOT NULL,
    direction   TEXT             NOT NULL,
    entry       DOUBLE PRECISION NOT NULL,
    stop_loss   DOUBLE PRECISION NOT NULL,
    take_profit DOUBLE PRECISION NOT NULL,
    risk_amount DOUBLE PRECISION NOT NULL,
    status      TEXT             NOT NULL,
    pnl         DOUBLE PRECISION NOT NULL,
    opened_at   TIMESTAMP        NOT NULL,
    closed_at   TIMESTAMP,
    PRIMARY KEY (run_id, seq)
)`,
}

// Store implementa ports.TradeStore y ports.BacktestStore.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open abre (o crea) la base de datos y aplica el schema.
// driver es "sqlite" (dsn = ruta o ":memory:") o "postgres" (dsn = URL de conexión).
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("storage.Open: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite es single-writer; además :memory: es por conexión
		db.SetMaxIdleConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
		}
	}
	return &Store{db: db, driver: driver}, nil
}

// Close cierra la conexión.
func (s *Store) Close() error {
	return s.db.Close()
}

// q reescribe los placeholders `?` al formato del driver.
func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// isUniqueViolation reconoce la violación del índice único en ambos drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// withTx ejecuta fn dentro de una transacción y hace commit si no hubo error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
