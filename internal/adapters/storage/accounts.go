package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

type accountRow struct {
	ID                string    `db:"id"`
	Balance           float64   `db:"balance"`
	RiskPercentage    float64   `db:"risk_percentage"`
	TotalClosedTrades int       `db:"total_closed_trades"`
	WinRatePercent    float64   `db:"win_rate_percent"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:                r.ID,
		Balance:           r.Balance,
		RiskPercentage:    r.RiskPercentage,
		TotalClosedTrades: r.TotalClosedTrades,
		WinRatePercent:    r.WinRatePercent,
		UpdatedAt:         r.UpdatedAt,
	}
}

const accountColumns = `id, balance, risk_percentage, total_closed_trades, win_rate_percent, updated_at`

// ErrAccountNotFound se devuelve cuando la cuenta no existe.
var ErrAccountNotFound = errors.New("account not found")

// EnsureAccount implementa ports.TradeStore.
// Si la cuenta no existe la crea con balance 10000 y riesgo 1%.
func (s *Store) EnsureAccount(ctx context.Context, id string) (domain.Account, error) {
	var acct domain.Account
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		a, err := s.ensureAccountTx(ctx, tx, id)
		acct = a
		return err
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: %w", err)
	}
	return acct, nil
}

func (s *Store) ensureAccountTx(ctx context.Context, tx *sqlx.Tx, id string) (domain.Account, error) {
	def := domain.DefaultAccount(id)
	if _, err := tx.ExecContext(ctx, s.q(
		`INSERT INTO accounts (id, balance, risk_percentage, total_closed_trades, win_rate_percent, updated_at)
		 VALUES (?, ?, ?, 0, 0, ?) ON CONFLICT (id) DO NOTHING`),
		def.ID, def.Balance, def.RiskPercentage, time.Now().UTC(),
	); err != nil {
		return domain.Account{}, fmt.Errorf("insert default account: %w", err)
	}
	var row accountRow
	if err := tx.GetContext(ctx, &row, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), def.ID); err != nil {
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}
	return row.toDomain(), nil
}

// GetAccount implementa ports.TradeStore.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	id = domain.DefaultAccount(id).ID
	var row accountRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("storage.GetAccount: %s: %w", id, ErrAccountNotFound)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("storage.GetAccount: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateAccountSettings implementa ports.TradeStore. Valida antes de tocar la base.
func (s *Store) UpdateAccountSettings(ctx context.Context, id string, balance, riskPct float64) (domain.Account, error) {
	if err := domain.ValidateAccountSettings(balance, riskPct); err != nil {
		return domain.Account{}, fmt.Errorf("storage.UpdateAccountSettings: %w", err)
	}
	id = domain.DefaultAccount(id).ID
	var acct domain.Account
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ensureAccountTx(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(
			`UPDATE accounts SET balance = ?, risk_percentage = ?, updated_at = ? WHERE id = ?`),
			balance, riskPct, time.Now().UTC(), id,
		); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		var row accountRow
		if err := tx.GetContext(ctx, &row, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id); err != nil {
			return fmt.Errorf("select account: %w", err)
		}
		acct = row.toDomain()
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("storage.UpdateAccountSettings: %w", err)
	}
	return acct, nil
}

// recomputeStatsTx recalcula total de cerradas y win rate desde el conjunto cerrado.
// Es idempotente: sin cierres nuevos produce los mismos valores.
func (s *Store) recomputeStatsTx(ctx context.Context, tx *sqlx.Tx, accountID string) error {
	var stats struct {
		Closed int `db:"closed"`
		Won    int `db:"won"`
	}
	if err := tx.GetContext(ctx, &stats, s.q(
		`SELECT COUNT(*) AS closed,
		        COALESCE(SUM(CASE WHEN status = 'WON' THEN 1 ELSE 0 END), 0) AS won
		 FROM positions WHERE account_id = ? AND status IN ('WON', 'LOST')`),
		accountID,
	); err != nil {
		return fmt.Errorf("count closed positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(
		`UPDATE accounts SET total_closed_trades = ?, win_rate_percent = ?, updated_at = ? WHERE id = ?`),
		stats.Closed, domain.WinRate(stats.Won, stats.Closed), time.Now().UTC(), accountID,
	); err != nil {
		return fmt.Errorf("update account stats: %w", err)
	}
	return nil
}

// RecomputeAccountStats recalcula los agregados de la cuenta fuera de un cierre.
func (s *Store) RecomputeAccountStats(ctx context.Context, accountID string) (domain.Account, error) {
	accountID = domain.DefaultAccount(accountID).ID
	var acct domain.Account
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ensureAccountTx(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.recomputeStatsTx(ctx, tx, accountID); err != nil {
			return err
		}
		var row accountRow
		if err := tx.GetContext(ctx, &row, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), accountID); err != nil {
			return fmt.Errorf("select account: %w", err)
		}
		acct = row.toDomain()
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("storage.RecomputeAccountStats: %w", err)
	}
	return acct, nil
}
