package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

type positionRow struct {
	ID         string       `db:"id"`
	AccountID  string       `db:"account_id"`
	Symbol     string       `db:"symbol"`
	Direction  string       `db:"direction"`
	Entry      float64      `db:"entry"`
	StopLoss   float64      `db:"stop_loss"`
	TakeProfit float64      `db:"take_profit"`
	RiskAmount float64      `db:"risk_amount"`
	Size       float64      `db:"size"`
	Status     string       `db:"status"`
	PnL        float64      `db:"pnl"`
	Source     string       `db:"source"`
	OpenedAt   time.Time    `db:"opened_at"`
	ClosedAt   sql.NullTime `db:"closed_at"`
}

func (r positionRow) toDomain() domain.Position {
	p := domain.Position{
		ID:         r.ID,
		AccountID:  r.AccountID,
		Symbol:     r.Symbol,
		Direction:  domain.Direction(r.Direction),
		Entry:      r.Entry,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		RiskAmount: r.RiskAmount,
		Size:       r.Size,
		Status:     domain.PositionStatus(r.Status),
		PnL:        r.PnL,
		Source:     domain.SetupSource(r.Source),
		OpenedAt:   r.OpenedAt,
	}
	if r.ClosedAt.Valid {
		t := r.ClosedAt.Time
		p.ClosedAt = &t
	}
	return p
}

const positionColumns = `id, account_id, symbol, direction, entry, stop_loss, take_profit,
	risk_amount, size, status, pnl, source, opened_at, closed_at`

// OpenPosition implementa ports.TradeStore.
// La comprobación del límite y el insert van en la misma transacción; el índice
// único parcial sobre ACTIVE cubre el caso de dos procesos compitiendo.
func (s *Store) OpenPosition(ctx context.Context, p domain.Position) error {
	if p.Status == "" {
		p.Status = domain.StatusActive
	}
	p.AccountID = domain.DefaultAccount(p.AccountID).ID

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ensureAccountTx(ctx, tx, p.AccountID); err != nil {
			return err
		}
		var active int
		if err := tx.GetContext(ctx, &active, s.q(
			`SELECT COUNT(*) FROM positions WHERE account_id = ? AND symbol = ? AND status = 'ACTIVE'`),
			p.AccountID, p.Symbol,
		); err != nil {
			return fmt.Errorf("count active: %w", err)
		}
		if active > 0 {
			return domain.ErrPositionLimit
		}

		var closedAt any
		if p.ClosedAt != nil {
			closedAt = p.ClosedAt.UTC()
		}
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO positions (`+positionColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			p.ID, p.AccountID, p.Symbol, string(p.Direction), p.Entry, p.StopLoss, p.TakeProfit,
			p.RiskAmount, p.Size, string(p.Status), p.PnL, string(p.Source), p.OpenedAt.UTC(), closedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrPositionLimit
			}
			return fmt.Errorf("insert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage.OpenPosition: %w", err)
	}
	return nil
}

// HasActivePosition implementa ports.TradeStore.
func (s *Store) HasActivePosition(ctx context.Context, accountID, symbol string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(
		`SELECT COUNT(*) FROM positions WHERE account_id = ? AND symbol = ? AND status = 'ACTIVE'`),
		domain.DefaultAccount(accountID).ID, symbol,
	); err != nil {
		return false, fmt.Errorf("storage.HasActivePosition: %w", err)
	}
	return n > 0, nil
}

// ActivePositions implementa ports.TradeStore. Devuelve las ACTIVE de todas las cuentas.
func (s *Store) ActivePositions(ctx context.Context) ([]domain.Position, error) {
	var rows []positionRow
	if err := s.db.SelectContext(ctx, &rows, s.q(
		`SELECT `+positionColumns+` FROM positions WHERE status = 'ACTIVE' ORDER BY opened_at ASC, id ASC`),
	); err != nil {
		return nil, fmt.Errorf("storage.ActivePositions: %w", err)
	}
	return toPositions(rows), nil
}

// ClosePosition implementa ports.TradeStore.
//
// El UPDATE solo afecta filas con status = 'ACTIVE'. Si no afecta ninguna, la
// posición ya estaba cerrada y no se toca la cuenta. Si la cierra, en la misma
// transacción suma el PnL al balance y recalcula total de cerradas y win rate.
func (s *Store) ClosePosition(ctx context.Context, id string, status domain.PositionStatus, pnl float64, at time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("storage.ClosePosition: %s is not a terminal status", status)
	}

	closed := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE positions SET status = ?, pnl = ?, closed_at = ? WHERE id = ? AND status = 'ACTIVE'`),
			string(status), pnl, at.UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}

		var accountID string
		if err := tx.GetContext(ctx, &accountID, s.q(`SELECT account_id FROM positions WHERE id = ?`), id); err != nil {
			return fmt.Errorf("select account id: %w", err)
		}
		if _, err := s.ensureAccountTx(ctx, tx, accountID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE accounts SET balance = balance + ? WHERE id = ?`), pnl, accountID); err != nil {
			return fmt.Errorf("apply pnl: %w", err)
		}
		if err := s.recomputeStatsTx(ctx, tx, accountID); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("storage.ClosePosition: %w", err)
	}
	return closed, nil
}

// ListPositions implementa ports.TradeStore. status vacío devuelve todas.
// Orden: la más reciente primero.
func (s *Store) ListPositions(ctx context.Context, accountID string, status domain.PositionStatus) ([]domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE account_id = ?`
	args := []any{domain.DefaultAccount(accountID).ID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY opened_at DESC, id DESC`

	var rows []positionRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("storage.ListPositions: %w", err)
	}
	return toPositions(rows), nil
}

// FlushActive implementa ports.TradeStore.
func (s *Store) FlushActive(ctx context.Context, accountID string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM positions WHERE account_id = ? AND status = 'ACTIVE'`),
		domain.DefaultAccount(accountID).ID)
	if err != nil {
		return 0, fmt.Errorf("storage.FlushActive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.FlushActive: rows affected: %w", err)
	}
	return int(n), nil
}

func toPositions(rows []positionRow) []domain.Position {
	out := make([]domain.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
