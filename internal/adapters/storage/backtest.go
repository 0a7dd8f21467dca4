package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

type backtestRunRow struct {
	ID                 string    `db:"id"`
	AccountID          string    `db:"account_id"`
	Asset              string    `db:"asset"`
	Timeframe          string    `db:"timeframe"`
	InitialBalance     float64   `db:"initial_balance"`
	FinalBalance       float64   `db:"final_balance"`
	TotalPnL           float64   `db:"total_pnl"`
	WinRatePercent     float64   `db:"win_rate_percent"`
	ProfitFactor       float64   `db:"profit_factor"`
	MaxDrawdownPercent float64   `db:"max_drawdown_percent"`
	Wins               int       `db:"wins"`
	Losses             int       `db:"losses"`
	Candles            int       `db:"candles"`
	CreatedAt          time.Time `db:"created_at"`
}

type backtestTradeRow struct {
	RunID      string       `db:"run_id"`
	Seq        int          `db:"seq"`
	Direction  string       `db:"direction"`
	Entry      float64      `db:"entry"`
	StopLoss   float64      `db:"stop_loss"`
	TakeProfit float64      `db:"take_profit"`
	RiskAmount float64      `db:"risk_amount"`
	Status     string       `db:"status"`
	PnL        float64      `db:"pnl"`
	OpenedAt   time.Time    `db:"opened_at"`
	ClosedAt   sql.NullTime `db:"closed_at"`
}

// SaveBacktestRun implementa ports.BacktestStore. Guarda el informe y sus trades
// en una transacción; los trades conservan el orden del informe (más reciente primero).
func (s *Store) SaveBacktestRun(ctx context.Context, run domain.BacktestRun) error {
	run.AccountID = domain.DefaultAccount(run.AccountID).ID
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO backtest_runs (id, account_id, asset, timeframe, initial_balance, final_balance,
			    total_pnl, win_rate_percent, profit_factor, max_drawdown_percent, wins, losses, candles, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			run.ID, run.AccountID, run.Asset, run.Timeframe, run.InitialBalance, run.FinalBalance,
			run.TotalPnL, run.WinRatePercent, run.ProfitFactor, run.MaxDrawdownPercent,
			run.Wins, run.Losses, run.Candles, run.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, s.q(
			`INSERT INTO backtest_trades (run_id, seq, direction, entry, stop_loss, take_profit,
			    risk_amount, status, pnl, opened_at, closed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare trade insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range run.Trades {
			var closedAt any
			if p.ClosedAt != nil {
				closedAt = p.ClosedAt.UTC()
			}
			if _, err := stmt.ExecContext(ctx,
				run.ID, i, string(p.Direction), p.Entry, p.StopLoss, p.TakeProfit,
				p.RiskAmount, string(p.Status), p.PnL, p.OpenedAt.UTC(), closedAt,
			); err != nil {
				return fmt.Errorf("insert trade %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage.SaveBacktestRun: %w", err)
	}
	return nil
}

// ListBacktestRuns implementa ports.BacktestStore. Devuelve los últimos limit
// informes de la cuenta (el más reciente primero) con sus trades.
func (s *Store) ListBacktestRuns(ctx context.Context, accountID string, limit int) ([]domain.BacktestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []backtestRunRow
	if err := s.db.SelectContext(ctx, &rows, s.q(
		`SELECT id, account_id, asset, timeframe, initial_balance, final_balance, total_pnl,
		        win_rate_percent, profit_factor, max_drawdown_percent, wins, losses, candles, created_at
		 FROM backtest_runs WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`),
		domain.DefaultAccount(accountID).ID, limit,
	); err != nil {
		return nil, fmt.Errorf("storage.ListBacktestRuns: %w", err)
	}

	runs := make([]domain.BacktestRun, 0, len(rows))
	for _, r := range rows {
		run := domain.BacktestRun{
			ID:                 r.ID,
			AccountID:          r.AccountID,
			Asset:              r.Asset,
			Timeframe:          r.Timeframe,
			InitialBalance:     r.InitialBalance,
			FinalBalance:       r.FinalBalance,
			TotalPnL:           r.TotalPnL,
			WinRatePercent:     r.WinRatePercent,
			ProfitFactor:       r.ProfitFactor,
			MaxDrawdownPercent: r.MaxDrawdownPercent,
			Wins:               r.Wins,
			Losses:             r.Losses,
			Candles:            r.Candles,
			CreatedAt:          r.CreatedAt,
		}
		var trades []backtestTradeRow
		if err := s.db.SelectContext(ctx, &trades, s.q(
			`SELECT run_id, seq, direction, entry, stop_loss, take_profit, risk_amount, status, pnl, opened_at, closed_at
			 FROM backtest_trades WHERE run_id = ? ORDER BY seq ASC`), r.ID,
		); err != nil {
			return nil, fmt.Errorf("storage.ListBacktestRuns: trades for %s: %w", r.ID, err)
		}
		for _, t := range trades {
			p := domain.Position{
				ID:         fmt.Sprintf("%s-%d", t.RunID, t.Seq),
				AccountID:  r.AccountID,
				Symbol:     r.Asset,
				Direction:  domain.Direction(t.Direction),
				Entry:      t.Entry,
				StopLoss:   t.StopLoss,
				TakeProfit: t.TakeProfit,
				RiskAmount: t.RiskAmount,
				Status:     domain.PositionStatus(t.Status),
				PnL:        t.PnL,
				Source:     domain.SourceCandle,
				OpenedAt:   t.OpenedAt,
			}
			if t.ClosedAt.Valid {
				ct := t.ClosedAt.Time
				p.ClosedAt = &ct
			}
			run.Trades = append(run.Trades, p)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
