package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tradepulse/config"
	"github.com/alejandrodnm/tradepulse/internal/adapters/notify"
	"github.com/alejandrodnm/tradepulse/internal/adapters/storage"
	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// ensureAccount crea la cuenta con los valores de config la primera vez.
// Una cuenta existente no se toca: su balance lo lleva el ledger.
func ensureAccount(ctx context.Context, store *storage.Store, cfg config.AccountConfig) error {
	_, err := store.GetAccount(ctx, cfg.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		return err
	}
	acct, err := store.UpdateAccountSettings(ctx, cfg.ID, cfg.InitialBalance, cfg.RiskPercentage)
	if err != nil {
		return err
	}
	slog.Info("account created", "id", acct.ID, "balance", acct.Balance, "risk_pct", acct.RiskPercentage)
	return nil
}

// runSetAccount aplica -set-balance y/o -set-risk. Un valor negativo deja el campo como está.
func runSetAccount(ctx context.Context, store *storage.Store, accountID string, balance, riskPct float64) error {
	acct, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("set account: %w", err)
	}
	if balance < 0 {
		balance = acct.Balance
	}
	if riskPct < 0 {
		riskPct = acct.RiskPercentage
	}
	acct, err = store.UpdateAccountSettings(ctx, accountID, balance, riskPct)
	if err != nil {
		return fmt.Errorf("set account: %w", err)
	}
	notify.NewConsole().PrintAccount(acct)
	return nil
}

// runFlush borra las posiciones ACTIVE de la cuenta.
func runFlush(ctx context.Context, store *storage.Store, accountID string) error {
	n, err := store.FlushActive(ctx, accountID)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	slog.Info("active positions flushed", "account", accountID, "deleted", n)
	return nil
}

// runReport imprime cuenta, posiciones y los últimos backtests.
func runReport(ctx context.Context, store *storage.Store, accountID string) error {
	console := notify.NewConsole()

	acct, err := store.RecomputeAccountStats(ctx, accountID)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	console.PrintAccount(acct)

	active, err := store.ListPositions(ctx, accountID, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	console.PrintPositions("OPEN POSITIONS", active)

	all, err := store.ListPositions(ctx, accountID, "")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	closed := make([]domain.Position, 0, len(all))
	for _, p := range all {
		if p.Status != domain.StatusActive {
			closed = append(closed, p)
		}
	}
	console.PrintPositions("CLOSED POSITIONS", closed)

	runs, err := store.ListBacktestRuns(ctx, accountID, 10)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if len(runs) > 0 {
		console.PrintBacktestReport(runs)
	}
	return nil
}
