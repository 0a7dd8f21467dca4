package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// Console implementa ports.SignalNotifier y pinta los informes en tablas.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifySetup imprime una línea por posición abierta.
func (c *Console) NotifySetup(_ context.Context, a domain.SetupAlert) error {
	fmt.Fprintf(c.out, "[%s] %s %s entry=%s sl=%s tp=%s risk=$%.2f (%s) %s\n",
		a.CreatedAt.Format("15:04:05"),
		a.Signal, a.Symbol,
		formatPrice(a.Setup.Entry), formatPrice(a.Setup.StopLoss), formatPrice(a.Setup.TakeProfit),
		a.Risk, a.Setup.Source, a.Label)
	return nil
}

// PrintBacktestReport imprime el resumen de cada run y su log de trades.
func (c *Console) PrintBacktestReport(runs []domain.BacktestRun) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No backtest runs.")
		return
	}

	fmt.Fprintf(c.out, "\n── BACKTEST SUMMARY (%d runs) ──\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "TF", "Candles", "Trades", "W/L", "Win%", "PF", "MaxDD%", "PnL", "Final")
	for _, r := range runs {
		table.Append(
			r.Asset,
			r.Timeframe,
			fmt.Sprintf("%d", r.Candles),
			fmt.Sprintf("%d", r.TotalTrades()),
			fmt.Sprintf("%d/%d", r.Wins, r.Losses),
			fmt.Sprintf("%.1f", r.WinRatePercent),
			formatProfitFactor(r.ProfitFactor),
			fmt.Sprintf("%.2f", r.MaxDrawdownPercent),
			formatMoney(r.TotalPnL),
			fmt.Sprintf("$%.2f", r.FinalBalance),
		)
	}
	table.Render()

	for _, r := range runs {
		c.printTradeLog(r)
	}
}

func (c *Console) printTradeLog(r domain.BacktestRun) {
	fmt.Fprintf(c.out, "\n── TRADES %s %s (%d, most recent first) ──\n", r.Asset, r.Timeframe, len(r.Trades))
	if len(r.Trades) == 0 {
		fmt.Fprintln(c.out, "  (none)")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Opened", "Dir", "Entry", "SL", "TP", "Risk", "Status", "PnL")
		for i, p := range r.Trades {
			table.Append(
				fmt.Sprintf("%d", i+1),
				p.OpenedAt.Format("2006-01-02 15:04"),
				string(p.Direction),
				formatPrice(p.Entry),
				formatPrice(p.StopLoss),
				formatPrice(p.TakeProfit),
				fmt.Sprintf("$%.2f", p.RiskAmount),
				string(p.Status),
				formatMoney(p.PnL),
			)
		}
		table.Render()
	}
	if r.Open != nil {
		fmt.Fprintf(c.out, "  still open: %s entry=%s sl=%s tp=%s\n",
			r.Open.Direction, formatPrice(r.Open.Entry), formatPrice(r.Open.StopLoss), formatPrice(r.Open.TakeProfit))
	}
}

// PrintPositions imprime las posiciones dadas (abiertas o cerradas).
func (c *Console) PrintPositions(title string, positions []domain.Position) {
	fmt.Fprintf(c.out, "\n── %s (%d) ──\n", strings.ToUpper(title), len(positions))
	if len(positions) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Dir", "Entry", "SL", "TP", "Risk", "Status", "PnL", "Source", "Age")
	for _, p := range positions {
		age := time.Since(p.OpenedAt).Truncate(time.Minute)
		if p.ClosedAt != nil {
			age = p.ClosedAt.Sub(p.OpenedAt).Truncate(time.Minute)
		}
		table.Append(
			p.Symbol,
			string(p.Direction),
			formatPrice(p.Entry),
			formatPrice(p.StopLoss),
			formatPrice(p.TakeProfit),
			fmt.Sprintf("$%.2f", p.RiskAmount),
			string(p.Status),
			formatMoney(p.PnL),
			string(p.Source),
			age.String(),
		)
	}
	table.Render()
}

// PrintAccount imprime el estado de la cuenta.
func (c *Console) PrintAccount(a domain.Account) {
	fmt.Fprintf(c.out, "\n── ACCOUNT %s ──\n", a.ID)
	fmt.Fprintf(c.out, "  Balance:       $%.2f\n", a.Balance)
	fmt.Fprintf(c.out, "  Risk/trade:    %.2f%% ($%.2f)\n", a.RiskPercentage, domain.RiskAmount(a.Balance, a.RiskPercentage))
	fmt.Fprintf(c.out, "  Closed trades: %d\n", a.TotalClosedTrades)
	fmt.Fprintf(c.out, "  Win rate:      %.1f%%\n", a.WinRatePercent)
}

// PrintResolution imprime el resultado de una pasada del resolver.
func (c *Console) PrintResolution(r domain.ResolutionReport) {
	fmt.Fprintf(c.out, "[%s] resolver: checked=%d resolved=%d\n", time.Now().Format("15:04:05"), r.Checked, r.Resolved)
}

// formatPrice ajusta los decimales a la magnitud del precio (forex vs cripto).
func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.6f", p)
	}
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

func formatProfitFactor(pf float64) string {
	if pf == domain.ProfitFactorNoLosses {
		return "∞"
	}
	return fmt.Sprintf("%.2f", pf)
}
