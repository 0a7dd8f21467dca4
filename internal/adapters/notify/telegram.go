package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// Telegram implementa ports.SignalNotifier enviando un mensaje HTML a un chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram conecta con la Bot API. endpoint vacío usa api.telegram.org;
// si no, debe tener el formato de tgbotapi.APIEndpoint ("…/bot%s/%s").
func NewTelegram(token string, chatID int64, endpoint string) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("notify.NewTelegram: token and chat id are required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NotifySetup implementa ports.SignalNotifier.
func (t *Telegram) NotifySetup(ctx context.Context, a domain.SetupAlert) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatAlertHTML(a))
	msg.ParseMode = tgbotapi.ModeHTML

	// La Bot API no acepta context; el cliente HTTP acota la espera.
	errCh := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("notify.Telegram: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify.Telegram: %w", ctx.Err())
	}
}

// FormatAlertHTML construye el mensaje de alerta en el HTML que acepta Telegram.
func FormatAlertHTML(a domain.SetupAlert) string {
	return fmt.Sprintf(
		"🚨 <b>TradePulse Alert</b> 🚨\n\n"+
			"<b>Asset:</b> %s\n"+
			"<b>Signal:</b> %s\n\n"+
			"<b>🎯 Entry:</b> %s\n"+
			"<b>🛑 SL:</b> %s\n"+
			"<b>✅ TP:</b> %s\n"+
			"<b>Risk:</b> $%.2f\n"+
			"<i>%s</i>",
		html.EscapeString(a.Symbol),
		html.EscapeString(string(a.Signal)),
		formatPrice(a.Setup.Entry),
		formatPrice(a.Setup.StopLoss),
		formatPrice(a.Setup.TakeProfit),
		a.Risk,
		html.EscapeString(a.Label),
	)
}
