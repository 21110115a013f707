package telegram

import (
	"context"
	"fmt"
	"time"

	"ChochScan/internal/domain/models"
	"ChochScan/internal/service/ratelimit"
	phttp "ChochScan/pkg/http"
	"ChochScan/pkg/logger"
)

const (
	apiBase = "https://api.telegram.org"

	// Bot API allows ~30 messages/sec overall and 20/min per group.
	sendBurst     = 5
	sendPerSecond = 0.3
)

// Notifier pushes confirmed signals to a Telegram chat via the Bot API.
type Notifier struct {
	baseURL string
	token   string
	chatID  string
	http    *phttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

type Option func(*Notifier)

// WithBaseURL overrides the Bot API endpoint (tests).
func WithBaseURL(u string) Option {
	return func(n *Notifier) { n.baseURL = u }
}

// New creates a Telegram notifier.
func New(token, chatID string, log *logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		baseURL: apiBase,
		token:   token,
		chatID:  chatID,
		http:    phttp.NewClient(phttp.WithTimeout(10 * time.Second)),
		limiter: ratelimit.New(),
		log:     log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify formats and sends one signal message.
func (n *Notifier) Notify(ctx context.Context, s models.Signal) error {
	if !n.limiter.Allow("send", sendBurst, sendPerSecond) {
		return fmt.Errorf("telegram send throttled")
	}

	var resp sendResponse
	err := n.http.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token),
		Body: map[string]interface{}{
			"chat_id":    n.chatID,
			"text":       FormatMessage(s),
			"parse_mode": "HTML",
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send rejected: %s", resp.Description)
	}
	n.log.Debug("telegram notification sent",
		logger.String("symbol", s.Symbol),
		logger.String("timeframe", s.Timeframe),
	)
	return nil
}

// FormatMessage renders the alert text sent to the chat.
func FormatMessage(s models.Signal) string {
	kind := models.AlertTypeUp
	arrow := "↗"
	if s.Direction == models.DirectionDown {
		kind = models.AlertTypeDown
		arrow = "↘"
	}
	group := string(s.Group)
	if group == "" {
		group = "N/A"
	}
	return fmt.Sprintf(
		"%s <b>%s</b>\n%s %s\nGroup: %s\nPrice: %g\nCandle: %s\n<a href=\"%s\">Chart</a>",
		arrow, kind, s.Symbol, s.Timeframe, group, s.Price,
		s.SignalTime.UTC().Format("2006-01-02 15:04"),
		ChartLink(s.Symbol),
	)
}

// ChartLink returns the TradingView chart URL for a symbol.
func ChartLink(symbol string) string {
	return "https://www.tradingview.com/chart/?symbol=BINANCE:" + symbol
}
