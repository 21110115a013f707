package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
	"ChochScan/internal/service/ratelimit"
	phttp "ChochScan/pkg/http"
	"ChochScan/pkg/logger"
)

const (
	defaultBaseURL = "https://api.binance.com"

	// REST weight budget: the public API allows 6000 weight/min,
	// klines cost 2 each. Stay well under.
	restBurst     = 20
	restPerSecond = 10
)

// Client fetches closed klines from the Binance spot REST API.
type Client struct {
	baseURL string
	http    *phttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the REST endpoint (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *phttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Binance kline client.
func NewClient(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		limiter: ratelimit.New(),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = phttp.NewClient(phttp.WithTimeout(15 * time.Second))
	}
	return c
}

// nativeInterval maps a timeframe to the exchange interval string.
// Aggregated timeframes have no native interval and must be built
// from 5m bars by the caller.
func nativeInterval(tf drepo.Timeframe) (string, bool) {
	switch tf {
	case drepo.TF5m:
		return "5m", true
	case drepo.TF15m:
		return "15m", true
	case drepo.TF30m:
		return "30m", true
	case drepo.TF1h:
		return "1h", true
	default:
		return "", false
	}
}

// FetchClosedCandles returns the most recent limit closed candles for a
// natively supported timeframe, oldest first. The forming bar is dropped.
func (c *Client) FetchClosedCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	interval, ok := nativeInterval(tf)
	if !ok {
		return nil, fmt.Errorf("%w: timeframe %s has no native interval", drepo.ErrFetchFatal, tf)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit %d", drepo.ErrFetchFatal, limit)
	}

	if !c.limiter.Allow("klines", restBurst, restPerSecond) {
		return nil, fmt.Errorf("%w: local rate limit", drepo.ErrFetchTransient)
	}

	// Ask for one extra bar; the last entry may be the forming candle.
	resp, err := c.http.SendRequest(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    c.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {interval},
			"limit":    {strconv.Itoa(limit + 1)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: klines %s %s: %v", drepo.ErrFetchTransient, symbol, tf, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, resp.Body); err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode klines: %v", drepo.ErrMalformedInput, err)
	}

	candles, err := parseKlines(rows, tf.Duration())
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// Health pings the exchange.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.SendRequest(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    c.baseURL + "/api/v3/ping",
	})
	if err != nil {
		return fmt.Errorf("%w: ping: %v", drepo.ErrFetchTransient, err)
	}
	defer resp.Body.Close()
	return classifyStatus(resp.StatusCode, resp.Body)
}

// classifyStatus maps exchange HTTP statuses onto fetch error kinds.
// 429 and 418 are throttling, 5xx is exchange trouble; both are retryable.
// Any other non-2xx status is a request defect and retrying cannot help.
func classifyStatus(code int, body io.Reader) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	switch {
	case code == 429 || code == 418 || code >= 500:
		return fmt.Errorf("%w: status %d: %s", drepo.ErrFetchTransient, code, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", drepo.ErrFetchFatal, code, msg)
	}
}

// parseKlines converts raw kline rows into candles, dropping the still
// forming bar. Rows arrive as mixed arrays: open time is a number,
// prices and volume are decimal strings.
func parseKlines(rows [][]json.RawMessage, interval time.Duration) ([]models.Candle, error) {
	now := time.Now().UTC()
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: kline row has %d fields", drepo.ErrMalformedInput, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("%w: kline open time: %v", drepo.ErrMalformedInput, err)
		}
		c := models.Candle{OpenTime: time.UnixMilli(openMs).UTC()}

		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				return nil, fmt.Errorf("%w: kline field %d: %v", drepo.ErrMalformedInput, i+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: kline field %d: %v", drepo.ErrMalformedInput, i+1, err)
			}
			*dst = v
		}

		// Keep only bars whose close time has passed.
		if c.OpenTime.Add(interval).After(now) {
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", drepo.ErrMalformedInput, err)
		}
		out = append(out, c)
	}
	return out, nil
}
