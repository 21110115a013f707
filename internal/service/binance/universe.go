package binance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	drepo "ChochScan/internal/domain/repository"
	phttp "ChochScan/pkg/http"
	"ChochScan/pkg/logger"
)

const universeTTL = 30 * time.Minute

// alwaysIncluded are kept in the universe regardless of volume rank.
var alwaysIncluded = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}

// Universe resolves the configured symbol set into concrete exchange
// symbols. An explicit list passes through untouched; the sentinel
// "ALL" expands to the top-N USDT pairs by 24h quote volume.
type Universe struct {
	client  *Client
	symbols []string
	topN    int
	log     *logger.Logger

	mu        sync.Mutex
	cached    []string
	expiresAt time.Time
}

// NewUniverse builds a SymbolUniverse over the given client. symbols is
// the raw configured list; topN bounds the "ALL" expansion.
func NewUniverse(client *Client, symbols []string, topN int, log *logger.Logger) *Universe {
	return &Universe{client: client, symbols: symbols, topN: topN, log: log}
}

// ActiveSymbols returns the symbols to scan this cycle.
func (u *Universe) ActiveSymbols(ctx context.Context) ([]string, error) {
	if !u.wantsAll() {
		return append([]string(nil), u.symbols...), nil
	}

	u.mu.Lock()
	if time.Now().Before(u.expiresAt) && len(u.cached) > 0 {
		out := append([]string(nil), u.cached...)
		u.mu.Unlock()
		return out, nil
	}
	u.mu.Unlock()

	resolved, err := u.resolveAll(ctx)
	if err != nil {
		// Serve the stale set rather than skipping a scan cycle.
		u.mu.Lock()
		cached := append([]string(nil), u.cached...)
		u.mu.Unlock()
		if len(cached) > 0 {
			u.log.Warn("symbol universe refresh failed, using stale set", logger.Error(err), logger.Int("symbols", len(cached)))
			return cached, nil
		}
		return nil, err
	}

	u.mu.Lock()
	u.cached = resolved
	u.expiresAt = time.Now().Add(universeTTL)
	u.mu.Unlock()

	u.log.Info("symbol universe refreshed", logger.Int("symbols", len(resolved)), logger.Int("top_n", u.topN))
	return append([]string(nil), resolved...), nil
}

func (u *Universe) wantsAll() bool {
	if len(u.symbols) == 0 {
		return true
	}
	for _, s := range u.symbols {
		if strings.EqualFold(strings.TrimSpace(s), "ALL") {
			return true
		}
	}
	return false
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

type ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

func (u *Universe) resolveAll(ctx context.Context) ([]string, error) {
	if !u.client.limiter.Allow("universe", 2, 0.1) {
		return nil, fmt.Errorf("%w: universe rate limit", drepo.ErrFetchTransient)
	}

	var info exchangeInfo
	if err := u.client.http.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    u.client.baseURL + "/api/v3/exchangeInfo",
	}, &info); err != nil {
		return nil, fmt.Errorf("%w: exchangeInfo: %v", drepo.ErrFetchTransient, err)
	}

	trading := make(map[string]bool, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" && s.QuoteAsset == "USDT" {
			trading[s.Symbol] = true
		}
	}

	var tickers []ticker24h
	if err := u.client.http.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    u.client.baseURL + "/api/v3/ticker/24hr",
	}, &tickers); err != nil {
		return nil, fmt.Errorf("%w: ticker/24hr: %v", drepo.ErrFetchTransient, err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	byVolume := make([]ranked, 0, len(tickers))
	for _, t := range tickers {
		if !trading[t.Symbol] {
			continue
		}
		v, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			continue
		}
		byVolume = append(byVolume, ranked{symbol: t.Symbol, volume: v})
	}
	sort.Slice(byVolume, func(i, j int) bool { return byVolume[i].volume > byVolume[j].volume })

	seen := make(map[string]bool, u.topN+len(alwaysIncluded))
	out := make([]string, 0, u.topN+len(alwaysIncluded))
	for _, s := range alwaysIncluded {
		if trading[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, r := range byVolume {
		if len(out) >= u.topN {
			break
		}
		if !seen[r.symbol] {
			seen[r.symbol] = true
			out = append(out, r.symbol)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: universe resolved to zero symbols", drepo.ErrFetchFatal)
	}
	sort.Strings(out)
	return out, nil
}
