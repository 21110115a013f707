package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	drepo "ChochScan/internal/domain/repository"
	"ChochScan/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func klineRow(openTime time.Time, o, h, l, c, v float64) string {
	return fmt.Sprintf(`[%d,"%v","%v","%v","%v","%v",%d,"0",0,"0","0","0"]`,
		openTime.UnixMilli(), o, h, l, c, v, openTime.Add(5*time.Minute).UnixMilli()-1)
}

func TestFetchClosedCandlesDropsFormingBar(t *testing.T) {
	base := time.Now().UTC().Truncate(5 * time.Minute).Add(-15 * time.Minute)
	rows := []string{
		klineRow(base, 100, 101, 99, 100.5, 12.5),
		klineRow(base.Add(5*time.Minute), 100.5, 102, 100, 101, 8),
		klineRow(base.Add(10*time.Minute), 101, 101.5, 100.5, 101.2, 5),
		klineRow(base.Add(15*time.Minute), 101.2, 101.4, 101, 101.3, 1), // forming
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("interval"); got != "5m" {
			t.Errorf("interval = %q", got)
		}
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))
	candles, err := c.FetchClosedCandles(context.Background(), "BTCUSDT", drepo.TF5m, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	last := candles[2]
	if !last.OpenTime.Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("last open time %v, forming bar not dropped", last.OpenTime)
	}
	first := candles[0]
	if first.Open != 100 || first.High != 101 || first.Low != 99 || first.Close != 100.5 || first.Volume != 12.5 {
		t.Fatalf("parsed candle %+v", first)
	}
}

func TestFetchClosedCandlesThrottledIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))
	_, err := c.FetchClosedCandles(context.Background(), "BTCUSDT", drepo.TF5m, 50)
	if !errors.Is(err, drepo.ErrFetchTransient) {
		t.Fatalf("expected ErrFetchTransient, got %v", err)
	}
}

func TestFetchClosedCandlesBadRequestIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))
	_, err := c.FetchClosedCandles(context.Background(), "NOPEUSDT", drepo.TF5m, 50)
	if !errors.Is(err, drepo.ErrFetchFatal) {
		t.Fatalf("expected ErrFetchFatal, got %v", err)
	}
}

func TestFetchClosedCandlesRejectsAggregatedTimeframe(t *testing.T) {
	c := NewClient(testLogger(t), WithBaseURL("http://unused"))
	_, err := c.FetchClosedCandles(context.Background(), "BTCUSDT", drepo.TF25m, 50)
	if !errors.Is(err, drepo.ErrFetchFatal) {
		t.Fatalf("expected ErrFetchFatal for aggregated timeframe, got %v", err)
	}
}

func TestUniverseExplicitListPassesThrough(t *testing.T) {
	u := NewUniverse(NewClient(testLogger(t)), []string{"BTCUSDT", "SOLUSDT"}, 100, testLogger(t))
	got, err := u.ActiveSymbols(context.Background())
	if err != nil {
		t.Fatalf("active symbols: %v", err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "SOLUSDT" {
		t.Fatalf("symbols = %v", got)
	}
}

func TestUniverseAllExpandsTopN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			fmt.Fprint(w, `{"symbols":[
				{"symbol":"BTCUSDT","status":"TRADING","quoteAsset":"USDT"},
				{"symbol":"ETHUSDT","status":"TRADING","quoteAsset":"USDT"},
				{"symbol":"BNBUSDT","status":"TRADING","quoteAsset":"USDT"},
				{"symbol":"SOLUSDT","status":"TRADING","quoteAsset":"USDT"},
				{"symbol":"DOGEUSDT","status":"TRADING","quoteAsset":"USDT"},
				{"symbol":"HALTUSDT","status":"BREAK","quoteAsset":"USDT"},
				{"symbol":"ETHBTC","status":"TRADING","quoteAsset":"BTC"}]}`)
		case "/api/v3/ticker/24hr":
			fmt.Fprint(w, `[
				{"symbol":"BTCUSDT","quoteVolume":"900"},
				{"symbol":"ETHUSDT","quoteVolume":"800"},
				{"symbol":"BNBUSDT","quoteVolume":"10"},
				{"symbol":"SOLUSDT","quoteVolume":"700"},
				{"symbol":"DOGEUSDT","quoteVolume":"600"},
				{"symbol":"HALTUSDT","quoteVolume":"9999"},
				{"symbol":"ETHBTC","quoteVolume":"9999"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))
	u := NewUniverse(c, []string{"ALL"}, 4, testLogger(t))
	got, err := u.ActiveSymbols(context.Background())
	if err != nil {
		t.Fatalf("active symbols: %v", err)
	}
	want := map[string]bool{"BTCUSDT": true, "ETHUSDT": true, "BNBUSDT": true, "SOLUSDT": true}
	if len(got) != 4 {
		t.Fatalf("got %d symbols %v, want 4", len(got), got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("unexpected symbol %s in %v", s, got)
		}
	}

	// Second call is served from cache without touching the server.
	srv.Close()
	again, err := u.ActiveSymbols(context.Background())
	if err != nil {
		t.Fatalf("cached active symbols: %v", err)
	}
	if len(again) != 4 {
		t.Fatalf("cached set = %v", again)
	}
}
