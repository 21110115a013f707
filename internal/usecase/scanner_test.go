package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
	"ChochScan/internal/services/detect"
	pkgcache "ChochScan/pkg/cache"
	"ChochScan/pkg/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	fetches int
}

func (f *fakeSource) FetchClosedCandles(_ context.Context, _ string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	out := make([]models.Candle, limit)
	start := time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC)
	for i := range out {
		t := start.Add(time.Duration(i) * tf.Duration())
		out[i] = models.Candle{OpenTime: t, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	return out, nil
}

func (f *fakeSource) Health(context.Context) error { return nil }

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type nopMetrics struct{}

func (nopMetrics) RecordScan(string, drepo.Timeframe, float64)          {}
func (nopMetrics) RecordSignal(string, drepo.Timeframe, string, string) {}
func (nopMetrics) RecordScanError(string)                               {}
func (nopMetrics) RecordLastClose(drepo.Timeframe, time.Time)           {}

func testScanner(t *testing.T, source drepo.CandleSource, opts ...ScannerOption) *Scanner {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	det := detect.New(detect.DefaultConfig())
	return NewScanner(source, nil, det, nil, nil, nopMetrics{}, log, opts...)
}

func TestBaseWindowSharedAcrossTimeframes(t *testing.T) {
	src := &fakeSource{}
	s := testScanner(t, src, WithWindowCache(pkgcache.NewMemoryCache()))

	// 10m needs 102 base candles, 20m needs 204. One oversized fetch
	// must serve both.
	w1, err := s.baseWindow(context.Background(), "BTCUSDT", 102)
	if err != nil {
		t.Fatalf("first baseWindow: %v", err)
	}
	if len(w1) != 102 {
		t.Fatalf("first window len = %d, want 102", len(w1))
	}
	w2, err := s.baseWindow(context.Background(), "BTCUSDT", 204)
	if err != nil {
		t.Fatalf("second baseWindow: %v", err)
	}
	if len(w2) != 204 {
		t.Fatalf("second window len = %d, want 204", len(w2))
	}
	if got := src.fetchCount(); got != 1 {
		t.Fatalf("exchange fetched %d times, want 1", got)
	}
	if !w1[len(w1)-1].OpenTime.Equal(w2[len(w2)-1].OpenTime) {
		t.Fatal("windows disagree on the newest candle")
	}
}

func TestBaseWindowWithoutCacheFetchesExact(t *testing.T) {
	src := &fakeSource{}
	s := testScanner(t, src)

	w, err := s.baseWindow(context.Background(), "ETHUSDT", 102)
	if err != nil {
		t.Fatalf("baseWindow: %v", err)
	}
	if len(w) != 102 {
		t.Fatalf("window len = %d, want 102", len(w))
	}
	if got := src.fetchCount(); got != 1 {
		t.Fatalf("exchange fetched %d times, want 1", got)
	}
}

func TestBuildSignalCopiesPivots(t *testing.T) {
	res := models.DetectionResult{
		Fired:      true,
		Direction:  models.DirectionDown,
		Group:      models.GroupG2,
		Price:      3150.25,
		SignalTime: time.Date(2025, 10, 24, 17, 10, 0, 0, time.UTC),
	}
	for i := 0; i < 8; i++ {
		res.Pivots = append(res.Pivots, models.Pivot{Price: float64(100 + i), BarIndex: 10 + i})
	}

	sig := buildSignal("ETHUSDT", drepo.TF10m, res)
	if sig.Symbol != "ETHUSDT" || sig.Timeframe != "10m" {
		t.Fatalf("identity = %s/%s", sig.Symbol, sig.Timeframe)
	}
	if sig.Direction != models.DirectionDown || sig.Group != models.GroupG2 {
		t.Fatalf("direction/group = %s/%s", sig.Direction, sig.Group)
	}
	for i := 0; i < 8; i++ {
		if sig.PivotPrices[i] != float64(100+i) || sig.PivotBars[i] != 10+i {
			t.Fatalf("pivot %d = (%v, %d)", i, sig.PivotPrices[i], sig.PivotBars[i])
		}
	}
}

func TestErrKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{drepo.ErrMalformedInput, "malformed_input"},
		{drepo.ErrInsufficientData, "insufficient_data"},
		{fmt.Errorf("klines: %w", drepo.ErrFetchTransient), "fetch_transient"},
		{drepo.ErrFetchFatal, "fetch_fatal"},
		{fmt.Errorf("insert: %w", drepo.ErrSinkTransient), "sink_transient"},
		{drepo.ErrSinkFatal, "sink_fatal"},
		{drepo.ErrLogicAssertion, "logic_assertion"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := errKind(tt.err); got != tt.want {
			t.Errorf("errKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStateForIsStablePerPair(t *testing.T) {
	s := testScanner(t, &fakeSource{})
	a := s.stateFor("BTCUSDT", drepo.TF5m)
	b := s.stateFor("BTCUSDT", drepo.TF5m)
	c := s.stateFor("BTCUSDT", drepo.TF15m)
	if a != b {
		t.Fatal("same pair returned distinct states")
	}
	if a == c {
		t.Fatal("distinct timeframes share state")
	}
	if got := s.StateCount(); got != 2 {
		t.Fatalf("StateCount = %d, want 2", got)
	}
}
