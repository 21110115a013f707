package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
	mid "ChochScan/internal/middleware"
	"ChochScan/internal/services/candles"
	"ChochScan/internal/services/detect"
	"ChochScan/internal/services/timegrid"
	pkgcache "ChochScan/pkg/cache"
	"ChochScan/pkg/logger"
)

// windowCacheTTL keeps shared 5m windows alive long enough for every
// aggregated timeframe due in the same cycle, but well inside one 5m period.
const windowCacheTTL = 30 * time.Second

// Scanner drives detection for every (symbol, timeframe) pair. Each
// cycle it asks the scheduler which timeframes just closed, pulls the
// candle window for every active symbol, and runs the detector over it.
// Detection state is kept per pair so locks and validated patterns
// survive between cycles.
type Scanner struct {
	source    drepo.CandleSource
	universe  drepo.SymbolUniverse
	detector  *detect.Detector
	scheduler *timegrid.Scheduler
	pipe      *mid.SignalPipeline
	metrics   drepo.Metrics
	log       *logger.Logger

	workers  int
	winCache pkgcache.Service

	mu     sync.Mutex
	states map[string]*detect.State
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithWorkers bounds concurrent symbol fetches per cycle.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithWindowCache shares fetched 5m windows between aggregated timeframes
// that close in the same cycle.
func WithWindowCache(c pkgcache.Service) ScannerOption {
	return func(s *Scanner) { s.winCache = c }
}

// NewScanner creates the scan orchestrator.
func NewScanner(
	source drepo.CandleSource,
	universe drepo.SymbolUniverse,
	detector *detect.Detector,
	scheduler *timegrid.Scheduler,
	pipe *mid.SignalPipeline,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...ScannerOption,
) *Scanner {
	s := &Scanner{
		source:    source,
		universe:  universe,
		detector:  detector,
		scheduler: scheduler,
		pipe:      pipe,
		metrics:   metrics,
		log:       log,
		workers:   8,
		states:    make(map[string]*detect.State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDue scans every timeframe whose candle close (plus grace) has been
// reached since the previous call. Safe to call on a coarse ticker; the
// scheduler coalesces missed closes into one scan per timeframe.
func (s *Scanner) RunDue(ctx context.Context, now time.Time) {
	due := s.scheduler.Scannable(now)
	if len(due) == 0 {
		return
	}
	symbols, err := s.universe.ActiveSymbols(ctx)
	if err != nil {
		s.log.Error("symbol universe unavailable, skipping cycle", logger.Error(err))
		s.metrics.RecordScanError(errKind(err))
		return
	}
	for _, tf := range due {
		s.metrics.RecordLastClose(tf, timegrid.LastClose(tf, now))
		s.scanTimeframe(ctx, tf, symbols)
	}
}

// scanTimeframe fans symbol scans out over a bounded worker pool.
func (s *Scanner) scanTimeframe(ctx context.Context, tf drepo.Timeframe, symbols []string) {
	start := time.Now()
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				s.scanOne(ctx, sym, tf)
			}
		}()
	}
	for _, sym := range symbols {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- sym:
		}
	}
	close(jobs)
	wg.Wait()
	s.log.Info("timeframe scan complete",
		logger.String("timeframe", string(tf)),
		logger.Int("symbols", len(symbols)),
		logger.Duration("duration_ms", time.Since(start)),
	)
}

func (s *Scanner) scanOne(ctx context.Context, symbol string, tf drepo.Timeframe) {
	start := time.Now()
	window, err := s.fetchWindow(ctx, symbol, tf)
	if err != nil {
		s.metrics.RecordScanError(errKind(err))
		if !errors.Is(err, drepo.ErrInsufficientData) {
			s.log.Warn("window fetch failed",
				logger.String("symbol", symbol),
				logger.String("timeframe", string(tf)),
				logger.Error(err),
			)
		}
		return
	}

	st := s.stateFor(symbol, tf)
	res, err := s.detector.Scan(st, window)
	if err != nil {
		s.metrics.RecordScanError(errKind(err))
		if errors.Is(err, drepo.ErrLogicAssertion) {
			s.log.Error("detector assertion",
				logger.String("symbol", symbol),
				logger.String("timeframe", string(tf)),
				logger.Error(err),
			)
		}
		return
	}
	s.metrics.RecordScan(symbol, tf, time.Since(start).Seconds())

	if !res.Fired {
		return
	}
	sig := buildSignal(symbol, tf, res)
	s.log.Info("choch confirmed",
		logger.String("symbol", symbol),
		logger.String("timeframe", string(tf)),
		logger.String("direction", string(sig.Direction)),
		logger.String("group", string(sig.Group)),
		logger.Any("price", sig.Price),
	)
	if err := s.pipe.Process(ctx, sig); err != nil {
		s.log.Warn("signal delivery degraded",
			logger.String("symbol", symbol),
			logger.String("timeframe", string(tf)),
			logger.Error(err),
		)
	}
}

// fetchWindow returns the detector window for tf, oldest first.
// Aggregated timeframes are built from 5m bars: enough base candles for
// a full window plus one period of slack against a ragged anchor edge.
func (s *Scanner) fetchWindow(ctx context.Context, symbol string, tf drepo.Timeframe) ([]models.Candle, error) {
	size := s.detector.Config().WindowSize
	if !drepo.IsAggregated(tf) {
		return s.source.FetchClosedCandles(ctx, symbol, tf, size)
	}
	base, err := s.baseWindow(ctx, symbol, (size+1)*tf.Multiplier())
	if err != nil {
		return nil, err
	}
	agg, err := candles.Aggregate(tf, base)
	if err != nil {
		return nil, err
	}
	return candles.Tail(agg, size), nil
}

// baseWindow returns the last n closed 5m candles. With a cache attached,
// one oversized fetch per symbol serves every aggregated timeframe due in
// the cycle.
func (s *Scanner) baseWindow(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	if s.winCache == nil {
		return s.source.FetchClosedCandles(ctx, symbol, drepo.TF5m, n)
	}
	key := pkgcache.GenerateKey("window5m", symbol)
	var cached []models.Candle
	if err := s.winCache.Get(ctx, key, &cached); err == nil && len(cached) >= n {
		return cached[len(cached)-n:], nil
	}
	fetch := (s.detector.Config().WindowSize + 1) * drepo.TF50m.Multiplier()
	if n > fetch {
		fetch = n
	}
	base, err := s.source.FetchClosedCandles(ctx, symbol, drepo.TF5m, fetch)
	if err != nil {
		return nil, err
	}
	if err := s.winCache.Set(ctx, key, base, windowCacheTTL); err != nil {
		s.metrics.RecordScanError("window_cache")
	}
	if len(base) > n {
		base = base[len(base)-n:]
	}
	return base, nil
}

func (s *Scanner) stateFor(symbol string, tf drepo.Timeframe) *detect.State {
	key := symbol + "|" + string(tf)
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	if !ok {
		st = detect.NewState()
		s.states[key] = st
	}
	return st
}

// StateCount reports how many (symbol, timeframe) pairs hold state.
func (s *Scanner) StateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func buildSignal(symbol string, tf drepo.Timeframe, res models.DetectionResult) models.Signal {
	sig := models.Signal{
		Symbol:     symbol,
		Timeframe:  string(tf),
		Direction:  res.Direction,
		Group:      res.Group,
		Price:      res.Price,
		SignalTime: res.SignalTime,
	}
	for i, p := range res.Pivots {
		if i >= len(sig.PivotPrices) {
			break
		}
		sig.PivotPrices[i] = p.Price
		sig.PivotBars[i] = p.BarIndex
	}
	return sig
}

// errKind maps a scan error onto its metrics label.
func errKind(err error) string {
	switch {
	case errors.Is(err, drepo.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, drepo.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, drepo.ErrFetchTransient):
		return "fetch_transient"
	case errors.Is(err, drepo.ErrFetchFatal):
		return "fetch_fatal"
	case errors.Is(err, drepo.ErrSinkTransient):
		return "sink_transient"
	case errors.Is(err, drepo.ErrSinkFatal):
		return "sink_fatal"
	case errors.Is(err, drepo.ErrLogicAssertion):
		return "logic_assertion"
	default:
		return "unknown"
	}
}
