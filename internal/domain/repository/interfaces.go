package repository

import (
	"context"
	"time"

	"ChochScan/internal/domain/models"
)

// CandleSource fetches closed candles from an exchange.
// Implementations must never return the currently forming bar.
type CandleSource interface {
	FetchClosedCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	Health(ctx context.Context) error
}

// SymbolUniverse resolves the configured symbol set ("ALL" or explicit list)
// into concrete exchange symbols.
type SymbolUniverse interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// SignalPublisher delivers confirmed signals to the message bus.
type SignalPublisher interface {
	Publish(ctx context.Context, s models.Signal) error
	PublishBatch(ctx context.Context, signals []models.Signal) error
	Close() error
}

// AlertStore persists confirmed signals for the dashboard.
type AlertStore interface {
	Init(ctx context.Context) error // ensure tables, run migrations
	Insert(ctx context.Context, a models.Alert) error
	List(ctx context.Context, f AlertFilter) ([]models.Alert, int, error)
	Get(ctx context.Context, id string) (*models.Alert, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// AlertFilter narrows AlertStore.List results. Group accepts "G1", "G2",
// "G3" or "NA" to select rows with no recorded group.
type AlertFilter struct {
	Symbol    string
	Timeframe string
	Group     string
	Direction string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// SignalArchive stores signals in the analytics warehouse.
type SignalArchive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, s models.Signal) error
	StoreBatch(ctx context.Context, signals []models.Signal) error
	Close() error
}

// Metrics records scanner health counters.
type Metrics interface {
	RecordScan(symbol string, tf Timeframe, seconds float64)
	RecordSignal(symbol string, tf Timeframe, direction, group string)
	RecordScanError(kind string)
	RecordLastClose(tf Timeframe, closeTime time.Time)
}
