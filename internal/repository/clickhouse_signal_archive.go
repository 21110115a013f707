package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ChochScan/internal/domain/models"
	pkgch "ChochScan/pkg/clickhouse"
	applogger "ChochScan/pkg/logger"
)

var signalsSchema = []string{
	`CREATE DATABASE IF NOT EXISTS chochscan`,
	`CREATE TABLE IF NOT EXISTS chochscan.signals (
        signal_time  DateTime64(3, 'UTC'),
        symbol       LowCardinality(String),
        timeframe    LowCardinality(String),
        direction    LowCardinality(String),
        pattern_group LowCardinality(String),
        price        Float64,
        pivot_prices Array(Float64),
        pivot_bars   Array(Int32)
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(signal_time)
    ORDER BY (symbol, timeframe, signal_time)`,
}

// CHSignalArchive implements SignalArchive backed by ClickHouse.
type CHSignalArchive struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSignalArchive(ch *pkgch.Client, l *applogger.Logger) *CHSignalArchive {
	return &CHSignalArchive{ch: ch, db: ch.DB(), l: l}
}

// Init creates the signals table if missing.
func (s *CHSignalArchive) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, signalsSchema)
}

func (s *CHSignalArchive) Store(ctx context.Context, sig models.Signal) error {
	return s.StoreBatch(ctx, []models.Signal{sig})
}

// StoreBatch inserts signals in multi-row VALUES chunks.
func (s *CHSignalArchive) StoreBatch(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	const chunkSize = 500
	for start := 0; start < len(signals); start += chunkSize {
		end := start + chunkSize
		if end > len(signals) {
			end = len(signals)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, sig := range signals[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				sig.SignalTime.UTC(),
				sig.Symbol,
				sig.Timeframe,
				string(sig.Direction),
				string(sig.Group),
				sig.Price,
				sig.PivotPrices[:],
				pivotBars32(sig.PivotBars),
			)
		}
		q := "INSERT INTO chochscan.signals (signal_time, symbol, timeframe, direction, pattern_group, price, pivot_prices, pivot_bars) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse signal insert failed",
				applogger.Int("batch", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("archive signals: %w", err)
		}
	}
	return nil
}

func (s *CHSignalArchive) Close() error {
	return nil // pool owned by pkg client
}

func pivotBars32(bars [8]int) []int32 {
	out := make([]int32, len(bars))
	for i, b := range bars {
		out[i] = int32(b)
	}
	return out
}
