package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ChochScan/internal/domain/models"
	domrepo "ChochScan/internal/domain/repository"
	applogger "ChochScan/pkg/logger"
)

const alertsSchema = `
CREATE TABLE IF NOT EXISTS alerts (
    id            UUID PRIMARY KEY,
    symbol        TEXT NOT NULL,
    timeframe     TEXT NOT NULL,
    direction     TEXT NOT NULL,
    pattern_group TEXT,
    signal_type   TEXT NOT NULL,
    price         DOUBLE PRECISION NOT NULL,
    signal_time   TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alerts_symbol_tf ON alerts (symbol, timeframe);
CREATE INDEX IF NOT EXISTS idx_alerts_signal_time ON alerts (signal_time DESC);
`

// Older deployments predate the pattern_group column.
const alertsMigrateGroup = `ALTER TABLE alerts ADD COLUMN IF NOT EXISTS pattern_group TEXT`

// PostgresAlertStore implements AlertStore on PostgreSQL.
type PostgresAlertStore struct {
	db *sqlx.DB
	l  *applogger.Logger
}

// NewPostgresAlertStore opens the alerts database.
func NewPostgresAlertStore(dsn string, l *applogger.Logger) (*PostgresAlertStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresAlertStore{db: db, l: l}, nil
}

// Init ensures the alerts table exists and runs column migrations.
func (s *PostgresAlertStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, alertsSchema); err != nil {
		return fmt.Errorf("alerts schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, alertsMigrateGroup); err != nil {
		return fmt.Errorf("alerts migration: %w", err)
	}
	return nil
}

func (s *PostgresAlertStore) Insert(ctx context.Context, a models.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const q = `
        INSERT INTO alerts (id, symbol, timeframe, direction, pattern_group, signal_type, price, signal_time, created_at)
        VALUES (:id, :symbol, :timeframe, :direction, :pattern_group, :signal_type, :price, :signal_time, :created_at)
    `
	if _, err := s.db.NamedExecContext(ctx, q, a); err != nil {
		s.l.Error("alert insert failed",
			applogger.String("symbol", a.Symbol),
			applogger.String("timeframe", a.Timeframe),
			applogger.Error(err),
		)
		return fmt.Errorf("%w: insert alert: %v", domrepo.ErrSinkTransient, err)
	}
	return nil
}

// List returns alerts matching f plus the total row count before paging.
func (s *PostgresAlertStore) List(ctx context.Context, f domrepo.AlertFilter) ([]models.Alert, int, error) {
	where, args := buildAlertWhere(f)

	var total int
	countQ := "SELECT count(*) FROM alerts" + where
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQ), args...); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := "SELECT id, symbol, timeframe, direction, pattern_group, signal_type, price, signal_time, created_at FROM alerts" +
		where + " ORDER BY signal_time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	out := make([]models.Alert, 0, limit)
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	return out, total, nil
}

func (s *PostgresAlertStore) Get(ctx context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	const q = `SELECT id, symbol, timeframe, direction, pattern_group, signal_type, price, signal_time, created_at FROM alerts WHERE id = $1`
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &a, nil
}

func (s *PostgresAlertStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresAlertStore) Close() error {
	return s.db.Close()
}

// buildAlertWhere renders the filter as a WHERE clause with ? placeholders;
// callers rebind for the driver. Group "NA" selects rows with no group.
func buildAlertWhere(f domrepo.AlertFilter) (string, []interface{}) {
	conds := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Timeframe != "" {
		conds = append(conds, "timeframe = ?")
		args = append(args, f.Timeframe)
	}
	if f.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, f.Direction)
	}
	switch strings.ToUpper(f.Group) {
	case "":
	case "NA":
		conds = append(conds, "pattern_group IS NULL")
	default:
		conds = append(conds, "pattern_group = ?")
		args = append(args, strings.ToUpper(f.Group))
	}
	if !f.From.IsZero() {
		conds = append(conds, "signal_time >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "signal_time <= ?")
		args = append(args, f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
