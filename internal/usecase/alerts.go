package usecase

import (
	"context"
	"fmt"
	"time"

	"ChochScan/internal/domain/models"
	domrepo "ChochScan/internal/domain/repository"
	"ChochScan/pkg/util"
)

// AlertsUseCase serves the dashboard's alert queries.
type AlertsUseCase struct {
	store   domrepo.AlertStore
	source  domrepo.CandleSource
	timeout time.Duration
}

func NewAlertsUseCase(store domrepo.AlertStore, source domrepo.CandleSource) *AlertsUseCase {
	return &AlertsUseCase{store: store, source: source, timeout: 10 * time.Second}
}

// AlertPage is one page of alerts plus the unpaged total.
type AlertPage struct {
	Alerts []models.Alert `json:"alerts"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// List returns alerts matching the request filter, newest first.
func (uc *AlertsUseCase) List(ctx context.Context, req *models.ListAlertsRequest) (*AlertPage, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	f := domrepo.AlertFilter{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Group:     req.Group,
		Direction: req.Direction,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return nil, fmt.Errorf("invalid from: %q", req.From)
		}
		f.From = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return nil, fmt.Errorf("invalid to: %q", req.To)
		}
		f.To = t
	}
	if req.Timeframe != "" && !f.From.IsZero() && !f.To.IsZero() {
		f.From, f.To = util.AlignFromTo(f.From, f.To, req.Timeframe)
	}

	alerts, total, err := uc.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return &AlertPage{Alerts: alerts, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Get returns one alert by id, nil when absent.
func (uc *AlertsUseCase) Get(ctx context.Context, id string) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.store.Get(ctx, id)
}

// Status describes component health for the dashboard status endpoint.
type Status struct {
	Store    string    `json:"store"`
	Exchange string    `json:"exchange"`
	Time     time.Time `json:"time"`
}

// Status pings the alert store and the exchange.
func (uc *AlertsUseCase) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := Status{Store: "ok", Exchange: "ok", Time: time.Now().UTC()}
	if err := uc.store.Health(ctx); err != nil {
		st.Store = err.Error()
	}
	if err := uc.source.Health(ctx); err != nil {
		st.Exchange = err.Error()
	}
	return st
}
