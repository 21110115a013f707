package service

import (
	"context"

	"ChochScan/internal/domain/models"
)

// Notifier pushes a confirmed signal to an external alerting channel.
type Notifier interface {
	Notify(ctx context.Context, s models.Signal) error
}

// SignalSubscriber receives confirmed signals inside the process,
// e.g. the dashboard's live feed hub.
type SignalSubscriber interface {
	OnSignal(s models.Signal)
}
