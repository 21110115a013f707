package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
	dsvc "ChochScan/internal/domain/service"
	"ChochScan/pkg/logger"
)

// SignalRouter fans a confirmed signal out to its sinks: the alert
// store for the dashboard, the bus for downstream consumers, the
// notifier for humans, and in-process subscribers such as the live
// feed. Store and bus failures bubble up so the pipeline can retry;
// notifier and subscriber failures are logged and swallowed, a missed
// Telegram message must not block persistence.
type SignalRouter struct {
	store    drepo.AlertStore
	bus      drepo.SignalPublisher
	notifier dsvc.Notifier
	subs     []dsvc.SignalSubscriber
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewSignalRouter creates the fan-out stage. notifier may be nil when
// alerting is disabled; subs may be empty.
func NewSignalRouter(
	store drepo.AlertStore,
	bus drepo.SignalPublisher,
	notifier dsvc.Notifier,
	subs []dsvc.SignalSubscriber,
	metrics drepo.Metrics,
	log *logger.Logger,
) *SignalRouter {
	return &SignalRouter{
		store:    store,
		bus:      bus,
		notifier: notifier,
		subs:     subs,
		metrics:  metrics,
		log:      log,
	}
}

// Process delivers one signal to every sink.
func (r *SignalRouter) Process(ctx context.Context, s models.Signal) error {
	r.metrics.RecordSignal(s.Symbol, drepo.Timeframe(s.Timeframe), string(s.Direction), string(s.Group))

	alert := models.NewAlertFromSignal(s)
	alert.ID = uuid.NewString()
	storeErr := r.store.Insert(ctx, alert)
	if storeErr != nil && !errors.Is(storeErr, drepo.ErrSinkTransient) {
		storeErr = fmt.Errorf("%w: alert store: %v", drepo.ErrSinkTransient, storeErr)
	}

	busErr := r.bus.Publish(ctx, s)
	if busErr != nil {
		r.metrics.RecordScanError("bus_publish")
		busErr = fmt.Errorf("%w: bus publish: %v", drepo.ErrSinkTransient, busErr)
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, s); err != nil {
			r.metrics.RecordScanError("notify")
			r.log.Warn("notification failed",
				logger.String("symbol", s.Symbol),
				logger.String("timeframe", s.Timeframe),
				logger.Error(err),
			)
		}
	}
	for _, sub := range r.subs {
		sub.OnSignal(s)
	}

	if storeErr != nil {
		return storeErr
	}
	return busErr
}
