package telegram

import (
	"context"
	"fmt"

	"ChochScan/internal/domain/models"
	"ChochScan/pkg/queue"
)

// NotifyJobType is the queue message type for signal notifications.
const NotifyJobType = "signal.notify"

// NotifyJob delivers queued signal notifications through the Notifier.
// Queueing decouples scan latency from Telegram's rate limits; failed
// sends get the queue's retry policy instead of blocking the scanner.
type NotifyJob struct {
	notifier *Notifier
}

func NewNotifyJob(n *Notifier) *NotifyJob {
	return &NotifyJob{notifier: n}
}

func (j *NotifyJob) Name() string { return "telegram-notify" }

func (j *NotifyJob) Type() string { return NotifyJobType }

func (j *NotifyJob) Handle(ctx context.Context, payload interface{}) error {
	s, err := queue.ParsePayload[models.Signal](payload)
	if err != nil {
		return fmt.Errorf("notify payload: %w", err)
	}
	return j.notifier.Notify(ctx, *s)
}

var _ queue.Job = (*NotifyJob)(nil)
