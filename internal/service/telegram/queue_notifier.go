package telegram

import (
	"context"
	"fmt"

	"ChochScan/internal/domain/models"
	dsvc "ChochScan/internal/domain/service"
	"ChochScan/pkg/queue"
)

// QueueNotifier enqueues signals for asynchronous delivery instead of
// calling the Bot API inline.
type QueueNotifier struct {
	q queue.QueueService
}

func NewQueueNotifier(q queue.QueueService) *QueueNotifier {
	return &QueueNotifier{q: q}
}

func (n *QueueNotifier) Notify(ctx context.Context, s models.Signal) error {
	if err := n.q.PublishMessage(ctx, NotifyJobType, s); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

var _ dsvc.Notifier = (*QueueNotifier)(nil)
