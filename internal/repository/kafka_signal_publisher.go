package repository

import (
	"context"

	"ChochScan/internal/domain/models"
	"ChochScan/internal/domain/repository"
	pkgkafka "ChochScan/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher on Kafka. Messages are
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka-backed signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func signalPayload(s models.Signal) map[string]interface{} {
	return map[string]interface{}{
		"symbol":       s.Symbol,
		"timeframe":    s.Timeframe,
		"direction":    string(s.Direction),
		"group":        string(s.Group),
		"price":        s.Price,
		"signal_time":  s.SignalTime.UTC(),
		"pivot_prices": s.PivotPrices,
		"pivot_bars":   s.PivotBars,
	}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), signalPayload(s))
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{Key: []byte(s.Symbol), Value: signalPayload(s)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
