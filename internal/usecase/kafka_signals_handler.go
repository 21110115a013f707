package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ChochScan/internal/domain/models"
	domrepo "ChochScan/internal/domain/repository"
	pkgkafka "ChochScan/pkg/kafka"
)

// KafkaSignalsHandler consumes the signal topic and archives each
// confirmed reversal into the analytics warehouse.
type KafkaSignalsHandler struct {
	topic   string
	archive domrepo.SignalArchive
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, archive domrepo.SignalArchive, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// incoming message schema mirrors KafkaSignalPublisher's payload
func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol      string     `json:"symbol"`
		Timeframe   string     `json:"timeframe"`
		Direction   string     `json:"direction"`
		Group       string     `json:"group"`
		Price       float64    `json:"price"`
		SignalTime  time.Time  `json:"signal_time"`
		PivotPrices [8]float64 `json:"pivot_prices"`
		PivotBars   [8]int     `json:"pivot_bars"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordScanError("consumer_unmarshal")
		return err
	}

	err := h.archive.Store(ctx, models.Signal{
		Symbol:      m.Symbol,
		Timeframe:   m.Timeframe,
		Direction:   models.Direction(m.Direction),
		Group:       models.PatternGroup(m.Group),
		Price:       m.Price,
		SignalTime:  m.SignalTime,
		PivotPrices: m.PivotPrices,
		PivotBars:   m.PivotBars,
	})
	if err != nil {
		h.metrics.RecordScanError("consumer_archive")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
