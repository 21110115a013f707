package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"ChochScan/internal/domain/repository"
	dsvc "ChochScan/internal/domain/service"
	"ChochScan/internal/handler/api"
	"ChochScan/internal/handler/ws"
	mid "ChochScan/internal/middleware"
	internalrepo "ChochScan/internal/repository"
	"ChochScan/internal/service/binance"
	icache "ChochScan/internal/service/cache"
	"ChochScan/internal/service/telegram"
	"ChochScan/internal/services/detect"
	"ChochScan/internal/services/timegrid"
	"ChochScan/internal/usecase"
	pkgcache "ChochScan/pkg/cache"
	pkgch "ChochScan/pkg/clickhouse"
	"ChochScan/pkg/config"
	xhttp "ChochScan/pkg/http"
	pkgkafka "ChochScan/pkg/kafka"
	applogger "ChochScan/pkg/logger"
	"ChochScan/pkg/metrics"
	"ChochScan/pkg/queue"
	"ChochScan/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBinanceClient creates the exchange REST client.
func ProvideBinanceClient(cfg *config.Config, log *applogger.Logger) *binance.Client {
	opts := []binance.Option{}
	if cfg.Binance.BaseURL != "" {
		opts = append(opts, binance.WithBaseURL(cfg.Binance.BaseURL))
	}
	return binance.NewClient(log, opts...)
}

// ProvideCandleSource exposes the exchange client as the candle source.
func ProvideCandleSource(c *binance.Client) repository.CandleSource {
	return c
}

// ProvideSymbolUniverse resolves the configured symbol set.
func ProvideSymbolUniverse(c *binance.Client, cfg *config.Config, log *applogger.Logger) repository.SymbolUniverse {
	return binance.NewUniverse(c, cfg.Scanner.Symbols, cfg.Scanner.TopN, log)
}

// ProvideDetector builds the detection engine from config.
func ProvideDetector(cfg *config.Config) *detect.Detector {
	dc := detect.DefaultConfig()
	dc.WindowSize = cfg.Detector.WindowSize
	dc.PivotLeft = cfg.Detector.PivotLeft
	dc.PivotRight = cfg.Detector.PivotRight
	dc.KeepPivots = cfg.Detector.KeepPivots
	dc.UseVariantFilter = cfg.Detector.UseFilter
	dc.AllowPH1 = cfg.Detector.AllowPH1
	dc.AllowPH2 = cfg.Detector.AllowPH2
	dc.AllowPH3 = cfg.Detector.AllowPH3
	dc.AllowPL1 = cfg.Detector.AllowPL1
	dc.AllowPL2 = cfg.Detector.AllowPL2
	dc.AllowPL3 = cfg.Detector.AllowPL3
	return detect.New(dc)
}

// ProvideScheduler builds the close-time scheduler over the scan set.
func ProvideScheduler(cfg *config.Config) *timegrid.Scheduler {
	tfs := repository.ParseTimeframes(strings.Join(cfg.Scanner.Timeframes, ","))
	return timegrid.NewScheduler(tfs, cfg.Scanner.Grace)
}

// ProvideAlertStore opens PostgreSQL and runs migrations.
func ProvideAlertStore(cfg *config.Config, log *applogger.Logger) (repository.AlertStore, error) {
	store, err := internalrepo.NewPostgresAlertStore(cfg.Postgres.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("alert store: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("alert store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when the bus is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher wraps the producer, or a noop when disabled.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return internalrepo.NewNoopSignalPublisher()
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient creates the warehouse client, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalArchive creates the warehouse archive, nil when disabled.
func ProvideSignalArchive(ch *pkgch.Client, log *applogger.Logger) (repository.SignalArchive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHSignalArchive(ch, log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("signal archive init: %w", err)
	}
	return archive, nil
}

// ProvideKafkaConsumer creates the archive consumer, nil unless both the
// bus and the warehouse are enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSignalsHandler registers the archiver on the signal topic.
func ProvideSignalsHandler(archive repository.SignalArchive, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if archive == nil {
		return nil
	}
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, archive, m)
}

// ProvideRedisCache connects to Redis, nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideWindowCache builds the shared 5m candle window cache. Memory
// only by default; layered over Redis when it is available.
func ProvideWindowCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideQueue builds the notification queue with its jobs registered,
// nil when Redis is disabled.
func ProvideQueue(cfg *config.Config, rc *pkgcache.RedisCache, log *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.Size,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("chochscan:queue"))
	if cfg.Telegram.Enabled {
		notifier := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		q.RegisterJob(telegram.NewNotifyJob(notifier))
	}
	return q
}

// ProvideNotifier exposes the queue as the router's notifier, nil when
// Telegram is disabled.
func ProvideNotifier(cfg *config.Config, q *queue.RedisQueue) dsvc.Notifier {
	if !cfg.Telegram.Enabled || q == nil {
		return nil
	}
	return telegram.NewQueueNotifier(q)
}

// ProvideLiveHub creates the dashboard live feed.
func ProvideLiveHub(log *applogger.Logger) *ws.LiveHub {
	return ws.NewLiveHub(log)
}

// ProvideSubscribers lists in-process signal subscribers.
func ProvideSubscribers(hub *ws.LiveHub) []dsvc.SignalSubscriber {
	return []dsvc.SignalSubscriber{hub}
}

// ProvideSignalRouter creates the sink fan-out.
func ProvideSignalRouter(
	store repository.AlertStore,
	pub repository.SignalPublisher,
	notifier dsvc.Notifier,
	subs []dsvc.SignalSubscriber,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.SignalRouter {
	return usecase.NewSignalRouter(store, pub, notifier, subs, m, log)
}

// ProvidePipeline places the buffering pipeline in front of the router.
func ProvidePipeline(router *usecase.SignalRouter, m repository.Metrics) *mid.SignalPipeline {
	return mid.NewSignalPipeline(router, m, mid.WithBufferSize(512))
}

// ProvideScanner creates the scan orchestrator.
func ProvideScanner(
	source repository.CandleSource,
	universe repository.SymbolUniverse,
	detector *detect.Detector,
	scheduler *timegrid.Scheduler,
	pipe *mid.SignalPipeline,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
	winCache pkgcache.Service,
) *usecase.Scanner {
	return usecase.NewScanner(source, universe, detector, scheduler, pipe, m, log,
		usecase.WithWorkers(cfg.Scanner.Workers),
		usecase.WithWindowCache(winCache))
}

// ProvideAlertsUseCase creates the dashboard query usecase.
func ProvideAlertsUseCase(store repository.AlertStore, source repository.CandleSource) *usecase.AlertsUseCase {
	return usecase.NewAlertsUseCase(store, source)
}

// ProvideHTTPHandler assembles the dashboard handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	uc *usecase.AlertsUseCase,
	store repository.AlertStore,
	hub *ws.LiveHub,
	rc *pkgcache.RedisCache,
) xhttp.Handler {
	recent := api.NewRecentSignalsHandler(store)
	if rc != nil {
		recent.SetCache(icache.NewRedisCacheWith(rc.Client()))
	} else {
		recent.SetCache(icache.NewTTLCache())
	}
	recent.SetLogger(log)
	h := api.NewAlertsEchoHandler(log, uc, recent)
	h.SetLiveFeed(hub.Handler())
	return h
}

// logPublisher adapts the Kafka producer to the log collector sink.
type logPublisher struct{ p *pkgkafka.Producer }

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	pipe *mid.SignalPipeline,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	store repository.AlertStore,
	pub repository.SignalPublisher,
	rc *pkgcache.RedisCache,
	hub *ws.LiveHub,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      logPublisher{producer},
		})
	}
	app := server.New(cfg, log, scanner, pipe, consumer, kh, q, chClient)
	app.SetHTTPHandler(handler)
	app.AddCloser(store.Close)
	app.AddCloser(pub.Close)
	if rc != nil {
		app.AddCloser(rc.Close)
	}
	app.AddCloser(func() error { hub.Close(); return nil })
	return app
}
