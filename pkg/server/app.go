package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "ChochScan/internal/middleware"
	"ChochScan/internal/usecase"
	pkgch "ChochScan/pkg/clickhouse"
	"ChochScan/pkg/config"
	xhttp "ChochScan/pkg/http"
	pkgkafka "ChochScan/pkg/kafka"
	applogger "ChochScan/pkg/logger"
	"ChochScan/pkg/queue"
)

// App encapsulates the entire application lifecycle: the scan loop,
// the signal pipeline, background consumers, and the dashboard server.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	scanner  *usecase.Scanner
	pipe     *mid.SignalPipeline
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	queue    *queue.RedisQueue
	chClient *pkgch.Client

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	closers     []func() error
}

// New creates a new App instance with all dependencies. consumer, kh,
// q and chClient may be nil when the matching backend is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	pipe *mid.SignalPipeline,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		scanner:  scanner,
		pipe:     pipe,
		consumer: consumer,
		kh:       kh,
		queue:    q,
		chClient: chClient,
	}
}

// SetHTTPHandler allows DI to inject the dashboard handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// AddCloser registers a resource to close on shutdown.
func (a *App) AddCloser(fn func() error) { a.closers = append(a.closers, fn) }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.pipe.Start(ctx)

	// Scan loop: poll the scheduler; it coalesces missed closes.
	go func() {
		ticker := time.NewTicker(a.cfg.Scanner.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				a.scanner.RunDue(ctx, now.UTC())
			}
		}
	}()
	a.log.Info("scanner started",
		applogger.Strings("timeframes", a.cfg.Scanner.Timeframes),
		applogger.Strings("symbols", a.cfg.Scanner.Symbols),
	)

	// Archive consumer if Kafka is enabled.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Notification queue workers if Redis is enabled.
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("queue start error", applogger.Error(err))
		} else {
			a.queue.StartRetryProcessor()
			a.log.Info("notification queue started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.pipe.Stop()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
