package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "PairDesk/internal/domain/repository"
	mid "PairDesk/internal/middleware"
	"PairDesk/internal/usecase"
	pkgch "PairDesk/pkg/clickhouse"
	"PairDesk/pkg/config"
	xhttp "PairDesk/pkg/http"
	pkgkafka "PairDesk/pkg/kafka"
	applogger "PairDesk/pkg/logger"
)

// QuoteStream is the live quote feed run in the background.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols ...string) error
	Run(ctx context.Context)
	Close() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	watcher     *usecase.SignalWatcher
	pipeline    *mid.SignalPipeline
	publisher   domrepo.SignalPublisher
	stream      QuoteStream
	producer    *pkgkafka.Producer
	chClient    *pkgch.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	watcher *usecase.SignalWatcher,
	pipeline *mid.SignalPipeline,
	publisher domrepo.SignalPublisher,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		l:           l,
		httpHandler: handler,
		watcher:     watcher,
		pipeline:    pipeline,
		publisher:   publisher,
	}
}

// SetStream attaches the live quote stream.
func (a *App) SetStream(s QuoteStream) { a.stream = s }

// SetProducer attaches the Kafka producer used for the log collector.
func (a *App) SetProducer(p *pkgkafka.Producer) { a.producer = p }

// SetClickHouse attaches the archive client so it is closed on shutdown.
func (a *App) SetClickHouse(c *pkgch.Client) { a.chClient = c }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.producer != nil && a.cfg.Kafka.LogCollector.Enabled {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Kafka.LogCollector.Interval,
			CountThreshold: a.cfg.Kafka.LogCollector.CountThreshold,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      a.producer,
		})
		a.l.Info("log collector attached", applogger.String("topic", a.cfg.Kafka.LogTopic))
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)

	if a.stream != nil {
		a.startStream(ctx)
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}
	if a.watcher != nil && a.cfg.Watcher.Enabled {
		go a.watcher.Run(ctx)
		a.l.Info("signal watcher started", applogger.Strings("pairs", a.cfg.Watcher.Pairs))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) startStream(ctx context.Context) {
	symbols := make([]string, 0, 2*len(a.cfg.Watcher.Pairs))
	for _, p := range a.cfg.Watcher.Pairs {
		if first, second, err := config.SplitPair(p); err == nil {
			symbols = append(symbols, first, second)
		}
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.stream.Connect(connectCtx); err != nil {
		// quotes fall back to the cache and upstream provider
		a.l.Warn("quote stream unavailable", applogger.Error(err))
		return
	}
	if err := a.stream.Subscribe(connectCtx, symbols...); err != nil {
		a.l.Warn("quote stream subscribe error", applogger.Error(err))
	}
	go a.stream.Run(ctx)
	a.l.Info("quote stream started", applogger.Int("symbols", len(a.cfg.Finnhub.Symbols)+len(symbols)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.l.Warn("quote stream close error", applogger.Error(err))
		}
	}

	// the collector publishes through the producer, so detach it first
	a.l.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("signal publisher close error", applogger.Error(err))
		}
	} else if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
