package di

import (
	"context"
	"fmt"
	"time"

	"PairDesk/internal/domain/models"
	"PairDesk/internal/domain/repository"
	"PairDesk/internal/handler/api"
	mid "PairDesk/internal/middleware"
	internalrepo "PairDesk/internal/repository"
	"PairDesk/internal/service/cache"
	"PairDesk/internal/service/finnhub"
	"PairDesk/internal/service/yahoo"
	"PairDesk/internal/usecase"
	pkgch "PairDesk/pkg/clickhouse"
	"PairDesk/pkg/config"
	xhttp "PairDesk/pkg/http"
	pkgkafka "PairDesk/pkg/kafka"
	applogger "PairDesk/pkg/logger"
	"PairDesk/pkg/metrics"
	"PairDesk/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client. Nil when the archive is disabled.
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
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceStore creates the close archive and its schema.
func ProvidePriceStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.PriceStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHPriceStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer. Nil when Kafka is disabled.
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

// ProvideSignalPublisher publishes to Kafka when available, to the log otherwise.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.SignalPublisher {
	if producer == nil {
		return internalrepo.NewLogSignalPublisher(l)
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache creates the provider response cache.
func ProvideCache(cfg *config.Config) (cache.BytesCache, error) {
	c, err := cache.New(cache.Config{
		Type: cfg.Cache.Type,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return c, nil
}

// ProvideFinnhubStream creates the live quote stream. Nil when disabled.
func ProvideFinnhubStream(cfg *config.Config, l *applogger.Logger) *finnhub.Client {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	return finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
}

// ProvideYahooClient creates the chart API client.
func ProvideYahooClient(cfg *config.Config) *yahoo.Client {
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Provider.Timeout),
		xhttp.WithUserAgent(cfg.Provider.UserAgent),
	)
	return yahoo.New(cfg.Provider.BaseURL, yahoo.WithHTTPClient(hc), yahoo.WithAttempts(cfg.Provider.Attempts))
}

// ProvidePriceProvider chains stream, cache, upstream and archive.
func ProvidePriceProvider(
	upstream *yahoo.Client,
	c cache.BytesCache,
	stream *finnhub.Client,
	store repository.PriceStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *internalrepo.CachedProvider {
	opts := []internalrepo.CachedProviderOption{
		internalrepo.WithTTLs(cfg.Cache.HistoryTTL, cfg.Cache.QuoteTTL),
		internalrepo.WithProviderMetrics(m),
		internalrepo.WithProviderLogger(l),
	}
	if stream != nil {
		opts = append(opts, internalrepo.WithQuoteStream(stream, cfg.Finnhub.MaxQuoteAge))
	}
	if store != nil {
		opts = append(opts, internalrepo.WithPriceStore(store))
	}
	return internalrepo.NewCachedProvider(upstream, c, opts...)
}

// ProvidePairAnalyzer creates the analysis use case.
func ProvidePairAnalyzer(provider *internalrepo.CachedProvider, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.PairAnalyzer {
	return usecase.NewPairAnalyzer(provider,
		usecase.WithReference(cfg.Analysis.Reference),
		usecase.WithStdDev(cfg.Analysis.StdDev),
		usecase.WithDefaultUpperZ(cfg.Analysis.UpperZ),
		usecase.WithDefaultWindow(cfg.Analysis.Period, cfg.Analysis.Interval),
		usecase.WithAnalyzerMetrics(m),
		usecase.WithAnalyzerLogger(l),
	)
}

// ProvideTradeSimulation creates the simulation use case with configured defaults.
func ProvideTradeSimulation(analyzer *usecase.PairAnalyzer, cfg *config.Config, l *applogger.Logger) *usecase.TradeSimulation {
	s := cfg.Simulation
	return usecase.NewTradeSimulation(analyzer, usecase.SimulationDefaults{
		RefQty:  s.RefQty,
		LotSize: cfg.Analysis.LotSize,
		Costs: models.CostParams{
			BorrowAnnualRatePct: s.BorrowAnnualRatePct,
			DurationDays:        s.DurationDays,
			BrokerageTotal:      s.BrokerageTotal,
			FeesTotal:           s.FeesTotal,
		},
		BuyExitPct:  s.BuyExitPct,
		SellExitPct: s.SellExitPct,
	}, l)
}

// ProvideSignalPipeline sits between the watcher and the publisher.
func ProvideSignalPipeline(pub repository.SignalPublisher, m repository.Metrics, cfg *config.Config) *mid.SignalPipeline {
	return mid.NewSignalPipeline(pub, m,
		mid.WithMinInterval(cfg.Watcher.Throttle),
		mid.WithBufferSize(256),
	)
}

// ProvideSignalWatcher creates the periodic pair watcher.
func ProvideSignalWatcher(analyzer *usecase.PairAnalyzer, pipe *mid.SignalPipeline, cfg *config.Config, l *applogger.Logger) (*usecase.SignalWatcher, error) {
	pairs := make([]usecase.WatchedPair, 0, len(cfg.Watcher.Pairs))
	for _, p := range cfg.Watcher.Pairs {
		first, second, err := config.SplitPair(p)
		if err != nil {
			return nil, fmt.Errorf("watcher: %w", err)
		}
		pairs = append(pairs, usecase.WatchedPair{First: first, Second: second})
	}
	return usecase.NewSignalWatcher(analyzer, pipe, pairs, cfg.Watcher.Interval, cfg.Analysis.UpperZ, l), nil
}

// ProvidePairsHandler creates the Echo handler for the pairs API.
func ProvidePairsHandler(
	l *applogger.Logger,
	analyzer *usecase.PairAnalyzer,
	sim *usecase.TradeSimulation,
	provider *internalrepo.CachedProvider,
	cfg *config.Config,
) *api.PairsEchoHandler {
	return api.NewPairsEchoHandler(l, analyzer, sim, provider,
		api.WithRateLimit(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.Refill),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.PairsEchoHandler,
	watcher *usecase.SignalWatcher,
	pipe *mid.SignalPipeline,
	pub repository.SignalPublisher,
	stream *finnhub.Client,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, handler, watcher, pipe, pub)
	if stream != nil {
		app.SetStream(stream)
	}
	if producer != nil {
		app.SetProducer(producer)
	}
	if chClient != nil {
		app.SetClickHouse(chClient)
	}
	return app
}
