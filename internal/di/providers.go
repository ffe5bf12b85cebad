package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/model"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/http/middleware"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger builds the root logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideModels loads both models. Failure is fatal.
func ProvideModels(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (forecast.Models, error) {
	return model.LoadModels(cfg, m, l)
}

// ProvideTrainingScale loads the scaling artifact, if configured.
func ProvideTrainingScale(cfg *config.Config) (model.TrainingScale, error) {
	return model.LoadTrainingScale(cfg)
}

// ProvideForecaster assembles the forecaster.
func ProvideForecaster(cfg *config.Config, models forecast.Models, training model.TrainingScale, l *applogger.Logger) (*forecast.Forecaster, error) {
	return model.NewForecaster(cfg, models, training, l)
}

// ProvideClickHouseClient connects to ClickHouse when the ledger is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.Ledger.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(context.Background(), pkgch.Config{
		Host:             cfg.ClickHouse.Host,
		Port:             cfg.ClickHouse.Port,
		Database:         cfg.ClickHouse.Database,
		User:             cfg.ClickHouse.User,
		Password:         cfg.ClickHouse.Password,
		UseHTTP:          cfg.ClickHouse.UseHTTP,
		DialTimeout:      cfg.ClickHouse.DialTimeout,
		ReadTimeout:      cfg.ClickHouse.ReadTimeout,
		AsyncInsert:      cfg.ClickHouse.AsyncInsert,
		WaitForAsync:     cfg.ClickHouse.WaitForAsync,
		MaxExecutionTime: cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCache builds the layered cache. Redis is optional.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var l2 *cache.RedisCache
	if cfg.Redis.Enabled {
		var err error
		l2, err = cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		l.Info("redis cache connected", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	}
	lc := cache.NewLayeredCache(l2, cache.LayeredConfig{
		Memory: cache.MemoryConfig{MaxEntries: cfg.Cache.MemoryMaxSize},
		L1TTL:  cfg.Cache.L1TTL,
	})
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideLedgerStore returns the cached ClickHouse ledger, or nil when the
// ledger is disabled.
func ProvideLedgerStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) (repository.LedgerStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHLedgerStore(ch, cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return internalrepo.NewCachedLedgerStore(store, c, cfg.Ledger.CacheTTL, l), nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      k.Brokers,
		RequiredAcks: k.RequiredAcks,
		Compression:  k.Compression,
		MaxAttempts:  k.Producer.MaxAttempts,
		WriteTimeout: k.Producer.WriteTimeout,
		ReadTimeout:  k.Producer.ReadTimeout,
		BatchSize:    k.Producer.BatchSize,
		BatchBytes:   k.Producer.BatchBytes,
		BatchTimeout: k.Producer.Linger,
		Async:        k.Producer.Async,
		HashByKey:    true,
		Registerer:   reg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideEventPublisher publishes forecast events to Kafka, or nil when
// Kafka is disabled. It also attaches the log collector when enabled; the
// cleanup flushes it while the producer is still open.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) (repository.EventPublisher, func()) {
	if producer == nil {
		return nil, func() {}
	}
	cleanup := func() {}
	if cfg.Logging.Collect {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Logging.Throttle,
			Topic:        cfg.Logging.LogsTopic,
			Service:      "fincast",
			Publisher:    internalrepo.NewKafkaLogPublisher(producer),
		})
		cleanup = l.RemoveCollector
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic), cleanup
}

// ProvideKafkaConsumer creates the ledger ingestion consumer. It is nil
// unless both Kafka and the ledger are enabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, ledger repository.LedgerStore,
	m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || ledger == nil {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cc.GroupID,
		Workers:    cc.Workers,
		BufferSize: cc.BufferSize,
		RetryMax:   cc.RetryMax,
		BackoffMin: cc.BackoffMin,
		BackoffMax: cc.BackoffMax,
		DLQTopic:   cc.DLQTopic,
		MinBytes:   cc.MinBytes,
		MaxBytes:   cc.MaxBytes,
		Logger:     l,
		Registerer: reg,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Use(pkgkafka.Trace())
	consumer.RegisterHandler(usecase.NewLedgerIngestHandler(cfg.Kafka.LedgerTopic, ledger, m))
	return consumer, nil
}

// ProvideForecastUseCase wires the forecast use case.
func ProvideForecastUseCase(f *forecast.Forecaster, ledger repository.LedgerStore, events repository.EventPublisher,
	m repository.Metrics, training model.TrainingScale, l *applogger.Logger) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(f, ledger, events, m, training, l)
}

// ProvideForecastHandler creates the HTTP handler and its health checks.
func ProvideForecastHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.ForecastUseCase,
	ledger repository.LedgerStore, c cache.Service) *api.ForecastEchoHandler {
	h := api.NewForecastEchoHandler(l, uc)
	if ledger != nil {
		h.AddHealthCheck("ledger", ledger)
	}
	if hc, ok := c.(api.HealthChecker); ok && cfg.Redis.Enabled {
		h.AddHealthCheck("cache", hc)
	}
	return h
}

// ProvideHTTPServer builds the echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.ForecastEchoHandler, reg *prometheus.Registry, l *applogger.Logger) (*xhttp.Server, error) {
	sc := xhttp.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SlowThreshold:   cfg.Server.SlowThreshold,
		MetricsPath:     cfg.Metrics.Path,
		DisableMetrics:  !cfg.Metrics.Enabled,
		Registerer:      reg,
		Gatherer:        reg,
		Logger:          l,
	}
	if cfg.RateLimit.Enabled {
		sc.RateLimit = &middleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
			Skip: func(c echo.Context) bool {
				return c.Path() == "/healthz" || strings.HasPrefix(c.Path(), cfg.Metrics.Path)
			},
		}
	}
	return xhttp.NewServer(sc, h)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, srv *xhttp.Server, consumer *pkgkafka.Consumer, l *applogger.Logger) *server.App {
	return server.New(cfg, srv, consumer, l)
}

// ProvideNoLedger and ProvideNoEvents stand in for infrastructure in the
// offline CLI commands.
func ProvideNoLedger() repository.LedgerStore { return nil }

func ProvideNoEvents() repository.EventPublisher { return nil }
