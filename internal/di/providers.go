package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ChartMarks/internal/domain/repository"
	"ChartMarks/internal/handler/api"
	"ChartMarks/internal/handler/ws"
	internalrepo "ChartMarks/internal/repository"
	"ChartMarks/internal/service/analyst"
	"ChartMarks/internal/service/annotations"
	"ChartMarks/internal/service/ratelimit"
	"ChartMarks/internal/usecase"
	pkgch "ChartMarks/pkg/clickhouse"
	"ChartMarks/pkg/config"
	xhttp "ChartMarks/pkg/http"
	pkgkafka "ChartMarks/pkg/kafka"
	"ChartMarks/pkg/logger"
	"ChartMarks/pkg/metrics"
	"ChartMarks/pkg/queue"
	"ChartMarks/pkg/server"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// InstanceID tags annotation events published by this process.
type InstanceID string

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideInstanceID returns the configured id or a random one.
func ProvideInstanceID(cfg *config.Config) InstanceID {
	if cfg.InstanceID != "" {
		return InstanceID(cfg.InstanceID)
	}
	return InstanceID(uuid.NewString())
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

func ProvideLevelsCache(cfg *config.Config, m domrepo.Metrics) *annotations.LevelsCache {
	return annotations.NewLevelsCache(
		annotations.WithMaxAge(cfg.Cache.LevelsMaxAge),
		annotations.WithWait(cfg.Cache.WaitTimeout, cfg.Cache.PollInterval),
		annotations.WithMetrics(m),
	)
}

func ProvideOverlaysCache(cfg *config.Config, m domrepo.Metrics) *annotations.OverlaysCache {
	return annotations.NewOverlaysCache(
		annotations.WithMaxAge(cfg.Cache.OverlaysMaxAge),
		annotations.WithMetrics(m),
	)
}

// ProvideEventPublisher publishes to Kafka when enabled and drops events
// otherwise.
func ProvideEventPublisher(cfg *config.Config, l *logger.Logger) (domrepo.EventPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopEventPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("close kafka producer", logger.Error(err))
		}
	}
	return pub, cleanup, nil
}

func ProvideKafkaAnnotationsHandler(
	cfg *config.Config,
	id InstanceID,
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.KafkaAnnotationsHandler {
	return usecase.NewKafkaAnnotationsHandler(cfg.Kafka.Topic, string(id), levels, overlays, m, l)
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, h *usecase.KafkaAnnotationsHandler) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartLatest(cfg.Kafka.Consumer.StartLatest),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers, cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithHook(pkgkafka.NewHookChain(failureLogHook(l)))
	consumer.RegisterHandler(h)
	return consumer, nil
}

func failureLogHook(l *logger.Logger) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		After: func(_ context.Context, km kafkago.Message, err error) {
			if err == nil {
				return
			}
			l.Warn("annotation event failed",
				logger.String("topic", km.Topic),
				logger.Int("partition", km.Partition),
				logger.Int64("offset", km.Offset),
				logger.String("source", pkgkafka.HeaderValue(km, internalrepo.HeaderSource)),
				logger.Error(err))
		},
	}
}

// ProvideClickHouseClient returns nil when the analysis queue is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.Queue.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("close clickhouse", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideAnalysisJob returns nil when the analysis queue is disabled.
func ProvideAnalysisJob(
	cfg *config.Config,
	ch *pkgch.Client,
	id InstanceID,
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	pub domrepo.EventPublisher,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.AnalysisJob {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHFeatureStore(ch, cfg.ClickHouse.Database, l)
	model := analyst.NewOpenAIAnalyst(analyst.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
		Timeout:   cfg.OpenAI.Timeout,
	}, l)
	return usecase.NewAnalysisJob(store, model, levels, overlays, pub, m, string(id), l).
		WithDefaultBars(cfg.Analysis.DefaultBars)
}

// ProvideRedisQueue returns nil when the analysis queue is disabled.
func ProvideRedisQueue(cfg *config.Config, l *logger.Logger, job *usecase.AnalysisJob) (*queue.RedisQueue, func(), error) {
	if job == nil {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})
	q := queue.NewRedisQueue(l, &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		KeyPrefix:  cfg.Queue.KeyPrefix,
	}, client, job)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("close redis", logger.Error(err))
		}
	}
	return q, cleanup, nil
}

// ProvideJobEnqueuer keeps a disabled queue a nil interface.
func ProvideJobEnqueuer(q *queue.RedisQueue) domrepo.JobEnqueuer {
	if q == nil {
		return nil
	}
	return q
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(1, cfg.Analysis.MinInterval)
}

func ProvideAnnotationsUseCase(
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	pub domrepo.EventPublisher,
	jobs domrepo.JobEnqueuer,
	limiter *ratelimit.Limiter,
	id InstanceID,
	l *logger.Logger,
) *usecase.AnnotationsUseCase {
	return usecase.NewAnnotationsUseCase(levels, overlays, pub, jobs, limiter, string(id), l)
}

func ProvideHTTPHandlers(
	cfg *config.Config,
	l *logger.Logger,
	uc *usecase.AnnotationsUseCase,
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
) []xhttp.Handler {
	// leave a second of the write timeout for the response itself
	maxWait := cfg.Server.WriteTimeout - time.Second
	return []xhttp.Handler{
		api.NewAnnotationsEchoHandler(l, uc, maxWait),
		ws.NewStreamHandler(l, levels, overlays, cfg.Cache.StreamBuffer),
	}
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
	)
}

func ProvideApp(l *logger.Logger, srv *xhttp.Server, q *queue.RedisQueue, consumer *pkgkafka.Consumer) *server.App {
	return server.New(l, srv, q, consumer)
}
