package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/pricing"
)

// Поддерживаемые хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Хранилища ключей идемпотентности.
const (
	IdempotencyBackendStorage = "storage"
	IdempotencyBackendRedis   = "redis"
)

// Переменные окружения сервиса.
const (
	EnvGRPCAddr                    = "MKT_GRPC_ADDR"
	EnvMetricsAddr                 = "MKT_METRICS_ADDR"
	EnvLogLevel                    = "MKT_LOG_LEVEL"
	EnvStorageDriver               = "MKT_STORAGE_DRIVER"
	EnvPostgresDSN                 = "MKT_POSTGRES_DSN"
	EnvPostgresAutoMigrate         = "MKT_POSTGRES_AUTO_MIGRATE"
	EnvSeedDemoData                = "MKT_SEED_DEMO_DATA"
	EnvTaxRate                     = "MKT_TAX_RATE"
	EnvShippingFee                 = "MKT_SHIPPING_FEE"
	EnvFreeShippingThreshold       = "MKT_FREE_SHIPPING_THRESHOLD"
	EnvKafkaBrokers                = "MKT_KAFKA_BROKERS"
	EnvKafkaTopic                  = "MKT_KAFKA_TOPIC"
	EnvKafkaDLQTopic               = "MKT_KAFKA_DLQ_TOPIC"
	EnvOutboxPollInterval          = "MKT_OUTBOX_POLL_INTERVAL"
	EnvOutboxBatchSize             = "MKT_OUTBOX_BATCH_SIZE"
	EnvOutboxMaxAttempts           = "MKT_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetryDelay            = "MKT_OUTBOX_RETRY_DELAY"
	EnvIdempotencyBackend          = "MKT_IDEMPOTENCY_BACKEND"
	EnvRedisAddr                   = "MKT_REDIS_ADDR"
	EnvIdempotencyCleanupInterval  = "MKT_IDEMPOTENCY_CLEANUP_INTERVAL"
	EnvIdempotencyCleanupBatchSize = "MKT_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	EnvOTLPEndpoint                = "MKT_OTLP_ENDPOINT"
	EnvTraceSampleRatio            = "MKT_TRACE_SAMPLE_RATIO"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	LogLevel    log.Level

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// SeedDemoData наполняет in-memory каталог демонстрационными товарами.
	SeedDemoData bool

	Pricing pricing.Policy

	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyBackend          string
	RedisAddr                   string
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	OTLPEndpoint     string
	TraceSampleRatio float64
}

// DefaultConfig возвращает настройки локального запуска: память, без Kafka и трейсинга.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		MetricsAddr:                 ":9090",
		LogLevel:                    log.InfoLevel,
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		SeedDemoData:                true,
		Pricing:                     pricing.DefaultPolicy(),
		KafkaTopic:                  kafka.TopicOrderEvents,
		KafkaDLQTopic:               kafka.TopicDeadLetterQueue,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		IdempotencyBackend:          IdempotencyBackendStorage,
		IdempotencyCleanupInterval:  time.Hour,
		IdempotencyCleanupBatchSize: 1000,
		TraceSampleRatio:            1,
	}
}

// EnvLookup читает переменную окружения (совместим с os.LookupEnv).
type EnvLookup func(key string) (string, bool)

// LoadConfig накладывает переменные окружения на DefaultConfig.
// Некорректные значения не роняют запуск: поле остаётся по умолчанию, а причина попадает в warnings.
func LoadConfig(lookup EnvLookup) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	integer := func(key string, dst *int, valid func(int) bool, rule string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseInt(v, valid, rule)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseDuration(v, valid, rule)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	money := func(key string, dst *decimal.Decimal) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseNonNegativeDecimal(v)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }

	str(EnvGRPCAddr, &cfg.GRPCAddr)
	str(EnvMetricsAddr, &cfg.MetricsAddr)
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			warn(EnvLogLevel, v, err)
		} else {
			cfg.LogLevel = level
		}
	}

	if v, ok := lookup(EnvStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	str(EnvPostgresDSN, &cfg.PostgresDSN)
	boolean(EnvPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	boolean(EnvSeedDemoData, &cfg.SeedDemoData)

	money(EnvTaxRate, &cfg.Pricing.TaxRate)
	money(EnvShippingFee, &cfg.Pricing.ShippingFee)
	money(EnvFreeShippingThreshold, &cfg.Pricing.FreeShippingThreshold)

	if v, ok := lookup(EnvKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	str(EnvKafkaTopic, &cfg.KafkaTopic)
	str(EnvKafkaDLQTopic, &cfg.KafkaDLQTopic)

	duration(EnvOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(EnvOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	integer(EnvOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	duration(EnvOutboxRetryDelay, &cfg.OutboxRetryDelay, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")

	if v, ok := lookup(EnvIdempotencyBackend); ok && strings.TrimSpace(v) != "" {
		backend := strings.ToLower(strings.TrimSpace(v))
		switch backend {
		case IdempotencyBackendStorage, IdempotencyBackendRedis:
			cfg.IdempotencyBackend = backend
		default:
			warn(EnvIdempotencyBackend, v, fmt.Errorf("must be %q or %q", IdempotencyBackendStorage, IdempotencyBackendRedis))
		}
	}
	str(EnvRedisAddr, &cfg.RedisAddr)
	duration(EnvIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	integer(EnvIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positive, "must be > 0")

	str(EnvOTLPEndpoint, &cfg.OTLPEndpoint)
	if v, ok := lookup(EnvTraceSampleRatio); ok && strings.TrimSpace(v) != "" {
		ratio, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		switch {
		case err != nil:
			warn(EnvTraceSampleRatio, v, err)
		case ratio <= 0 || ratio > 1:
			warn(EnvTraceSampleRatio, v, fmt.Errorf("must be in (0, 1]"))
		default:
			cfg.TraceSampleRatio = ratio
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value")
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%s", rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%s", rule)
	}
	return value, nil
}

func parseNonNegativeDecimal(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if value.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("must be >= 0")
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
