package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/marketplace/internal/storage/redis"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// namedChecker проверка зависимости для /healthz и grpc health.
type namedChecker struct {
	name     string
	checker  healthcheck.Checker
	optional bool
}

// runtimeDependencies хранилища и коллабораторы, выбранные конфигурацией.
type runtimeDependencies struct {
	orders          domain.OrderRepository
	catalog         domain.CatalogService
	users           domain.UserDirectory
	localizer       domain.StatusLocalizer
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	checkers        []namedChecker
	closeFn         func() error
}

// initRuntimeDependencies открывает хранилище заказов и бэкенд идемпотентности.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	var (
		deps *runtimeDependencies
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		deps = initMemoryStorage(cfg, logger)
	case StorageDriverPostgres:
		deps, err = initPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.IdempotencyBackend == IdempotencyBackendRedis {
		if err := attachRedisIdempotency(ctx, cfg, deps, logger); err != nil {
			_ = deps.close()
			return nil, err
		}
	}
	return deps, nil
}

func initMemoryStorage(cfg Config, logger *log.Entry) *runtimeDependencies {
	catalog := memory.NewCatalogRepository()
	users := memory.NewUserDirectory()
	outboxRepo := memory.NewOutboxRepository()
	if cfg.SeedDemoData {
		memory.SeedDemo(catalog, users)
		logger.WithField("user_id", memory.DemoUserID).Info("demo catalog seeded")
	}

	return &runtimeDependencies{
		orders:          memory.NewOrderRepository(catalog, outboxRepo),
		catalog:         catalog,
		users:           users,
		localizer:       memory.NewStatusLocalizer(),
		outboxRepo:      outboxRepo,
		idempotencyRepo: memory.NewIdempotencyRepository(),
	}
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, fmt.Errorf("%s is required for storage driver %q", EnvPostgresDSN, StorageDriverPostgres)
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithApplicationName(version.ClientID("order-service")))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	return &runtimeDependencies{
		orders:          postgres.NewOrderRepository(store),
		catalog:         postgres.NewCatalogRepository(store),
		users:           postgres.NewUserDirectory(store),
		localizer:       postgres.NewStatusLocalizer(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		checkers: []namedChecker{{
			name:    "postgres",
			checker: healthcheck.NewPingChecker("postgres", 0, store.Ping),
		}},
		closeFn: store.Close,
	}, nil
}

func attachRedisIdempotency(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	client, err := redisstore.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("redis idempotency backend: %w", err)
	}

	deps.idempotencyRepo = redisstore.NewIdempotencyRepository(client)
	deps.checkers = append(deps.checkers, namedChecker{
		name: "redis",
		checker: healthcheck.NewPingChecker("redis", 0, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}),
		optional: true,
	})
	deps.chainClose(func() error {
		if err := client.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
		return nil
	})
	logger.WithField("addr", cfg.RedisAddr).Info("redis idempotency backend enabled")
	return nil
}

// chainClose добавляет закрытие ресурса к closeFn; ресурсы закрываются в обратном порядке.
func (d *runtimeDependencies) chainClose(fn func() error) {
	prev := d.closeFn
	d.closeFn = func() error {
		err := fn()
		if prev != nil {
			err = errors.Join(err, prev())
		}
		return err
	}
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}
