package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "memory-storage"))
	require.NoError(t, err)
	defer func() { require.NoError(t, deps.close()) }()

	require.NotNil(t, deps.orders)
	require.NotNil(t, deps.catalog)
	require.NotNil(t, deps.users)
	require.NotNil(t, deps.localizer)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.idempotencyRepo)
	require.Empty(t, deps.checkers, "memory storage has nothing to ping")

	exists, err := deps.users.UserExists(context.Background(), memory.DemoUserID)
	require.NoError(t, err)
	require.True(t, exists, "demo data must be seeded by default")

	item, err := deps.catalog.GetItem(context.Background(), memory.DemoItemID)
	require.NoError(t, err)
	require.NotEmpty(t, item.Variants)
}

func TestInitRuntimeDependencies_MemoryWithoutSeed(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SeedDemoData = false

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "memory-empty"))
	require.NoError(t, err)

	exists, err := deps.users.UserExists(context.Background(), memory.DemoUserID)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	require.ErrorContains(t, err, EnvPostgresDSN)
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestInitRuntimeDependencies_RedisRequiresAddr(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.IdempotencyBackend = IdempotencyBackendRedis

	_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "redis-missing-addr"))
	require.ErrorContains(t, err, "redis")
}

func TestRuntimeDependencies_ChainCloseRunsInReverseOrder(t *testing.T) {
	t.Parallel()

	var order []string
	deps := &runtimeDependencies{}
	deps.chainClose(func() error { order = append(order, "store"); return nil })
	deps.chainClose(func() error { order = append(order, "redis"); return nil })

	require.NoError(t, deps.close())
	require.Equal(t, []string{"redis", "store"}, order)

	var nilDeps *runtimeDependencies
	require.NoError(t, nilDeps.close())
}
