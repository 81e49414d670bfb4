package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrator_UpDownAgainstPostgres(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	status := func(wantVersion int64, wantCount int) {
		t.Helper()
		version, count, err := store.MigrationStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, wantVersion, version)
		require.Equal(t, wantCount, count)
	}

	require.NoError(t, store.MigrateDown(ctx, 100))
	status(0, 0)

	require.NoError(t, store.MigrateUp(ctx, 1))
	status(1, 1)

	require.NoError(t, store.MigrateUp(ctx, 0))
	status(3, 3)
	require.NoError(t, store.MigrateUp(ctx, 0), "repeated up is a no-op")
	status(3, 3)

	infos, err := store.Migrations(ctx)
	require.NoError(t, err)
	for _, info := range infos {
		require.True(t, info.Applied, "%d_%s", info.Version, info.Name)
		require.False(t, info.Modified, "%d_%s", info.Version, info.Name)
	}

	require.NoError(t, store.MigrateDown(ctx, 0), "zero steps rolls back one migration")
	status(2, 2)
	require.NoError(t, store.MigrateDown(ctx, 5))
	status(0, 0)
	require.NoError(t, store.MigrateDown(ctx, 1), "down on an empty schema is a no-op")
}

func TestMigrator_NilStoreAndUnknownDirection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var nilStore *Store
	require.Error(t, nilStore.MigrateUp(ctx, 0))
	require.Error(t, nilStore.MigrateDown(ctx, 1))
	_, _, err := nilStore.MigrationStatus(ctx)
	require.Error(t, err)
	_, err = nilStore.Migrations(ctx)
	require.Error(t, err)

	store := openRawPostgresStoreForIntegrationTest(t)
	require.ErrorContains(t, store.migrate(ctx, migrationDirection("sideways"), 0), "unsupported migration direction")
}
