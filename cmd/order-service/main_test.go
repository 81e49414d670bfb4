package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/app"
)

func mapLookup(values map[string]string) app.EnvLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestReadConfig_AppliesLogLevel(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	cfg := readConfig(mapLookup(map[string]string{
		app.EnvLogLevel:      "warn",
		app.EnvStorageDriver: " PoStGrEs ",
	}))

	require.Equal(t, log.WarnLevel, cfg.LogLevel)
	require.Equal(t, log.WarnLevel, log.GetLevel())
	require.Equal(t, app.StorageDriverPostgres, cfg.StorageDriver)
}

func TestReadConfig_InvalidValuesKeepDefaults(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	cfg := readConfig(mapLookup(map[string]string{
		app.EnvLogLevel:        "chatty",
		app.EnvOutboxBatchSize: "zero",
	}))

	def := app.DefaultConfig()
	require.Equal(t, def.LogLevel, cfg.LogLevel)
	require.Equal(t, def.OutboxBatchSize, cfg.OutboxBatchSize)
}
