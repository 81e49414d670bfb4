package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/app"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

// readConfig читает конфигурацию из окружения и логирует отброшенные значения.
func readConfig(lookup app.EnvLookup) app.Config {
	cfg, warnings := app.LoadConfig(lookup)
	setupLogger(cfg.LogLevel)
	for _, w := range warnings {
		log.WithField("component", "config").Warn(w)
	}
	return cfg
}

func main() {
	cfg := readConfig(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":           cfg.GRPCAddr,
		"metrics_addr":        cfg.MetricsAddr,
		"storage_driver":      cfg.StorageDriver,
		"idempotency_backend": cfg.IdempotencyBackend,
		"kafka_enabled":       len(cfg.KafkaBrokers) > 0,
		"build":               version.String(),
	}).Info("запускаем OrderService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("OrderService остановлен")
}
