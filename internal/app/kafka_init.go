package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// eventPublishers куда outbox worker отправляет события заказов.
type eventPublishers struct {
	events  domain.OutboxPublisher
	dlq     domain.OutboxPublisher
	checker *namedChecker
	closeFn func() error
}

// initEventPublishers подключает Kafka, если заданы брокеры.
// Без брокеров события только пишутся в лог.
func initEventPublishers(cfg Config, logger *log.Entry) (*eventPublishers, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers are not configured, order events will be logged only")
		return &eventPublishers{events: newLogPublisher(logger)}, nil
	}

	producer, err := kafka.Dial(cfg.KafkaBrokers, version.ClientID("order-service"), logger.WithField("layer", "kafka"))
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
		"dlq":     cfg.KafkaDLQTopic,
	}).Info("kafka producer initialized")

	return &eventPublishers{
		events: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		dlq:    kafka.NewDeadLetterPublisher(producer, cfg.KafkaDLQTopic, cfg.KafkaTopic),
		checker: &namedChecker{
			name:     "kafka",
			checker:  healthcheck.NewPingChecker("kafka", 0, producer.Ping),
			optional: true,
		},
		closeFn: producer.Close,
	}, nil
}

// close закрывает producer, если он был создан.
func (p *eventPublishers) close(logger *log.Entry) {
	if p == nil || p.closeFn == nil {
		return
	}
	if err := p.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// logPublisher пишет события в лог вместо брокера.
type logPublisher struct {
	logger *log.Entry
}

func newLogPublisher(logger *log.Entry) *logPublisher {
	return &logPublisher{logger: logger.WithField("layer", "events")}
}

func (p *logPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_id":     event.ID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Info("order event")
	return nil
}
