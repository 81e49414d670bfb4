package kafka

// Topics для Kafka
const (
	TopicOrderEvents     = "marketplace.order.events"
	TopicDeadLetterQueue = "marketplace.order.events.dlq"
)

// Kafka headers, которые проставляются каждому сообщению outbox.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
)

// Header заголовок сообщения Kafka.
type Header struct {
	Key   string
	Value string
}
