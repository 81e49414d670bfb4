package domain

import (
	"context"
	"time"
)

// CatalogService читает товары каталога (внешний коллаборатор).
type CatalogService interface {
	// GetItem возвращает товар с неудалёнными вариантами или ErrCatalogItemNotFound.
	GetItem(ctx context.Context, itemID string) (CatalogItem, error)
}

// UserDirectory проверяет существование пользователей (внешний коллаборатор).
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// StatusLocalizer отдаёт локализованные названия статусов заказа.
type StatusLocalizer interface {
	// FindByCode возвращает названия статуса или ErrStatusNotLocalized.
	FindByCode(ctx context.Context, status OrderStatus) (StatusName, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte) error
	MarkFailed(ctx context.Context, key string, responseBody []byte) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
