package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const defaultOutboxBatch = 100

type deliveryState uint8

const (
	statePending deliveryState = iota
	stateSent
	stateFailed
)

type outboxEntry struct {
	msg      domain.OutboxMessage
	state    deliveryState
	attempts int
}

// OutboxRepository хранит outbox в памяти. Порядок записей совпадает с порядком Enqueue.
type OutboxRepository struct {
	mu      sync.RWMutex
	log     []*outboxEntry
	byID    map[string]*outboxEntry
	pending int
}

// NewOutboxRepository создаёт пустой outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{byID: make(map[string]*outboxEntry)}
}

// Enqueue добавляет сообщение в статусе pending.
func (r *OutboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return r.add(msg), nil
}

// add используется OrderRepository внутри одной операции над заказом.
func (r *OutboxRepository) add(msg domain.OutboxMessage) domain.OutboxMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.Payload = bytes.Clone(msg.Payload)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &outboxEntry{msg: msg}
	r.log = append(r.log, entry)
	r.byID[msg.ID] = entry
	r.pending++
	return msg
}

// PullPending возвращает до limit старейших pending-сообщений.
func (r *OutboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxBatch
	}
	return r.collectPending(limit), nil
}

// AllPending возвращает все pending-сообщения.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	return r.collectPending(0)
}

func (r *OutboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OutboxStats{PendingCount: r.pending}
	for _, e := range r.log {
		if e.state == statePending {
			stats.OldestPendingAt = e.msg.CreatedAt
			break
		}
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id string) error {
	return r.settle(id, stateSent)
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.settle(id, stateFailed)
}

func (r *OutboxRepository) settle(id string, state deliveryState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	if e.state == statePending {
		r.pending--
	}
	e.state = state
	e.attempts++
	return nil
}

// collectPending копирует pending-сообщения; limit 0 означает все.
func (r *OutboxRepository) collectPending(limit int) []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.pending
	if limit > 0 {
		size = min(size, limit)
	}
	out := make([]domain.OutboxMessage, 0, size)
	for _, e := range r.log {
		if limit > 0 && len(out) == limit {
			break
		}
		if e.state != statePending {
			continue
		}
		msg := e.msg
		msg.Payload = bytes.Clone(e.msg.Payload)
		out = append(out, msg)
	}
	return out
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
