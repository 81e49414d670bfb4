package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateOrder тип агрегата для событий заказа в outbox.
const AggregateOrder = "order"

// EventType определяет тип события заказа.
type EventType string

const (
	EventOrderCreated           EventType = "order.created"
	EventOrderUpdated           EventType = "order.updated"
	EventOrderStatusChanged     EventType = "order.status_changed"
	EventOrderItemStatusChanged EventType = "order.item_status_changed"
	EventOrderDeleted           EventType = "order.deleted"
)

// OrderEvent полезная нагрузка событий заказа.
type OrderEvent struct {
	OrderID        string    `json:"order_id"`
	OrderNumber    int64     `json:"order_number,omitempty"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	GrandTotal     string    `json:"grand_total,omitempty"`
	OrderItemID    string    `json:"order_item_id,omitempty"`
	ItemStatus     string    `json:"item_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewOrderEvent заполняет общие поля события из заказа.
func NewOrderEvent(order *Order, occurredAt time.Time) OrderEvent {
	return OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		GrandTotal:  order.GrandTotal.StringFixed(MoneyScale),
		OccurredAt:  occurredAt.UTC(),
	}
}

// OutboxMessage упаковывает событие для transactional outbox.
func (e OrderEvent) OutboxMessage(eventType EventType) (OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: AggregateOrder,
		AggregateID:   e.OrderID,
		EventType:     string(eventType),
		Payload:       payload,
		CreatedAt:     e.OccurredAt,
	}, nil
}
