package domain

import "strings"

// OrderStatus описывает жизненный цикл заказа в маркетплейсе.
type OrderStatus string

const (
	// OrderStatusPending заказ оформлен и ожидает обработки продавцом.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing заказ собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped заказ передан в доставку, содержимое больше не меняется.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered заказ доставлен (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет все статусы заказа в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// ParseOrderStatus приводит код к закрытому перечислению статусов.
func ParseOrderStatus(code string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(code)))
	return status, status.Valid()
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ContentEditable сообщает, можно ли в этом статусе менять заметки и позиции или удалить заказ.
func (s OrderStatus) ContentEditable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransitionTo проверяет допустимость перехода статуса заказа.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ItemStatus описывает статус исполнения отдельной позиции.
// Статус позиции не выводится из статуса заказа и наоборот.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusOnHold    ItemStatus = "on_hold"
	ItemStatusShipped   ItemStatus = "shipped"
	ItemStatusDelivered ItemStatus = "delivered"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending: {ItemStatusOnHold, ItemStatusShipped},
	ItemStatusOnHold:  {ItemStatusPending, ItemStatusShipped},
	ItemStatusShipped: {ItemStatusDelivered},
}

// ParseItemStatus приводит код к закрытому перечислению статусов позиции.
func ParseItemStatus(code string) (ItemStatus, bool) {
	status := ItemStatus(strings.ToLower(strings.TrimSpace(code)))
	return status, status.Valid()
}

// Valid проверяет, что статус позиции поддерживается.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusOnHold, ItemStatusShipped, ItemStatusDelivered:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода статуса позиции.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ModifyAction различает виды изменений для проверки прав.
type ModifyAction int

const (
	// ModifyStatus смена статуса заказа или позиции.
	ModifyStatus ModifyAction = iota
	// ModifyContent правка заметок/количеств и удаление заказа.
	ModifyContent
)

// CanModify проверяет, может ли пользователь выполнить действие над заказом.
// Возвращает AuthorizationError, если пользователь не владелец или статус блокирует действие.
func CanModify(order *Order, userID string, action ModifyAction) error {
	if !order.OwnedBy(userID) {
		return &AuthorizationError{OrderID: order.ID, Reason: "order belongs to another user"}
	}

	switch action {
	case ModifyContent:
		if !order.Status.ContentEditable() {
			return &AuthorizationError{OrderID: order.ID, Reason: "order in status " + string(order.Status) + " can no longer be modified"}
		}
	default:
		if order.Status.Terminal() {
			return &AuthorizationError{OrderID: order.ID, Reason: "order in status " + string(order.Status) + " is final"}
		}
	}

	return nil
}
