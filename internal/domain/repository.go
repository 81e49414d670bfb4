package domain

import "context"

// ListFilter ограничивает выборку заказов пользователя.
type ListFilter struct {
	// Status пустое значение означает "все статусы".
	Status OrderStatus
	Limit  int
}

// OrderRepository описывает требования к хранилищу заказов.
// Каждый метод записи выполняется одной транзакцией: заказ, позиции, адреса, оплата,
// изменения остатков и события outbox либо появляются вместе, либо не появляются вовсе.
type OrderRepository interface {
	// Create сохраняет новый заказ и списывает остатки вариантов по его позициям.
	// Номер заказа назначает хранилище; возвращается сохранённый заказ.
	// Если остатка не хватает, возвращает InsufficientStockError и ничего не пишет.
	Create(ctx context.Context, order Order, events ...OutboxMessage) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// GetByNumber возвращает заказ по пользовательскому номеру или ErrOrderNotFound.
	GetByNumber(ctx context.Context, number int64) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Order, error)
	// Update применяет изменения заказа и позиций с учётом optimistic locking
	// и корректирует остатки согласно adjustments.
	Update(ctx context.Context, order Order, adjustments []StockAdjustment, events ...OutboxMessage) error
	// Delete удаляет позиции, адреса, оплату и сам заказ и возвращает остатки
	// согласно adjustments, при условии, что версия заказа не изменилась.
	Delete(ctx context.Context, order Order, adjustments []StockAdjustment, events ...OutboxMessage) error
}
