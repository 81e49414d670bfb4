package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// orderRepositoryInMemory in-memory реализация OrderRepository.
// Запись заказа, изменение остатков и события outbox выполняются под одной блокировкой.
type orderRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[string]domain.Order
	byNumber   map[int64]string
	nextNumber int64

	catalog *CatalogRepository
	outbox  *OutboxRepository
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
// catalog обязателен; outbox может быть nil, тогда события отбрасываются.
func NewOrderRepository(catalog *CatalogRepository, outbox *OutboxRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		byNumber: make(map[int64]string),
		catalog:  catalog,
		outbox:   outbox,
	}
}

// Create сохраняет новый заказ, списывает остатки и назначает номер заказа.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order, events ...domain.OutboxMessage) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	adjustments := make([]domain.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		adjustments = append(adjustments, domain.StockAdjustment{
			ItemID:    item.ItemID,
			VariantID: item.ItemVariantID,
			Delta:     -item.Quantity,
		})
	}
	if err := r.catalog.apply(adjustments); err != nil {
		return domain.Order{}, err
	}

	r.nextNumber++
	order.OrderNumber = r.nextNumber
	order.Version = 1
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	order.Shipping.OrderID = order.ID
	order.Billing.OrderID = order.ID
	order.Payment.OrderID = order.ID

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order.Clone()
	r.byNumber[order.OrderNumber] = order.ID
	r.enqueue(events)

	return order.Clone(), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// GetByNumber возвращает заказ по номеру.
func (r *orderRepositoryInMemory) GetByNumber(_ context.Context, number int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.items[id].Clone(), nil
}

// ListByUser возвращает заказы пользователя, ограничивая выборку filter.Limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(_ context.Context, userID string, filter domain.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		result = append(result, order.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].OrderNumber > result[j].OrderNumber
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Update перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Update(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment, events ...domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	if err := r.catalog.apply(adjustments); err != nil {
		return err
	}

	// Номер заказа неизменен.
	order.OrderNumber = current.OrderNumber
	order.Version++
	r.items[order.ID] = order.Clone()
	r.enqueue(events)
	return nil
}

// Delete удаляет заказ целиком и возвращает остатки.
func (r *orderRepositoryInMemory) Delete(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment, events ...domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	if err := r.catalog.apply(adjustments); err != nil {
		return err
	}

	delete(r.items, order.ID)
	delete(r.byNumber, current.OrderNumber)
	r.enqueue(events)
	return nil
}

func (r *orderRepositoryInMemory) enqueue(events []domain.OutboxMessage) {
	if r.outbox == nil {
		return
	}
	for _, event := range events {
		r.outbox.add(event)
	}
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
