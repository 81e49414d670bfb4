package memory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newCatalog(stock int32) *memory.CatalogRepository {
	catalog := memory.NewCatalogRepository()
	catalog.Put(domain.CatalogItem{
		ID:     "item-1",
		NameEn: "Shirt",
		Variants: []domain.CatalogVariant{
			{ID: "variant-1", NameEn: "Blue", Price: decimal.RequireFromString("10.00"), StockQuantity: stock},
		},
	})
	return catalog
}

func newOrder(id string, qty int32) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:     id,
		UserID: "user-1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ID: id + "-line", ItemID: "item-1", ItemVariantID: "variant-1", Quantity: qty, Status: domain.ItemStatusPending, CreatedAt: now},
		},
		Shipping:  domain.OrderAddress{Type: domain.AddressTypeShipping},
		Billing:   domain.OrderAddress{Type: domain.AddressTypeBilling},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(10)
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(catalog, outbox)

	created, err := repo.Create(ctx, newOrder("order-1", 4), domain.OutboxMessage{AggregateID: "order-1", EventType: "order.created"})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.OrderNumber)
	require.Equal(t, int64(1), created.Version)
	require.Equal(t, "order-1", created.Items[0].OrderID)

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, created.OrderNumber, stored.OrderNumber)

	byNumber, err := repo.GetByNumber(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "order-1", byNumber.ID)

	stock, ok := catalog.Stock("item-1", "variant-1")
	require.True(t, ok)
	require.Equal(t, int32(6), stock)
	require.Len(t, outbox.AllPending(), 1)
}

func TestOrderRepository_OrderNumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository(newCatalog(10), nil)

	first, err := repo.Create(ctx, newOrder("order-1", 1))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newOrder("order-2", 1))
	require.NoError(t, err)

	require.Equal(t, first.OrderNumber+1, second.OrderNumber)
}

func TestOrderRepository_CreateInsufficientStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(3)
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(catalog, outbox)

	_, err := repo.Create(ctx, newOrder("order-1", 5), domain.OutboxMessage{EventType: "order.created"})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int32(3), stockErr.Available)
	require.Equal(t, int64(5), stockErr.Requested)

	_, err = repo.Get(ctx, "order-1")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	stock, _ := catalog.Stock("item-1", "variant-1")
	require.Equal(t, int32(3), stock)
	require.Empty(t, outbox.AllPending())
}

func TestOrderRepository_RepeatedVariantSumDoesNotWrap(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(10)
	repo := memory.NewOrderRepository(catalog, nil)

	order := newOrder("order-1", math.MaxInt32)
	second := order.Items[0]
	second.ID = "order-1-line-2"
	order.Items = append(order.Items, second)

	_, err := repo.Create(ctx, order)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(2*math.MaxInt32), stockErr.Requested)

	stock, _ := catalog.Stock("item-1", "variant-1")
	require.Equal(t, int32(10), stock)
}

func TestOrderRepository_ConcurrentCreateNeverOversells(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(5)
	repo := memory.NewOrderRepository(catalog, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newOrder("order-"+string(rune('a'+i)), 1))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 5, success)
	stock, _ := catalog.Stock("item-1", "variant-1")
	require.Equal(t, int32(0), stock)
}

func TestOrderRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository(newCatalog(10), nil)

	older := newOrder("order-old", 1)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	_, err := repo.Create(ctx, older)
	require.NoError(t, err)

	newer := newOrder("order-new", 1)
	newer.Status = domain.OrderStatusProcessing
	_, err = repo.Create(ctx, newer)
	require.NoError(t, err)

	other := newOrder("order-other", 1)
	other.UserID = "user-2"
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	orders, err := repo.ListByUser(ctx, "user-1", domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "order-new", orders[0].ID)

	orders, err = repo.ListByUser(ctx, "user-1", domain.ListFilter{Status: domain.OrderStatusPending})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "order-old", orders[0].ID)

	orders, err = repo.ListByUser(ctx, "user-1", domain.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestOrderRepository_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository(newCatalog(10), nil)

	created, err := repo.Create(ctx, newOrder("order-1", 1))
	require.NoError(t, err)

	created.Notes = "first"
	require.NoError(t, repo.Update(ctx, created, nil))

	stale := created
	stale.Notes = "stale"
	require.ErrorIs(t, repo.Update(ctx, stale, nil), domain.ErrOrderVersionConflict)

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, "first", stored.Notes)
	require.Equal(t, int64(2), stored.Version)
}

func TestOrderRepository_UpdateAdjustsStock(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(10)
	repo := memory.NewOrderRepository(catalog, nil)

	created, err := repo.Create(ctx, newOrder("order-1", 2))
	require.NoError(t, err)

	created.Items[0].Quantity = 12
	err = repo.Update(ctx, created, []domain.StockAdjustment{{ItemID: "item-1", VariantID: "variant-1", Delta: -10}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	created.Items[0].Quantity = 5
	require.NoError(t, repo.Update(ctx, created, []domain.StockAdjustment{{ItemID: "item-1", VariantID: "variant-1", Delta: -3}}))

	stock, _ := catalog.Stock("item-1", "variant-1")
	require.Equal(t, int32(5), stock)
}

func TestOrderRepository_DeleteReleasesStock(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(10)
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepository(catalog, outbox)

	created, err := repo.Create(ctx, newOrder("order-1", 4))
	require.NoError(t, err)

	release := []domain.StockAdjustment{{ItemID: "item-1", VariantID: "variant-1", Delta: 4}}
	require.NoError(t, repo.Delete(ctx, created, release, domain.OutboxMessage{EventType: "order.deleted"}))

	_, err = repo.Get(ctx, "order-1")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = repo.GetByNumber(ctx, created.OrderNumber)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	stock, _ := catalog.Stock("item-1", "variant-1")
	require.Equal(t, int32(10), stock)
	require.Len(t, outbox.AllPending(), 1)

	require.ErrorIs(t, repo.Delete(ctx, created, nil), domain.ErrOrderNotFound)
}

func TestOrderRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository(newCatalog(10), nil)

	created, err := repo.Create(ctx, newOrder("order-1", 1))
	require.NoError(t, err)
	created.Items[0].Quantity = 100

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, int32(1), stored.Items[0].Quantity)
}
