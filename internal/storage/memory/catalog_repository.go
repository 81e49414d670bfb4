package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// CatalogRepository in-memory каталог товаров с остатками вариантов.
type CatalogRepository struct {
	mu    sync.RWMutex
	items map[string]domain.CatalogItem
}

// NewCatalogRepository создаёт пустой каталог.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{items: make(map[string]domain.CatalogItem)}
}

// Put добавляет или заменяет товар вместе с вариантами (включая удалённые).
func (r *CatalogRepository) Put(item domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range item.Variants {
		item.Variants[i].ItemID = item.ID
	}
	r.items[item.ID] = cloneCatalogItem(item)
}

// GetItem возвращает товар только с неудалёнными вариантами.
func (r *CatalogRepository) GetItem(_ context.Context, itemID string) (domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return domain.CatalogItem{}, domain.ErrCatalogItemNotFound
	}

	result := item
	result.Variants = make([]domain.CatalogVariant, 0, len(item.Variants))
	for _, v := range item.Variants {
		if v.DeletedAt != nil {
			continue
		}
		result.Variants = append(result.Variants, v)
	}
	return result, nil
}

// Stock возвращает текущий остаток варианта.
func (r *CatalogRepository) Stock(itemID, variantID string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return 0, false
	}
	for _, v := range item.Variants {
		if v.ID == variantID {
			return v.StockQuantity, true
		}
	}
	return 0, false
}

// apply атомарно применяет изменения остатков: либо все, либо ни одного.
func (r *CatalogRepository) apply(adjustments []domain.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	type key struct{ item, variant string }
	totals := make(map[key]int64, len(adjustments))
	order := make([]key, 0, len(adjustments))
	for _, adj := range adjustments {
		k := key{adj.ItemID, adj.VariantID}
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		totals[k] += int64(adj.Delta)
	}

	// Сначала проверяем все списания, затем пишем.
	for _, k := range order {
		delta := totals[k]
		if delta >= 0 {
			continue
		}
		variant := r.variantLocked(k.item, k.variant)
		if variant == nil {
			return domain.NewNotFoundError("item variant", k.variant)
		}
		if int64(variant.StockQuantity) < -delta {
			return &domain.InsufficientStockError{
				ItemID:    k.item,
				VariantID: k.variant,
				Available: variant.StockQuantity,
				Requested: -delta,
			}
		}
	}

	for _, k := range order {
		if variant := r.variantLocked(k.item, k.variant); variant != nil {
			variant.StockQuantity += int32(totals[k])
		}
	}
	return nil
}

func (r *CatalogRepository) variantLocked(itemID, variantID string) *domain.CatalogVariant {
	item, ok := r.items[itemID]
	if !ok {
		return nil
	}
	for i := range item.Variants {
		if item.Variants[i].ID == variantID {
			return &item.Variants[i]
		}
	}
	return nil
}

func cloneCatalogItem(src domain.CatalogItem) domain.CatalogItem {
	dst := src
	dst.Variants = append([]domain.CatalogVariant(nil), src.Variants...)
	return dst
}

var _ domain.CatalogService = (*CatalogRepository)(nil)
