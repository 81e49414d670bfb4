package ordering

import (
	"context"
	"errors"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// SnapshotReader читает текущие цены, названия и остатки из каталога.
// Ничего не пишет: остатки списываются позже, в транзакции создания заказа.
type SnapshotReader struct {
	catalog domain.CatalogService
}

// NewSnapshotReader создаёт reader поверх каталога.
func NewSnapshotReader(catalog domain.CatalogService) *SnapshotReader {
	return &SnapshotReader{catalog: catalog}
}

type variantKey struct {
	itemID    string
	variantID string
}

// Read возвращает снимки в порядке строк запроса. Первая ошибка прерывает чтение.
func (r *SnapshotReader) Read(ctx context.Context, lines []LineRequest) ([]domain.LineSnapshot, error) {
	items := make(map[string]domain.CatalogItem, len(lines))
	requested := make(map[variantKey]int64, len(lines))
	result := make([]domain.LineSnapshot, 0, len(lines))

	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			fetched, err := r.catalog.GetItem(ctx, line.ItemID)
			if err != nil {
				if errors.Is(err, domain.ErrCatalogItemNotFound) {
					return nil, domain.NewNotFoundError("item", line.ItemID)
				}
				return nil, domain.NewPersistenceError("read catalog item", err)
			}
			item = fetched
			items[line.ItemID] = item
		}
		if item.Deleted() {
			return nil, domain.NewNotFoundError("item", line.ItemID)
		}

		variant, ok := item.Variant(line.VariantID)
		if !ok || variant.DeletedAt != nil {
			return nil, domain.NewNotFoundError("item variant", line.VariantID)
		}

		// Повторяющиеся строки одного варианта проверяются по суммарному количеству.
		key := variantKey{itemID: line.ItemID, variantID: line.VariantID}
		requested[key] += int64(line.Quantity)
		if int64(variant.StockQuantity) < requested[key] {
			return nil, &domain.InsufficientStockError{
				ItemID:    line.ItemID,
				VariantID: line.VariantID,
				Available: variant.StockQuantity,
				Requested: requested[key],
			}
		}

		result = append(result, domain.LineSnapshot{
			ItemID:        line.ItemID,
			VariantID:     line.VariantID,
			Quantity:      line.Quantity,
			UnitPrice:     variant.Price,
			NameEn:        item.NameEn,
			NameFr:        item.NameFr,
			VariantNameEn: variant.NameEn,
			VariantNameFr: variant.NameFr,
		})
	}

	return result, nil
}
