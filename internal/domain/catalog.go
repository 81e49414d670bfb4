package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogVariant покупаемая конфигурация товара со своей ценой и остатком.
type CatalogVariant struct {
	ID            string
	ItemID        string
	NameEn        string
	NameFr        string
	Price         decimal.Decimal
	StockQuantity int32
	DeletedAt     *time.Time
}

// CatalogItem товар каталога с неудалёнными вариантами.
type CatalogItem struct {
	ID        string
	CompanyID string
	NameEn    string
	NameFr    string
	DeletedAt *time.Time
	Variants  []CatalogVariant
}

// Deleted сообщает, помечен ли товар как удалённый.
func (i CatalogItem) Deleted() bool {
	return i.DeletedAt != nil
}

// Variant ищет вариант товара по идентификатору.
func (i CatalogItem) Variant(variantID string) (CatalogVariant, bool) {
	for _, v := range i.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return CatalogVariant{}, false
}

// LineSnapshot неизменяемый снимок цены и названий позиции на момент оформления.
type LineSnapshot struct {
	ItemID        string
	VariantID     string
	Quantity      int32
	UnitPrice     decimal.Decimal
	NameEn        string
	NameFr        string
	VariantNameEn string
	VariantNameFr string
}

// StockAdjustment изменение остатка варианта в рамках транзакции заказа.
// Отрицательная Delta списывает остаток (только если его хватает), положительная возвращает.
type StockAdjustment struct {
	ItemID    string
	VariantID string
	Delta     int32
}

// StatusName локализованные названия статуса заказа.
type StatusName struct {
	Code   OrderStatus
	NameEn string
	NameFr string
}
