package memory

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Идентификаторы демонстрационных данных для локального запуска.
const (
	DemoUserID     = "demo-user"
	DemoCompanyID  = "demo-company"
	DemoItemID     = "demo-item-tshirt"
	DemoVariantS   = "demo-variant-tshirt-s"
	DemoVariantM   = "demo-variant-tshirt-m"
	DemoItemMugID  = "demo-item-mug"
	DemoVariantMug = "demo-variant-mug"
)

// SeedDemo наполняет каталог и справочник пользователей демонстрационными данными.
func SeedDemo(catalog *CatalogRepository, users *UserDirectory) {
	users.Add(DemoUserID)

	catalog.Put(domain.CatalogItem{
		ID:        DemoItemID,
		CompanyID: DemoCompanyID,
		NameEn:    "T-shirt",
		NameFr:    "T-shirt",
		Variants: []domain.CatalogVariant{
			{ID: DemoVariantS, NameEn: "Small", NameFr: "Petit", Price: decimal.RequireFromString("19.99"), StockQuantity: 100},
			{ID: DemoVariantM, NameEn: "Medium", NameFr: "Moyen", Price: decimal.RequireFromString("21.99"), StockQuantity: 100},
		},
	})
	catalog.Put(domain.CatalogItem{
		ID:        DemoItemMugID,
		CompanyID: DemoCompanyID,
		NameEn:    "Mug",
		NameFr:    "Tasse",
		Variants: []domain.CatalogVariant{
			{ID: DemoVariantMug, NameEn: "Standard", NameFr: "Standard", Price: decimal.RequireFromString("9.50"), StockQuantity: 50},
		},
	})
}
