package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

const (
	testUser      = "user-1"
	otherUser     = "user-2"
	testItem      = "item-1"
	testVariant   = "variant-1"
	expensiveItem = "item-2"
	expensiveVar  = "variant-2"
)

type fixture struct {
	svc     *Service
	catalog *memory.CatalogRepository
	outbox  *memory.OutboxRepository
	orders  domain.OrderRepository
	now     time.Time
}

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	catalog.Put(domain.CatalogItem{
		ID:     testItem,
		NameEn: "Shirt",
		NameFr: "Chemise",
		Variants: []domain.CatalogVariant{
			{ID: testVariant, NameEn: "Blue", NameFr: "Bleu", Price: decimal.RequireFromString("10.00"), StockQuantity: 10},
		},
	})
	catalog.Put(domain.CatalogItem{
		ID:     expensiveItem,
		NameEn: "Jacket",
		NameFr: "Veste",
		Variants: []domain.CatalogVariant{
			{ID: expensiveVar, NameEn: "Black", NameFr: "Noir", Price: decimal.RequireFromString("20.00"), StockQuantity: 10},
		},
	})

	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepository(catalog, outbox)
	users := memory.NewUserDirectory(testUser, otherUser)

	f := &fixture{
		catalog: catalog,
		outbox:  outbox,
		orders:  orders,
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(orders, catalog, users, memory.NewStatusLocalizer(),
		WithLogger(loggerForTests()),
		WithMetrics(metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func address() AddressInput {
	return AddressInput{
		FullName:      "Jane Doe",
		Line1:         "1 Main St",
		City:          "Montreal",
		ProvinceState: "QC",
		PostalCode:    "H2X 1Y4",
		Country:       "CA",
	}
}

func createRequest(lines ...LineRequest) CreateOrderRequest {
	return CreateOrderRequest{
		Items:    lines,
		Shipping: address(),
		Billing:  address(),
		Payment:  PaymentInput{Provider: "stripe"},
	}
}

func (f *fixture) create(t *testing.T, lines ...LineRequest) OrderView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), testUser, createRequest(lines...))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return view
}

func (f *fixture) stock(itemID, variantID string) int32 {
	stock, _ := f.catalog.Stock(itemID, variantID)
	return stock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
