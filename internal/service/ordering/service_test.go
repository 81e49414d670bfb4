package ordering

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCreate_ComputesTotalsAndPersists(t *testing.T) {
	f := newFixture(t)

	view := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 4})
	order := view.Order

	require.Equal(t, testUser, order.UserID)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, int64(1), order.OrderNumber)
	require.True(t, dec("40.00").Equal(order.Subtotal))
	require.True(t, dec("5.20").Equal(order.TaxTotal))
	require.True(t, dec("10.00").Equal(order.ShippingTotal))
	require.True(t, dec("55.20").Equal(order.GrandTotal))
	require.True(t, dec("55.20").Equal(order.Payment.Amount))
	require.Nil(t, order.Payment.PaidAt)

	require.Len(t, order.Items, 1)
	require.Equal(t, "Shirt", order.Items[0].NameEn)
	require.Equal(t, "Bleu", order.Items[0].VariantNameFr)
	require.Equal(t, domain.ItemStatusPending, order.Items[0].Status)
	require.Equal(t, domain.AddressTypeShipping, order.Shipping.Type)
	require.Equal(t, domain.AddressTypeBilling, order.Billing.Type)
	require.Equal(t, "Pending", view.StatusName.NameEn)
	require.Empty(t, order.ValidateInvariants())

	require.Equal(t, int32(6), f.stock(testItem, testVariant))

	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, string(domain.EventOrderCreated), pending[0].EventType)
	require.Equal(t, order.ID, pending[0].AggregateID)
}

func TestCreate_FreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(t)

	view := f.create(t, LineRequest{ItemID: expensiveItem, VariantID: expensiveVar, Quantity: 3})

	require.True(t, dec("60.00").Equal(view.Order.Subtotal))
	require.True(t, dec("0").Equal(view.Order.ShippingTotal))
	require.True(t, dec("67.80").Equal(view.Order.GrandTotal))
}

func TestCreate_PaidWhenProviderReferenceGiven(t *testing.T) {
	f := newFixture(t)
	req := createRequest(LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	req.Payment.ProviderReference = "pi_123"

	view, err := f.svc.Create(context.Background(), testUser, req)
	require.NoError(t, err)
	require.NotNil(t, view.Order.Payment.PaidAt)
	require.Equal(t, f.now, *view.Order.Payment.PaidAt)
}

func TestCreate_FailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		req    CreateOrderRequest
		kind   error
	}{
		{
			name:   "empty items",
			userID: testUser,
			req:    createRequest(),
			kind:   domain.ErrValidation,
		},
		{
			name:   "unknown user",
			userID: "ghost",
			req:    createRequest(LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1}),
			kind:   domain.ErrNotFound,
		},
		{
			name:   "unknown item",
			userID: testUser,
			req:    createRequest(LineRequest{ItemID: "missing", VariantID: testVariant, Quantity: 1}),
			kind:   domain.ErrNotFound,
		},
		{
			name:   "insufficient stock on second line",
			userID: testUser,
			req: createRequest(
				LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1},
				LineRequest{ItemID: expensiveItem, VariantID: expensiveVar, Quantity: 11},
			),
			kind: domain.ErrInsufficientStock,
		},
		{
			name:   "repeated lines exceed stock together",
			userID: testUser,
			req: createRequest(
				LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 5},
				LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 6},
			),
			kind: domain.ErrInsufficientStock,
		},
		{
			name:   "repeated line with int32 max quantity",
			userID: testUser,
			req: createRequest(
				LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 10},
				LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: math.MaxInt32},
			),
			kind: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Create(context.Background(), tt.userID, tt.req)
			require.ErrorIs(t, err, tt.kind)

			orders, err := f.orders.ListByUser(context.Background(), tt.userID, domain.ListFilter{})
			require.NoError(t, err)
			require.Empty(t, orders)
			require.Equal(t, int32(10), f.stock(testItem, testVariant))
			require.Equal(t, int32(10), f.stock(expensiveItem, expensiveVar))
			require.Empty(t, f.outbox.AllPending())
		})
	}
}

func TestCreate_OrderNumbersIncrease(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	second := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	require.Greater(t, second.Order.OrderNumber, first.Order.OrderNumber)
}

func TestGet_ReturnsWhatCreateStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := createRequest(
		LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 2},
		LineRequest{ItemID: expensiveItem, VariantID: expensiveVar, Quantity: 1},
	)
	req.Billing.City = "Quebec"
	req.Payment.ProviderReference = "pi_42"
	req.Notes = "ring twice"

	created, err := f.svc.Create(ctx, testUser, req)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, testUser, created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	require.Len(t, got.Order.Items, 2)
	require.Equal(t, "Veste", got.Order.Items[1].NameFr)
	require.True(t, dec("20.00").Equal(got.Order.Items[0].TotalPrice))
	require.Equal(t, "Montreal", got.Order.Shipping.City)
	require.Equal(t, "Quebec", got.Order.Billing.City)
	require.Equal(t, "pi_42", got.Order.Payment.ProviderReference)
	require.True(t, created.Order.GrandTotal.Equal(got.Order.Payment.Amount))
	require.True(t, dec("40.00").Equal(got.Order.Subtotal))
	require.Equal(t, "ring twice", got.Order.Notes)

	byNumber, err := f.svc.GetByNumber(ctx, testUser, created.Order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, got, byNumber)
}

func TestGet_RepeatedReadsAreIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 3})

	first, err := f.svc.Get(ctx, testUser, created.Order.ID)
	require.NoError(t, err)
	second, err := f.svc.Get(ctx, testUser, created.Order.ID)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int32(7), f.stock(testItem, testVariant))
	require.Len(t, f.outbox.AllPending(), 1)
}

func TestGet_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	ctx := context.Background()

	view, err := f.svc.Get(ctx, testUser, created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, created.Order.ID, view.Order.ID)

	_, err = f.svc.Get(ctx, otherUser, created.Order.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(ctx, testUser, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	byNumber, err := f.svc.GetByNumber(ctx, testUser, created.Order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, created.Order.ID, byNumber.Order.ID)

	_, err = f.svc.GetByNumber(ctx, otherUser, created.Order.OrderNumber)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	_, err := f.svc.UpdateStatus(ctx, testUser, first.Order.ID, "processing")
	require.NoError(t, err)

	all, err := f.svc.List(ctx, testUser, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	processing, err := f.svc.List(ctx, testUser, "Processing", 0)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	require.Equal(t, first.Order.ID, processing[0].Order.ID)
	require.Equal(t, "Processing", processing[0].StatusName.NameEn)

	limited, err := f.svc.List(ctx, testUser, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := f.svc.List(ctx, otherUser, "", 0)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = f.svc.List(ctx, testUser, "lost", 0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, normalizeLimit(0))
	require.Equal(t, DefaultListLimit, normalizeLimit(-5))
	require.Equal(t, 42, normalizeLimit(42))
	require.Equal(t, MaxListLimit, normalizeLimit(10_000))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	id := created.Order.ID

	_, err := f.svc.UpdateStatus(ctx, testUser, id, "shipped")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, testUser, id, "teleported")
	require.ErrorIs(t, err, domain.ErrNotFound)

	for _, next := range []string{"processing", "shipped", "delivered"} {
		view, err := f.svc.UpdateStatus(ctx, testUser, id, next)
		require.NoError(t, err, next)
		require.Equal(t, domain.OrderStatus(next), view.Order.Status)
	}

	// delivered терминальный: дальнейшие изменения запрещены.
	_, err = f.svc.UpdateStatus(ctx, testUser, id, "cancelled")
	require.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := f.orders.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, stored.Status)
	require.Equal(t, domain.ItemStatusPending, stored.Items[0].Status)
}

func TestUpdateStatus_ForbiddenForOtherUser(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	// Даже некорректный код статуса возвращает 403, а не 404.
	_, err := f.svc.UpdateStatus(context.Background(), otherUser, created.Order.ID, "teleported")
	require.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := f.orders.Get(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestUpdateStatus_CancelReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 4})
	require.Equal(t, int32(6), f.stock(testItem, testVariant))

	view, err := f.svc.UpdateStatus(ctx, testUser, created.Order.ID, "cancelled")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, view.Order.Status)
	require.Equal(t, int32(10), f.stock(testItem, testVariant))

	// cancelled терминальный, удаление запрещено.
	require.ErrorIs(t, f.svc.Delete(ctx, testUser, created.Order.ID), domain.ErrForbidden)
	require.Equal(t, int32(10), f.stock(testItem, testVariant))
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	view, err := f.svc.UpdateStatus(context.Background(), testUser, created.Order.ID, "pending")
	require.NoError(t, err)
	require.Equal(t, created.Order.Version, view.Order.Version)
	require.Len(t, f.outbox.AllPending(), 1)
}

func TestUpdate_QuantityRecomputesTotalsAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 4})
	lineID := created.Order.Items[0].ID

	view, err := f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Notes: strPtr("ring twice"),
		Items: []ItemQuantity{{OrderItemID: lineID, Quantity: 6}},
	})
	require.NoError(t, err)

	order := view.Order
	require.Equal(t, "ring twice", order.Notes)
	require.Equal(t, int32(6), order.Items[0].Quantity)
	require.True(t, dec("60.00").Equal(order.Items[0].TotalPrice))
	require.True(t, dec("60.00").Equal(order.Subtotal))
	require.True(t, dec("7.80").Equal(order.TaxTotal))
	require.True(t, dec("0").Equal(order.ShippingTotal))
	require.True(t, dec("67.80").Equal(order.GrandTotal))
	require.True(t, dec("67.80").Equal(order.Payment.Amount))
	require.Equal(t, created.Order.Version+1, order.Version)
	require.Empty(t, order.ValidateInvariants())
	require.Equal(t, int32(4), f.stock(testItem, testVariant))

	view, err = f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Items: []ItemQuantity{{OrderItemID: lineID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, dec("10.00").Equal(view.Order.Subtotal))
	require.Equal(t, int32(9), f.stock(testItem, testVariant))
}

func TestUpdate_QuantityIncreaseBeyondStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 4})

	_, err := f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Items: []ItemQuantity{{OrderItemID: created.Order.Items[0].ID, Quantity: 11}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	stored, err := f.orders.Get(ctx, created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, int32(4), stored.Items[0].Quantity)
	require.Equal(t, int32(6), f.stock(testItem, testVariant))
}

func TestUpdate_ContentLockedAfterShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	id := created.Order.ID

	_, err := f.svc.UpdateStatus(ctx, testUser, id, "processing")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, testUser, id, "shipped")
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, testUser, id, UpdateOrderRequest{Notes: strPtr("too late")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	// Смена статуса из shipped по-прежнему разрешена.
	view, err := f.svc.Update(ctx, testUser, id, UpdateOrderRequest{Status: strPtr("delivered")})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, view.Order.Status)
}

func TestUpdate_UnknownItemAndInvalidPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	_, err := f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Items: []ItemQuantity{{OrderItemID: "missing", Quantity: 2}},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Notes: strPtr(strings.Repeat("x", MaxNotesLength+1)),
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Update(ctx, otherUser, created.Order.ID, UpdateOrderRequest{
		Notes: strPtr(strings.Repeat("x", MaxNotesLength+1)),
	})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdate_StatusAndNotesEmitEvents(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	_, err := f.svc.Update(context.Background(), testUser, created.Order.ID, UpdateOrderRequest{
		Status: strPtr("processing"),
		Notes:  strPtr("gift wrap"),
	})
	require.NoError(t, err)

	pending := f.outbox.AllPending()
	require.Len(t, pending, 3)
	require.Equal(t, string(domain.EventOrderUpdated), pending[1].EventType)
	require.Equal(t, string(domain.EventOrderStatusChanged), pending[2].EventType)

	var payload domain.OrderEvent
	require.NoError(t, json.Unmarshal(pending[2].Payload, &payload))
	require.Equal(t, "pending", payload.PreviousStatus)
	require.Equal(t, "processing", payload.Status)
}

func TestUpdateItemStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t,
		LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1},
		LineRequest{ItemID: expensiveItem, VariantID: expensiveVar, Quantity: 1},
	)
	id := created.Order.ID
	first := created.Order.Items[0].ID
	second := created.Order.Items[1].ID

	_, err := f.svc.UpdateItemStatus(ctx, testUser, id, first, "on_hold", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	view, err := f.svc.UpdateItemStatus(ctx, testUser, id, first, "on_hold", "awaiting restock")
	require.NoError(t, err)
	item, _ := view.Order.Item(first)
	require.Equal(t, domain.ItemStatusOnHold, item.Status)
	require.Equal(t, "awaiting restock", item.OnHoldReason)

	_, err = f.svc.UpdateItemStatus(ctx, testUser, id, first, "delivered", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateItemStatus(ctx, testUser, id, first, "shipped", "")
	require.NoError(t, err)
	view, err = f.svc.UpdateItemStatus(ctx, testUser, id, first, "delivered", "")
	require.NoError(t, err)

	item, _ = view.Order.Item(first)
	require.Equal(t, domain.ItemStatusDelivered, item.Status)
	require.NotNil(t, item.DeliveredAt)

	other, _ := view.Order.Item(second)
	require.Equal(t, domain.ItemStatusPending, other.Status)
	require.Nil(t, other.DeliveredAt)

	// Статус заказа не выводится из статусов позиций.
	require.Equal(t, domain.OrderStatusPending, view.Order.Status)

	_, err = f.svc.UpdateItemStatus(ctx, testUser, id, "missing", "shipped", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateItemStatus(ctx, testUser, id, second, "lost", "")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.UpdateItemStatus(ctx, otherUser, id, second, "shipped", "")
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateItemStatus_LeavingHoldClearsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	id := created.Order.ID
	lineID := created.Order.Items[0].ID

	_, err := f.svc.UpdateItemStatus(ctx, testUser, id, lineID, "on_hold", "awaiting restock")
	require.NoError(t, err)

	view, err := f.svc.UpdateItemStatus(ctx, testUser, id, lineID, "pending", "")
	require.NoError(t, err)
	item, _ := view.Order.Item(lineID)
	require.Equal(t, domain.ItemStatusPending, item.Status)
	require.Empty(t, item.OnHoldReason)

	_, err = f.svc.UpdateItemStatus(ctx, testUser, id, lineID, "on_hold", "address check")
	require.NoError(t, err)
	view, err = f.svc.UpdateItemStatus(ctx, testUser, id, lineID, "shipped", "")
	require.NoError(t, err)
	item, _ = view.Order.Item(lineID)
	require.Empty(t, item.OnHoldReason)

	stored, err := f.svc.Get(ctx, testUser, id)
	require.NoError(t, err)
	require.Empty(t, stored.Order.Items[0].OnHoldReason)
}

func TestUpdate_UnchangedContentIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 2})
	id := created.Order.ID

	view, err := f.svc.Update(ctx, testUser, id, UpdateOrderRequest{
		Items: []ItemQuantity{{OrderItemID: created.Order.Items[0].ID, Quantity: 2}},
		Notes: strPtr(created.Order.Notes),
	})
	require.NoError(t, err)
	require.Equal(t, created.Order.Version, view.Order.Version)
	require.Len(t, f.outbox.AllPending(), 1)

	stored, err := f.orders.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, created.Order.Version, stored.Version)
	require.Equal(t, int32(8), f.stock(testItem, testVariant))

	view, err = f.svc.Update(ctx, testUser, id, UpdateOrderRequest{Notes: strPtr("side door")})
	require.NoError(t, err)
	require.Equal(t, created.Order.Version+1, view.Order.Version)
	require.Len(t, f.outbox.AllPending(), 2)
}

func TestUpdate_ShippedItemQuantityLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 2})
	lineID := created.Order.Items[0].ID

	_, err := f.svc.UpdateItemStatus(ctx, testUser, created.Order.ID, lineID, "shipped", "")
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, testUser, created.Order.ID, UpdateOrderRequest{
		Items: []ItemQuantity{{OrderItemID: lineID, Quantity: 3}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 3})
	id := created.Order.ID

	require.ErrorIs(t, f.svc.Delete(ctx, otherUser, id), domain.ErrForbidden)
	require.Equal(t, int32(7), f.stock(testItem, testVariant))

	require.NoError(t, f.svc.Delete(ctx, testUser, id))
	require.Equal(t, int32(10), f.stock(testItem, testVariant))

	_, err := f.svc.Get(ctx, testUser, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, testUser, id), domain.ErrNotFound)

	pending := f.outbox.AllPending()
	require.Equal(t, string(domain.EventOrderDeleted), pending[len(pending)-1].EventType)
}

func TestDelete_ForbiddenAfterShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})

	_, err := f.svc.UpdateStatus(ctx, testUser, created.Order.ID, "processing")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, testUser, created.Order.ID))

	shipped := f.create(t, LineRequest{ItemID: testItem, VariantID: testVariant, Quantity: 1})
	_, err = f.svc.UpdateStatus(ctx, testUser, shipped.Order.ID, "processing")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, testUser, shipped.Order.ID, "shipped")
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.Delete(ctx, testUser, shipped.Order.ID), domain.ErrForbidden)
}
