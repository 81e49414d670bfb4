package grpcsvc

import (
	ordersv1 "github.com/vladislavdragonenkov/marketplace/api/orders/v1"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/ordering"
)

func fromCreateRequest(req *ordersv1.CreateOrderRequest) ordering.CreateOrderRequest {
	out := ordering.CreateOrderRequest{
		Items:    make([]ordering.LineRequest, 0, len(req.Items)),
		Shipping: fromAddress(req.Shipping),
		Billing:  fromAddress(req.Billing),
		Notes:    req.Notes,
	}
	for _, item := range req.Items {
		if item == nil {
			// Пустая позиция не проходит валидацию количества.
			out.Items = append(out.Items, ordering.LineRequest{})
			continue
		}
		out.Items = append(out.Items, ordering.LineRequest{
			ItemID:    item.ItemID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	if req.Payment != nil {
		out.Payment = ordering.PaymentInput{
			Provider:          req.Payment.Provider,
			PaymentMethodID:   req.Payment.PaymentMethodID,
			ProviderReference: req.Payment.ProviderReference,
		}
	}
	return out
}

func fromAddress(addr *ordersv1.Address) ordering.AddressInput {
	if addr == nil {
		return ordering.AddressInput{}
	}
	return ordering.AddressInput{
		FullName:      addr.FullName,
		Line1:         addr.Line1,
		Line2:         addr.Line2,
		Line3:         addr.Line3,
		City:          addr.City,
		ProvinceState: addr.ProvinceState,
		PostalCode:    addr.PostalCode,
		Country:       addr.Country,
	}
}

func toAPIOrder(view ordering.OrderView) *ordersv1.Order {
	order := view.Order
	items := make([]*ordersv1.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, &ordersv1.OrderItem{
			ID:            item.ID,
			ItemID:        item.ItemID,
			VariantID:     item.ItemVariantID,
			NameEn:        item.NameEn,
			NameFr:        item.NameFr,
			VariantNameEn: item.VariantNameEn,
			VariantNameFr: item.VariantNameFr,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice.StringFixed(domain.MoneyScale),
			TotalPrice:    item.TotalPrice.StringFixed(domain.MoneyScale),
			Status:        string(item.Status),
			DeliveredAt:   item.DeliveredAt,
			OnHoldReason:  item.OnHoldReason,
		})
	}

	return &ordersv1.Order{
		ID:          order.ID,
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		OrderDate:   order.OrderDate,
		Status: &ordersv1.Status{
			Code:   string(view.StatusName.Code),
			NameEn: view.StatusName.NameEn,
			NameFr: view.StatusName.NameFr,
		},
		Subtotal:      order.Subtotal.StringFixed(domain.MoneyScale),
		TaxTotal:      order.TaxTotal.StringFixed(domain.MoneyScale),
		ShippingTotal: order.ShippingTotal.StringFixed(domain.MoneyScale),
		GrandTotal:    order.GrandTotal.StringFixed(domain.MoneyScale),
		Notes:         order.Notes,
		Items:         items,
		Shipping:      toAPIAddress(order.Shipping),
		Billing:       toAPIAddress(order.Billing),
		Payment: &ordersv1.Payment{
			ID:                order.Payment.ID,
			Provider:          order.Payment.Provider,
			PaymentMethodID:   order.Payment.PaymentMethodID,
			ProviderReference: order.Payment.ProviderReference,
			Amount:            order.Payment.Amount.StringFixed(domain.MoneyScale),
			PaidAt:            order.Payment.PaidAt,
		},
		Version:   order.Version,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func toAPIAddress(addr domain.OrderAddress) *ordersv1.Address {
	return &ordersv1.Address{
		FullName:      addr.FullName,
		Line1:         addr.Line1,
		Line2:         addr.Line2,
		Line3:         addr.Line3,
		City:          addr.City,
		ProvinceState: addr.ProvinceState,
		PostalCode:    addr.PostalCode,
		Country:       addr.Country,
	}
}
