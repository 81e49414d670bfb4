package ordersv1

import "time"

// Денежные суммы передаются десятичными строками с двумя знаками ("12.50").

type Address struct {
	FullName      string `json:"full_name"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	Line3         string `json:"line3,omitempty"`
	City          string `json:"city"`
	ProvinceState string `json:"province_state,omitempty"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

type LineItem struct {
	ItemID    string `json:"item_id"`
	VariantID string `json:"variant_id"`
	Quantity  int32  `json:"quantity"`
}

type PaymentMethod struct {
	Provider          string `json:"provider"`
	PaymentMethodID   string `json:"payment_method_id,omitempty"`
	ProviderReference string `json:"provider_reference,omitempty"`
}

type CreateOrderRequest struct {
	Items    []*LineItem    `json:"items"`
	Shipping *Address       `json:"shipping"`
	Billing  *Address       `json:"billing"`
	Payment  *PaymentMethod `json:"payment"`
	Notes    string         `json:"notes,omitempty"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type GetOrderByNumberRequest struct {
	OrderNumber int64 `json:"order_number"`
}

type ListOrdersRequest struct {
	// Status пустая строка означает все статусы.
	Status string `json:"status,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

type ItemQuantity struct {
	OrderItemID string `json:"order_item_id"`
	Quantity    int32  `json:"quantity"`
}

// UpdateOrderRequest частичное изменение; nil-поля не меняются.
type UpdateOrderRequest struct {
	OrderID string          `json:"order_id"`
	Status  *string         `json:"status,omitempty"`
	Notes   *string         `json:"notes,omitempty"`
	Items   []*ItemQuantity `json:"items,omitempty"`
}

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type UpdateOrderItemStatusRequest struct {
	OrderID     string `json:"order_id"`
	OrderItemID string `json:"order_item_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"order_id"`
}

type DeleteOrderResponse struct{}

type OrderResponse struct {
	Order *Order `json:"order"`
}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}

type Status struct {
	Code   string `json:"code"`
	NameEn string `json:"name_en"`
	NameFr string `json:"name_fr"`
}

type OrderItem struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	VariantID     string     `json:"variant_id"`
	NameEn        string     `json:"name_en"`
	NameFr        string     `json:"name_fr"`
	VariantNameEn string     `json:"variant_name_en"`
	VariantNameFr string     `json:"variant_name_fr"`
	Quantity      int32      `json:"quantity"`
	UnitPrice     string     `json:"unit_price"`
	TotalPrice    string     `json:"total_price"`
	Status        string     `json:"status"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	OnHoldReason  string     `json:"on_hold_reason,omitempty"`
}

type Payment struct {
	ID                string     `json:"id"`
	Provider          string     `json:"provider"`
	PaymentMethodID   string     `json:"payment_method_id,omitempty"`
	ProviderReference string     `json:"provider_reference,omitempty"`
	Amount            string     `json:"amount"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
}

type Order struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	OrderNumber   int64        `json:"order_number"`
	OrderDate     time.Time    `json:"order_date"`
	Status        *Status      `json:"status"`
	Subtotal      string       `json:"subtotal"`
	TaxTotal      string       `json:"tax_total"`
	ShippingTotal string       `json:"shipping_total"`
	GrandTotal    string       `json:"grand_total"`
	Notes         string       `json:"notes,omitempty"`
	Items         []*OrderItem `json:"items"`
	Shipping      *Address     `json:"shipping"`
	Billing       *Address     `json:"billing"`
	Payment       *Payment     `json:"payment"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
