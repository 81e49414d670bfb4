package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale число знаков после запятой для денежных сумм (минимальная единица валюты).
const MoneyScale int32 = 2

// AddressType различает адрес доставки и адрес плательщика.
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

// PricingSnapshot фиксирует политику ценообразования, действовавшую при создании заказа.
// Пересчёт итогов после изменения количества идёт только по этому снимку.
type PricingSnapshot struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// OrderItem представляет одну купленную позицию (вариант товара + количество).
type OrderItem struct {
	ID            string
	OrderID       string
	ItemID        string
	ItemVariantID string
	// Снимки названий на момент оформления, из каталога больше не перечитываются.
	NameEn        string
	NameFr        string
	VariantNameEn string
	VariantNameFr string
	Quantity      int32
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	Status        ItemStatus
	DeliveredAt   *time.Time
	OnHoldReason  string
	CreatedAt     time.Time
}

// OrderAddress адрес, привязанный к заказу (ровно один shipping и один billing).
type OrderAddress struct {
	ID            string
	OrderID       string
	Type          AddressType
	FullName      string
	Line1         string
	Line2         string
	Line3         string
	City          string
	ProvinceState string
	PostalCode    string
	Country       string
}

// OrderPayment запись об оплате заказа.
type OrderPayment struct {
	ID                string
	OrderID           string
	PaymentMethodID   string // Пустой, если сохранённый способ оплаты не выбран.
	Amount            decimal.Decimal
	Provider          string
	ProviderReference string
	PaidAt            *time.Time
}

// Order агрегирует заказ пользователя вместе с позициями, адресами и оплатой.
type Order struct {
	ID            string
	UserID        string
	OrderNumber   int64
	OrderDate     time.Time
	Status        OrderStatus
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	GrandTotal    decimal.Decimal
	Notes         string
	Pricing       PricingSnapshot
	Items         []OrderItem
	Shipping      OrderAddress
	Billing       OrderAddress
	Payment       OrderPayment
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OwnedBy сообщает, принадлежит ли заказ пользователю.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// Item возвращает указатель на позицию заказа по её идентификатору.
func (o *Order) Item(itemID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// Clone возвращает глубокую копию заказа, чтобы хранилища не делили срезы с вызывающим кодом.
func (o Order) Clone() Order {
	dst := o
	dst.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		if item.DeliveredAt != nil {
			at := *item.DeliveredAt
			item.DeliveredAt = &at
		}
		dst.Items[i] = item
	}
	if o.Payment.PaidAt != nil {
		at := *o.Payment.PaidAt
		dst.Payment.PaidAt = &at
	}
	return dst
}

// ValidateInvariants проверяет денежные и структурные инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Shipping.Type != AddressTypeShipping || o.Billing.Type != AddressTypeBilling {
		errs = append(errs, ErrAddressTypeMismatch)
	}

	// Сверяем итоги заказа с суммой позиций: unit_price * qty.
	subtotal := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !item.TotalPrice.Equal(item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)).Round(MoneyScale)) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		subtotal = subtotal.Add(item.TotalPrice)
	}
	if !subtotal.Equal(o.Subtotal) {
		errs = append(errs, ErrSubtotalMismatch)
	}
	if !o.Subtotal.Add(o.TaxTotal).Add(o.ShippingTotal).Equal(o.GrandTotal) {
		errs = append(errs, ErrGrandTotalMismatch)
	}

	return errs
}
