package ordering

// LineRequest выбранный покупателем вариант товара и количество.
type LineRequest struct {
	ItemID    string
	VariantID string
	Quantity  int32
}

// AddressInput адрес доставки или оплаты.
type AddressInput struct {
	FullName      string
	Line1         string
	Line2         string
	Line3         string
	City          string
	ProvinceState string
	PostalCode    string
	Country       string
}

// PaymentInput выбирает способ оплаты.
type PaymentInput struct {
	Provider          string
	PaymentMethodID   string
	ProviderReference string
}

// CreateOrderRequest входные данные оформления заказа.
type CreateOrderRequest struct {
	Items    []LineRequest
	Shipping AddressInput
	Billing  AddressInput
	Payment  PaymentInput
	Notes    string
}

// ItemQuantity задаёт новое количество для позиции заказа.
type ItemQuantity struct {
	OrderItemID string
	Quantity    int32
}

// UpdateOrderRequest частичное изменение заказа; nil-поля не меняются.
type UpdateOrderRequest struct {
	Status *string
	Notes  *string
	Items  []ItemQuantity
}

func (r UpdateOrderRequest) changesContent() bool {
	return r.Notes != nil || len(r.Items) > 0
}
