package ordering

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	// MaxNotesLength ограничивает длину заметок к заказу (в символах).
	MaxNotesLength = 2000
	// MaxLineQuantity верхняя граница количества в одной позиции.
	MaxLineQuantity = 10000
)

// ValidateCreate проверяет запрос на оформление заказа.
// Возвращает первую найденную ошибку.
func ValidateCreate(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	for i, line := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(line.ItemID) == "" {
			return domain.NewValidationError(field+".item_id", "is required")
		}
		if strings.TrimSpace(line.VariantID) == "" {
			return domain.NewValidationError(field+".variant_id", "is required")
		}
		if err := validateQuantity(field, line.Quantity); err != nil {
			return err
		}
	}

	if err := validateAddress("shipping_address", req.Shipping); err != nil {
		return err
	}
	if err := validateAddress("billing_address", req.Billing); err != nil {
		return err
	}

	if strings.TrimSpace(req.Payment.Provider) == "" {
		return domain.NewValidationError("payment.provider", "is required")
	}

	return validateNotes(req.Notes)
}

// ValidateUpdate проверяет запрос на изменение заказа.
func ValidateUpdate(req UpdateOrderRequest) error {
	if req.Status == nil && !req.changesContent() {
		return domain.NewValidationError("", "update must change status, notes or items")
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) == "" {
		return domain.NewValidationError("status", "must not be blank")
	}
	if req.Notes != nil {
		if err := validateNotes(*req.Notes); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.OrderItemID) == "" {
			return domain.NewValidationError(field+".order_item_id", "is required")
		}
		if err := validateQuantity(field, item.Quantity); err != nil {
			return err
		}
		if _, dup := seen[item.OrderItemID]; dup {
			return domain.NewValidationError(field+".order_item_id", "is listed more than once")
		}
		seen[item.OrderItemID] = struct{}{}
	}
	return nil
}

func validateQuantity(field string, quantity int32) error {
	switch {
	case quantity <= 0:
		return domain.NewValidationError(field+".quantity", "must be greater than zero")
	case quantity > MaxLineQuantity:
		return domain.NewValidationError(field+".quantity", fmt.Sprintf("must be at most %d", MaxLineQuantity))
	}
	return nil
}

func validateAddress(prefix string, a AddressInput) error {
	required := []struct {
		field string
		value string
	}{
		{"full_name", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"province_state", a.ProvinceState},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.NewValidationError(prefix+"."+r.field, "is required")
		}
	}
	return nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return domain.NewValidationError("notes", fmt.Sprintf("must be at most %d characters", MaxNotesLength))
	}
	return nil
}
