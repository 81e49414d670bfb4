package domain

import (
	"errors"
	"fmt"
)

// Виды ошибок. Конкретные типы ниже разворачиваются в них через errors.Is.
var (
	// ErrValidation некорректный запрос (400).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound отсутствует пользователь, товар, вариант, заказ или статус (404).
	ErrNotFound = errors.New("not found")
	// ErrForbidden пользователь не владелец заказа или статус запрещает изменение (403).
	ErrForbidden = errors.New("operation is not permitted")
	// ErrInsufficientStock на складе меньше единиц, чем запрошено (400).
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPersistence непредвиденный сбой хранилища (500).
	ErrPersistence = errors.New("persistence failure")
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound error = &NotFoundError{Entity: "order"}
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrCatalogItemNotFound возвращается каталогом, если товара нет.
	ErrCatalogItemNotFound error = &NotFoundError{Entity: "item"}
	// ErrStatusNotLocalized в справочнике нет названий для статуса.
	ErrStatusNotLocalized error = &NotFoundError{Entity: "order status"}
	// ErrOutboxPublish ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// Нарушения инвариантов заказа, которые возвращает Order.ValidateInvariants.
var (
	ErrUserRequired        = errors.New("user_id is required")
	ErrItemsRequired       = errors.New("order must contain at least one item")
	ErrItemQtyInvalid      = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid    = errors.New("item price must be non-negative")
	ErrLineTotalMismatch   = errors.New("item total does not match unit price times quantity")
	ErrSubtotalMismatch    = errors.New("order subtotal does not match items sum")
	ErrGrandTotalMismatch  = errors.New("order grand total does not match subtotal, tax and shipping")
	ErrAddressTypeMismatch = errors.New("order must have one shipping and one billing address")
)

// ValidationError описывает первое найденное нарушение во входных данных.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError создаёт ошибку валидации поля.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError сообщает об отсутствии сущности.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError создаёт ошибку отсутствия сущности с идентификатором.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthorizationError отказ в изменении заказа.
type AuthorizationError struct {
	OrderID string
	Reason  string
}

func (e *AuthorizationError) Error() string {
	return "order " + e.OrderID + ": " + e.Reason
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// InsufficientStockError несёт сведения о доступном и запрошенном количестве.
type InsufficientStockError struct {
	ItemID    string
	VariantID string
	Available int32
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s of item %s: available %d, requested %d",
		e.VariantID, e.ItemID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PersistenceError оборачивает непредвиденную ошибку хранилища.
// Текст ошибки не должен уходить клиенту.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// NewPersistenceError оборачивает err, если это не одна из известных доменных ошибок.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomainError проверяет, относится ли ошибка к известной таксономии.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrOrderVersionConflict)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
