package ordering

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// StatusView код статуса заказа с локализованными названиями.
type StatusView struct {
	Code   domain.OrderStatus
	NameEn string
	NameFr string
}

// OrderView read-model заказа: шапка, позиции, адреса, оплата и названия статуса.
type OrderView struct {
	Order      domain.Order
	StatusName StatusView
}

// Assembler собирает OrderView из заказа и справочника статусов.
type Assembler struct {
	localizer domain.StatusLocalizer
	logger    *log.Entry
}

// NewAssembler создаёт assembler.
func NewAssembler(localizer domain.StatusLocalizer, logger *log.Entry) *Assembler {
	if logger == nil {
		logger = log.WithField("component", "order-assembler")
	}
	return &Assembler{localizer: localizer, logger: logger}
}

// Assemble возвращает read-model заказа.
// Если в справочнике нет названий статуса, вместо них используется код.
func (a *Assembler) Assemble(ctx context.Context, order domain.Order) (OrderView, error) {
	view := OrderView{
		Order: order,
		StatusName: StatusView{
			Code:   order.Status,
			NameEn: string(order.Status),
			NameFr: string(order.Status),
		},
	}
	if a.localizer == nil {
		return view, nil
	}

	name, err := a.localizer.FindByCode(ctx, order.Status)
	switch {
	case err == nil:
		view.StatusName.NameEn = name.NameEn
		view.StatusName.NameFr = name.NameFr
	case errors.Is(err, domain.ErrStatusNotLocalized):
		a.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("order status is not localized")
	default:
		return OrderView{}, domain.NewPersistenceError("read order status names", err)
	}

	return view, nil
}

// AssembleAll собирает read-model для списка заказов.
func (a *Assembler) AssembleAll(ctx context.Context, orders []domain.Order) ([]OrderView, error) {
	result := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		view, err := a.Assemble(ctx, order)
		if err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, nil
}
