package memory

import (
	"context"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// defaultStatusNames совпадает с сидом таблицы order_statuses.
var defaultStatusNames = map[domain.OrderStatus]domain.StatusName{
	domain.OrderStatusPending:    {Code: domain.OrderStatusPending, NameEn: "Pending", NameFr: "En attente"},
	domain.OrderStatusProcessing: {Code: domain.OrderStatusProcessing, NameEn: "Processing", NameFr: "En traitement"},
	domain.OrderStatusShipped:    {Code: domain.OrderStatusShipped, NameEn: "Shipped", NameFr: "Expédiée"},
	domain.OrderStatusDelivered:  {Code: domain.OrderStatusDelivered, NameEn: "Delivered", NameFr: "Livrée"},
	domain.OrderStatusCancelled:  {Code: domain.OrderStatusCancelled, NameEn: "Cancelled", NameFr: "Annulée"},
}

// StatusLocalizer отдаёт встроенные названия статусов.
type StatusLocalizer struct {
	names map[domain.OrderStatus]domain.StatusName
}

// NewStatusLocalizer создаёт справочник; overrides заменяют встроенные названия.
func NewStatusLocalizer(overrides ...domain.StatusName) *StatusLocalizer {
	names := make(map[domain.OrderStatus]domain.StatusName, len(defaultStatusNames))
	for code, name := range defaultStatusNames {
		names[code] = name
	}
	for _, name := range overrides {
		names[name.Code] = name
	}
	return &StatusLocalizer{names: names}
}

func (l *StatusLocalizer) FindByCode(_ context.Context, status domain.OrderStatus) (domain.StatusName, error) {
	name, ok := l.names[status]
	if !ok {
		return domain.StatusName{}, domain.ErrStatusNotLocalized
	}
	return name, nil
}

var _ domain.StatusLocalizer = (*StatusLocalizer)(nil)
