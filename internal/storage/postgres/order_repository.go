package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// queryer общий интерфейс *sql.DB и *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `
	id, user_id, order_number, order_date, status,
	subtotal, tax_total, shipping_total, grand_total, notes,
	tax_rate, shipping_fee, free_shipping_threshold,
	version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order, events ...domain.OutboxMessage) (domain.Order, error) {
	adjustments := make([]domain.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		adjustments = append(adjustments, domain.StockAdjustment{
			ItemID:    item.ItemID,
			VariantID: item.ItemVariantID,
			Delta:     -item.Quantity,
		})
	}

	created := order.Clone()
	created.Version = 1

	err := inTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := applyStock(ctx, tx, adjustments); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (
				id, user_id, order_date, status,
				subtotal, tax_total, shipping_total, grand_total, notes,
				tax_rate, shipping_fee, free_shipping_threshold,
				version, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING order_number
		`,
			created.ID, created.UserID, created.OrderDate, string(created.Status),
			created.Subtotal, created.TaxTotal, created.ShippingTotal, created.GrandTotal, created.Notes,
			created.Pricing.TaxRate, created.Pricing.ShippingFee, created.Pricing.FreeShippingThreshold,
			created.Version, created.CreatedAt, created.UpdatedAt,
		).Scan(&created.OrderNumber)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return domain.ErrOrderVersionConflict
			case isForeignKeyViolation(err):
				return domain.NewNotFoundError("user", created.UserID)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range created.Items {
			created.Items[i].OrderID = created.ID
			if err := insertItem(ctx, tx, created.Items[i], i); err != nil {
				return err
			}
		}
		for _, addr := range []*domain.OrderAddress{&created.Shipping, &created.Billing} {
			addr.OrderID = created.ID
			if err := insertAddress(ctx, tx, *addr); err != nil {
				return err
			}
		}
		created.Payment.OrderID = created.ID
		if err := insertPayment(ctx, tx, created.Payment); err != nil {
			return err
		}

		return enqueueOutbox(ctx, tx, events)
	})
	if err != nil {
		return domain.Order{}, err
	}

	return created, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) GetByNumber(ctx context.Context, number int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, filter domain.ListFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, order_number DESC
	`
	args := []any{userID, string(filter.Status)}
	if filter.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if err := loadChildren(ctx, r.db, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment, events ...domain.OutboxMessage) error {
	return inTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1,
			    subtotal = $2,
			    tax_total = $3,
			    shipping_total = $4,
			    grand_total = $5,
			    notes = $6,
			    version = version + 1,
			    updated_at = $7
			WHERE id = $8
			  AND version = $9
		`,
			string(order.Status),
			order.Subtotal, order.TaxTotal, order.ShippingTotal, order.GrandTotal,
			order.Notes,
			order.UpdatedAt,
			order.ID,
			order.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := checkVersioned(ctx, tx, res, order.ID); err != nil {
			return err
		}

		if err := applyStock(ctx, tx, adjustments); err != nil {
			return err
		}

		for _, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				UPDATE order_items
				SET quantity = $1,
				    total_price = $2,
				    status = $3,
				    delivered_at = $4,
				    on_hold_reason = $5
				WHERE id = $6
				  AND order_id = $7
			`,
				item.Quantity, item.TotalPrice, string(item.Status),
				nullTime(item.DeliveredAt), item.OnHoldReason,
				item.ID, order.ID,
			); err != nil {
				return fmt.Errorf("update order item: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE order_payments
			SET amount = $1,
			    provider_reference = $2,
			    paid_at = $3
			WHERE order_id = $4
		`, order.Payment.Amount, order.Payment.ProviderReference, nullTime(order.Payment.PaidAt), order.ID); err != nil {
			return fmt.Errorf("update order payment: %w", err)
		}

		return enqueueOutbox(ctx, tx, events)
	})
}

func (r *orderRepository) Delete(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment, events ...domain.OutboxMessage) error {
	return inTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		// Позиции, адреса и оплата удаляются каскадно.
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1 AND version = $2`, order.ID, order.Version)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if err := checkVersioned(ctx, tx, res, order.ID); err != nil {
			return err
		}

		if err := applyStock(ctx, tx, adjustments); err != nil {
			return err
		}
		return enqueueOutbox(ctx, tx, events)
	})
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	if err := loadChildren(ctx, r.db, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &order.OrderDate, &status,
		&order.Subtotal, &order.TaxTotal, &order.ShippingTotal, &order.GrandTotal, &order.Notes,
		&order.Pricing.TaxRate, &order.Pricing.ShippingFee, &order.Pricing.FreeShippingThreshold,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func loadChildren(ctx context.Context, q queryer, order *domain.Order) error {
	items, err := loadItems(ctx, q, order.ID)
	if err != nil {
		return err
	}
	order.Items = items

	if err := loadAddresses(ctx, q, order); err != nil {
		return err
	}
	return loadPayment(ctx, q, order)
}

func loadItems(ctx context.Context, q queryer, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, item_id, item_variant_id, name_en, name_fr, variant_name_en, variant_name_fr,
		       quantity, unit_price, total_price, status, delivered_at, on_hold_reason, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item        domain.OrderItem
			status      string
			deliveredAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ID, &item.ItemID, &item.ItemVariantID,
			&item.NameEn, &item.NameFr, &item.VariantNameEn, &item.VariantNameFr,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &status,
			&deliveredAt, &item.OnHoldReason, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = orderID
		item.Status = domain.ItemStatus(status)
		item.DeliveredAt = timePtr(deliveredAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func loadAddresses(ctx context.Context, q queryer, order *domain.Order) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, address_type, full_name, line1, line2, line3, city, province_state, postal_code, country
		FROM order_addresses
		WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return fmt.Errorf("load order addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			addr domain.OrderAddress
			kind string
		)
		if err := rows.Scan(
			&addr.ID, &kind, &addr.FullName, &addr.Line1, &addr.Line2, &addr.Line3,
			&addr.City, &addr.ProvinceState, &addr.PostalCode, &addr.Country,
		); err != nil {
			return fmt.Errorf("scan order address: %w", err)
		}
		addr.OrderID = order.ID
		addr.Type = domain.AddressType(kind)
		switch addr.Type {
		case domain.AddressTypeShipping:
			order.Shipping = addr
		case domain.AddressTypeBilling:
			order.Billing = addr
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order addresses: %w", err)
	}
	return nil
}

func loadPayment(ctx context.Context, q queryer, order *domain.Order) error {
	var (
		payment domain.OrderPayment
		paidAt  sql.NullTime
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, payment_method_id, amount, provider, provider_reference, paid_at
		FROM order_payments
		WHERE order_id = $1
	`, order.ID).Scan(
		&payment.ID, &payment.PaymentMethodID, &payment.Amount,
		&payment.Provider, &payment.ProviderReference, &paidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load order payment: %w", err)
	}
	payment.OrderID = order.ID
	payment.PaidAt = timePtr(paidAt)
	order.Payment = payment
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item domain.OrderItem, position int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (
			id, order_id, item_id, item_variant_id, name_en, name_fr, variant_name_en, variant_name_fr,
			quantity, unit_price, total_price, status, delivered_at, on_hold_reason, position, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		item.ID, item.OrderID, item.ItemID, item.ItemVariantID,
		item.NameEn, item.NameFr, item.VariantNameEn, item.VariantNameFr,
		item.Quantity, item.UnitPrice, item.TotalPrice, string(item.Status),
		nullTime(item.DeliveredAt), item.OnHoldReason, position, item.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func insertAddress(ctx context.Context, tx *sql.Tx, addr domain.OrderAddress) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_addresses (
			id, order_id, address_type, full_name, line1, line2, line3, city, province_state, postal_code, country
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		addr.ID, addr.OrderID, string(addr.Type), addr.FullName, addr.Line1, addr.Line2, addr.Line3,
		addr.City, addr.ProvinceState, addr.PostalCode, addr.Country,
	); err != nil {
		return fmt.Errorf("insert %s address: %w", addr.Type, err)
	}
	return nil
}

func insertPayment(ctx context.Context, tx *sql.Tx, payment domain.OrderPayment) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_payments (
			id, order_id, payment_method_id, amount, provider, provider_reference, paid_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		payment.ID, payment.OrderID, payment.PaymentMethodID, payment.Amount,
		payment.Provider, payment.ProviderReference, nullTime(payment.PaidAt),
	); err != nil {
		return fmt.Errorf("insert order payment: %w", err)
	}
	return nil
}

// applyStock применяет изменения остатков. Списание условное: строка меняется,
// только если остатка хватает, поэтому параллельные заказы не уводят его в минус.
func applyStock(ctx context.Context, tx *sql.Tx, adjustments []domain.StockAdjustment) error {
	for _, adj := range aggregateAdjustments(adjustments) {
		switch {
		case adj.delta < 0:
			requested := -adj.delta
			res, err := tx.ExecContext(ctx, `
				UPDATE item_variants
				SET stock_quantity = stock_quantity - $1
				WHERE id = $2
				  AND item_id = $3
				  AND deleted_at IS NULL
				  AND stock_quantity >= $1
			`, requested, adj.variantID, adj.itemID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("stock rows affected: %w", err)
			}
			if affected == 0 {
				return stockShortfall(ctx, tx, adj.itemID, adj.variantID, requested)
			}
		case adj.delta > 0:
			if _, err := tx.ExecContext(ctx, `
				UPDATE item_variants
				SET stock_quantity = stock_quantity + $1
				WHERE id = $2
				  AND item_id = $3
			`, adj.delta, adj.variantID, adj.itemID); err != nil {
				return fmt.Errorf("release stock: %w", err)
			}
		}
	}
	return nil
}

func stockShortfall(ctx context.Context, tx *sql.Tx, itemID, variantID string, requested int64) error {
	var available int32
	err := tx.QueryRowContext(ctx, `
		SELECT stock_quantity
		FROM item_variants
		WHERE id = $1
		  AND item_id = $2
		  AND deleted_at IS NULL
	`, variantID, itemID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("item variant", variantID)
		}
		return fmt.Errorf("read stock: %w", err)
	}
	return &domain.InsufficientStockError{
		ItemID:    itemID,
		VariantID: variantID,
		Available: available,
		Requested: requested,
	}
}

type stockChange struct {
	itemID    string
	variantID string
	delta     int64
}

// aggregateAdjustments суммирует изменения по варианту и упорядочивает их,
// чтобы параллельные транзакции блокировали строки в одном порядке.
func aggregateAdjustments(adjustments []domain.StockAdjustment) []stockChange {
	type key struct{ item, variant string }
	sums := make(map[key]int64, len(adjustments))
	for _, adj := range adjustments {
		sums[key{adj.ItemID, adj.VariantID}] += int64(adj.Delta)
	}

	result := make([]stockChange, 0, len(sums))
	for k, delta := range sums {
		if delta == 0 {
			continue
		}
		result = append(result, stockChange{itemID: k.item, variantID: k.variant, delta: delta})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].variantID != result[j].variantID {
			return result[i].variantID < result[j].variantID
		}
		return result[i].itemID < result[j].itemID
	})
	return result
}

func checkVersioned(ctx context.Context, tx *sql.Tx, res sql.Result, orderID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := orderExistsTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrOrderVersionConflict
}

func orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	at := t.Time.UTC()
	return &at
}

var _ domain.OrderRepository = (*orderRepository)(nil)
