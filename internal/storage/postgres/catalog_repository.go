package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// CatalogRepository читает товары и варианты из таблиц items и item_variants.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию каталога.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{db: store.DB()}
}

// GetItem возвращает товар с неудалёнными вариантами.
func (r *CatalogRepository) GetItem(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		item      domain.CatalogItem
		deletedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, name_en, name_fr, deleted_at
		FROM items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.CompanyID, &item.NameEn, &item.NameFr, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CatalogItem{}, domain.ErrCatalogItemNotFound
		}
		return domain.CatalogItem{}, fmt.Errorf("select item: %w", err)
	}
	item.DeletedAt = timePtr(deletedAt)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name_en, name_fr, price, stock_quantity
		FROM item_variants
		WHERE item_id = $1
		  AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, itemID)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("select item variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		variant := domain.CatalogVariant{ItemID: itemID}
		if err := rows.Scan(&variant.ID, &variant.NameEn, &variant.NameFr, &variant.Price, &variant.StockQuantity); err != nil {
			return domain.CatalogItem{}, fmt.Errorf("scan item variant: %w", err)
		}
		item.Variants = append(item.Variants, variant)
	}
	if err := rows.Err(); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("iterate item variants: %w", err)
	}

	return item, nil
}

// UpsertItem сохраняет товар и его варианты (используется для наполнения каталога).
func (r *CatalogRepository) UpsertItem(ctx context.Context, item domain.CatalogItem) error {
	return inTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, company_id, name_en, name_fr, deleted_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO UPDATE
			SET company_id = EXCLUDED.company_id,
			    name_en = EXCLUDED.name_en,
			    name_fr = EXCLUDED.name_fr,
			    deleted_at = EXCLUDED.deleted_at
		`, item.ID, item.CompanyID, item.NameEn, item.NameFr, nullTime(item.DeletedAt)); err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}

		for _, v := range item.Variants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO item_variants (id, item_id, name_en, name_fr, price, stock_quantity, deleted_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
				ON CONFLICT (id) DO UPDATE
				SET name_en = EXCLUDED.name_en,
				    name_fr = EXCLUDED.name_fr,
				    price = EXCLUDED.price,
				    stock_quantity = EXCLUDED.stock_quantity,
				    deleted_at = EXCLUDED.deleted_at
			`, v.ID, item.ID, v.NameEn, v.NameFr, v.Price, v.StockQuantity, nullTime(v.DeletedAt)); err != nil {
				return fmt.Errorf("upsert item variant %s: %w", v.ID, err)
			}
		}
		return nil
	})
}

// Stock возвращает текущий остаток варианта.
func (r *CatalogRepository) Stock(ctx context.Context, itemID, variantID string) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stock int32
	err := r.db.QueryRowContext(ctx, `
		SELECT stock_quantity FROM item_variants WHERE id = $1 AND item_id = $2
	`, variantID, itemID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewNotFoundError("item variant", variantID)
		}
		return 0, fmt.Errorf("select stock: %w", err)
	}
	return stock, nil
}

// UserDirectory проверяет пользователей по таблице users.
type UserDirectory struct {
	db *sql.DB
}

// NewUserDirectory создаёт PostgreSQL-реализацию справочника пользователей.
func NewUserDirectory(store *Store) *UserDirectory {
	return &UserDirectory{db: store.DB()}
}

// UserExists сообщает, зарегистрирован ли пользователь.
func (d *UserDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := d.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Add регистрирует пользователя, если его ещё нет.
func (d *UserDirectory) Add(ctx context.Context, userID, email string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, userID, email); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// StatusLocalizer читает названия статусов из order_statuses.
type StatusLocalizer struct {
	db *sql.DB
}

// NewStatusLocalizer создаёт PostgreSQL-реализацию локализации статусов.
func NewStatusLocalizer(store *Store) *StatusLocalizer {
	return &StatusLocalizer{db: store.DB()}
}

// FindByCode возвращает названия статуса или ErrStatusNotLocalized.
func (l *StatusLocalizer) FindByCode(ctx context.Context, status domain.OrderStatus) (domain.StatusName, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		name domain.StatusName
		code string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT code, name_en, name_fr FROM order_statuses WHERE code = $1
	`, string(status)).Scan(&code, &name.NameEn, &name.NameFr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StatusName{}, domain.ErrStatusNotLocalized
		}
		return domain.StatusName{}, fmt.Errorf("select order status: %w", err)
	}
	name.Code = domain.OrderStatus(code)
	return name, nil
}

var (
	_ domain.CatalogService  = (*CatalogRepository)(nil)
	_ domain.UserDirectory   = (*UserDirectory)(nil)
	_ domain.StatusLocalizer = (*StatusLocalizer)(nil)
)
