package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

type CartRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.Cart, error)
	// FindByUserID returns the user's cart with its lines and their variants.
	FindByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	GetOrCreate(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Cart, error)

	// LockForCheckout locks the user's cart row, then its lines and their
	// variant rows, and returns them ordered by variant id.
	LockForCheckout(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Cart, error)

	// FindItem returns the line and the id of the user owning its cart.
	FindItem(ctx context.Context, tx *sql.Tx, itemID int64) (*domain.CartItem, int64, error)
	// AddItem inserts the line, or adds to the quantity of the cart's line for
	// the same variant. item carries the resulting id and quantity.
	AddItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, tx *sql.Tx, itemID int64) error
	ClearItems(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

const cartItemColumns = `ci.id, ci.cart_id, ci.variant_id, ci.quantity,
	v.id, v.product_id, v.sku, v.price, v.stock, v.is_active`

func (r *cartRepo) FindByID(ctx context.Context, id int64) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM carts WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart %d: %w", id, err)
	}
	return &c, nil
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart of user %d: %w", userID, err)
	}

	items, err := scanCartItems(r.db.QueryContext(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items ci JOIN product_variants v ON v.id = ci.variant_id
		 WHERE ci.cart_id = $1 ORDER BY ci.id`, c.ID))
	if err != nil {
		return nil, fmt.Errorf("query items of cart %d: %w", c.ID, err)
	}
	c.Items = items
	return &c, nil
}

func (r *cartRepo) GetOrCreate(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Cart, error) {
	var c domain.Cart
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, user_id, created_at`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart of user %d: %w", userID, err)
	}
	return &c, nil
}

func (r *cartRepo) LockForCheckout(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Cart, error) {
	var c domain.Cart
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock cart of user %d: %w", userID, err)
	}

	items, err := scanCartItems(tx.QueryContext(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items ci JOIN product_variants v ON v.id = ci.variant_id
		 WHERE ci.cart_id = $1 ORDER BY v.id
		 FOR UPDATE`, c.ID))
	if err != nil {
		return nil, fmt.Errorf("lock items of cart %d: %w", c.ID, err)
	}
	c.Items = items
	return &c, nil
}

func (r *cartRepo) FindItem(ctx context.Context, tx *sql.Tx, itemID int64) (*domain.CartItem, int64, error) {
	var (
		item   domain.CartItem
		v      domain.Variant
		userID int64
	)
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`SELECT `+cartItemColumns+`, c.user_id
		 FROM cart_items ci
		 JOIN product_variants v ON v.id = ci.variant_id
		 JOIN carts c ON c.id = ci.cart_id
		 WHERE ci.id = $1`, itemID,
	).Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity,
		&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.IsActive, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrCartItemNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("query cart item %d: %w", itemID, err)
	}
	item.Variant = &v
	return &item, userID, nil
}

func (r *cartRepo) AddItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error {
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`INSERT INTO cart_items (cart_id, variant_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING id, quantity`,
		item.CartID, item.VariantID, item.Quantity,
	).Scan(&item.ID, &item.Quantity)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item %d: %w", itemID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, tx *sql.Tx, itemID int64) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item %d: %w", itemID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepo) ClearItems(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart %d: %w", cartID, err)
	}
	return nil
}

func scanCartItems(rows *sql.Rows, err error) ([]domain.CartItem, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var (
			item domain.CartItem
			v    domain.Variant
		)
		if err := rows.Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity,
			&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.IsActive); err != nil {
			return nil, err
		}
		item.Variant = &v
		items = append(items, item)
	}
	return items, rows.Err()
}
