package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

type VariantRepo interface {
	FindByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Variant, error)
	// Reserve decrements stock by quantity if and only if the variant still
	// holds at least that much. It must run inside the order's transaction.
	Reserve(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error
}

type variantRepo struct {
	db *sql.DB
}

func NewVariantRepo(db *sql.DB) VariantRepo {
	return &variantRepo{db: db}
}

func (r *variantRepo) FindByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Variant, error) {
	var v domain.Variant
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`SELECT id, product_id, sku, price, stock, is_active FROM product_variants WHERE id = $1`, id,
	).Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query variant %d: %w", id, err)
	}
	return &v, nil
}

func (r *variantRepo) Reserve(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve variant %d: quantity must be positive, got %d", variantID, quantity)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE product_variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		variantID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock of variant %d: %w", variantID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock of variant %d: %w", variantID, err)
	}
	if n == 1 {
		return nil
	}

	var available int
	err = tx.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrVariantNotFound
	}
	if err != nil {
		return fmt.Errorf("read stock of variant %d: %w", variantID, err)
	}
	return &InsufficientStockError{VariantID: variantID, Requested: quantity, Available: available}
}
