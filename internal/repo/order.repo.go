package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

type OrderRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByTransactionReference(ctx context.Context, ref string) (*domain.Order, error)
	// List returns orders newest first; a nil userID lists every order.
	List(ctx context.Context, userID *int64) ([]domain.Order, error)

	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateItems(ctx context.Context, tx *sql.Tx, orderID int64, items []domain.OrderItem) error
	FinalizeOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	Delete(ctx context.Context, id int64) error
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, status, payment_status, total_price, transaction_reference,
	shipping_address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order   domain.Order
		address []byte
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.TotalPrice,
		&order.TransactionReference,
		&address,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(address) > 0 {
		order.ShippingAddress = &domain.ShippingAddress{}
		if err := json.Unmarshal(address, order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address of order %d: %w", order.ID, err)
		}
	}
	order.Items = []domain.OrderItem{}
	return &order, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepo) FindByTransactionReference(ctx context.Context, ref string) (*domain.Order, error) {
	return r.findOne(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_reference = $1 ORDER BY id DESC LIMIT 1`, ref)
}

func (r *orderRepo) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) List(ctx context.Context, userID *int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *orderRepo) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, variant_id, quantity, price FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	var address any
	if order.ShippingAddress != nil {
		data, err := json.Marshal(order.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
		address = data
	}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, payment_status, total_price, transaction_reference, shipping_address)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		order.UserID, string(order.Status), string(order.PaymentStatus), order.TotalPrice, order.TransactionReference, address,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) CreateItems(ctx context.Context, tx *sql.Tx, orderID int64, items []domain.OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, variant_id, quantity, price) VALUES ($1, $2, $3, $4) RETURNING id`,
			orderID, items[i].VariantID, items[i].Quantity, items[i].Price,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert item %d of order %d: %w", i, orderID, err)
		}
	}
	return nil
}

func (r *orderRepo) FinalizeOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE orders SET total_price = $2, payment_status = $3, updated_at = now()
		 WHERE id = $1 RETURNING updated_at`,
		order.ID, order.TotalPrice, string(order.PaymentStatus),
	).Scan(&order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("finalize order %d: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		 WHERE id = $1 RETURNING updated_at`,
		order.ID, string(order.Status), string(order.PaymentStatus),
	).Scan(&order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
