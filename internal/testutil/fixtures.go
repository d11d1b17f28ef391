package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

func CreateUser(t *testing.T, db *sql.DB, staff bool) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO users (email, first_name, last_name, is_staff) VALUES ($1, 'Test', 'User', $2) RETURNING id`,
		fmt.Sprintf("user%d@example.com", seq.Add(1)), staff,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func CreateVariant(t *testing.T, db *sql.DB, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO product_variants (product_id, sku, price, stock) VALUES (1, $1, $2, $3) RETURNING id`,
		fmt.Sprintf("SKU-%d", seq.Add(1)), decimal.RequireFromString(price), stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// AddToCart puts qty of variant into the user's cart, creating the cart if needed.
func AddToCart(t *testing.T, db *sql.DB, userID, variantID int64, qty int) int64 {
	t.Helper()
	var cartID int64
	err := db.QueryRow(
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`, userID,
	).Scan(&cartID)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO cart_items (cart_id, variant_id, quantity) VALUES ($1, $2, $3)`, cartID, variantID, qty)
	require.NoError(t, err)
	return cartID
}

func VariantStock(t *testing.T, db *sql.DB, variantID int64) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&stock))
	return stock
}

func SetVariantPrice(t *testing.T, db *sql.DB, variantID int64, price string) {
	t.Helper()
	_, err := db.Exec(`UPDATE product_variants SET price = $2 WHERE id = $1`, variantID, decimal.RequireFromString(price))
	require.NoError(t, err)
}

func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM `+table).Scan(&n))
	return n
}

func CartItemCount(t *testing.T, db *sql.DB, cartID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&n))
	return n
}

func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
