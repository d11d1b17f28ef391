package repo_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repo"
	"storefront/internal/testutil"
)

func TestOrderRepo_CreateAndFind(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	orders := repo.NewOrderRepo(db)

	userID := testutil.CreateUser(t, db, false)
	variantID := testutil.CreateVariant(t, db, "10.00", 5)
	ref := domain.NewTransactionToken(1, testutil.Day(2024, 1, 15))

	order := &domain.Order{
		UserID:               userID,
		Status:               domain.OrderPending,
		PaymentStatus:        domain.PaymentUnpaid,
		TotalPrice:           decimal.Zero,
		TransactionReference: &ref,
		ShippingAddress:      &domain.ShippingAddress{Address: "1 Main St", City: "Dhaka", Country: "BD"},
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, orders.CreateOrder(ctx, tx, order))
	require.NotZero(t, order.ID)

	items := []domain.OrderItem{{VariantID: variantID, Quantity: 2, Price: decimal.RequireFromString("10.00")}}
	require.NoError(t, orders.CreateItems(ctx, tx, order.ID, items))
	assert.NotZero(t, items[0].ID)

	order.Items = items
	order.TotalPrice = order.ItemsTotal()
	order.PaymentStatus = domain.PaymentPaid
	require.NoError(t, orders.FinalizeOrder(ctx, tx, order))
	require.NoError(t, tx.Commit())

	got, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, domain.OrderPending, got.Status)
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "Dhaka", got.ShippingAddress.City)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	byRef, err := orders.FindByTransactionReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byRef.ID)

	_, err = orders.FindByTransactionReference(ctx, "transectionId99920240115")
	assert.ErrorIs(t, err, repo.ErrOrderNotFound)
}

func TestOrderRepo_ListUpdateDelete(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	orders := repo.NewOrderRepo(db)

	alice := testutil.CreateUser(t, db, false)
	bob := testutil.CreateUser(t, db, false)

	create := func(userID int64) *domain.Order {
		o := &domain.Order{UserID: userID, Status: domain.OrderPending, PaymentStatus: domain.PaymentUnpaid}
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, orders.CreateOrder(ctx, tx, o))
		require.NoError(t, tx.Commit())
		return o
	}
	first := create(alice)
	second := create(alice)
	create(bob)

	all, err := orders.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := orders.List(ctx, &alice)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)
	assert.Nil(t, own[0].ShippingAddress)

	first.Status = domain.OrderShipped
	require.NoError(t, orders.UpdateOrderStatus(ctx, nil, first))
	got, err := orders.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, got.Status)

	require.NoError(t, orders.Delete(ctx, first.ID))
	assert.ErrorIs(t, orders.Delete(ctx, first.ID), repo.ErrOrderNotFound)
	assert.ErrorIs(t, orders.UpdateOrderStatus(ctx, nil, first), repo.ErrOrderNotFound)
}
