package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"storefront/internal/repo"
	tu "storefront/internal/testutil"
)

func TestCartService_AddMergesAndChecksStock(t *testing.T) {
	db := tu.NewPostgres(t)
	f := newFixture(t, db)
	svc := NewCartService(db, f.carts, f.variants)
	ctx := context.Background()

	user := f.user(t, tu.CreateUser(t, db, false))
	variantID := tu.CreateVariant(t, db, "10.00", 5)

	cart, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	first, err := svc.AddItem(ctx, user, variantID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	merged, err := svc.AddItem(ctx, user, variantID, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)

	_, err = svc.AddItem(ctx, user, variantID, 1)
	var stockErr *repo.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)

	_, err = svc.AddItem(ctx, user, variantID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, user, 999999, 1)
	assert.ErrorIs(t, err, ErrVariantNotFound)

	cart, err = svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_ConcurrentAddsOfNewVariant(t *testing.T) {
	db := tu.NewPostgres(t)
	f := newFixture(t, db)
	svc := NewCartService(db, f.carts, f.variants)
	ctx := context.Background()

	user := f.user(t, tu.CreateUser(t, db, false))
	variantID := tu.CreateVariant(t, db, "10.00", 10)

	const adders = 4
	errs := make([]error, adders)
	var g errgroup.Group
	for i := 0; i < adders; i++ {
		g.Go(func() error {
			_, errs[i] = svc.AddItem(ctx, user, variantID, 2)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, err := range errs {
		assert.NoError(t, err)
	}

	cart, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2*adders, cart.Items[0].Quantity)

	// the merged line still respects stock
	_, err = svc.AddItem(ctx, user, variantID, 3)
	var stockErr *repo.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 11, stockErr.Requested)
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	db := tu.NewPostgres(t)
	f := newFixture(t, db)
	svc := NewCartService(db, f.carts, f.variants)
	ctx := context.Background()

	owner := f.user(t, tu.CreateUser(t, db, false))
	stranger := f.user(t, tu.CreateUser(t, db, false))
	admin := f.user(t, tu.CreateUser(t, db, true))
	variantID := tu.CreateVariant(t, db, "1.00", 4)

	item, err := svc.AddItem(ctx, owner, variantID, 1)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, owner, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = svc.UpdateItem(ctx, owner, item.ID, 5)
	var stockErr *repo.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)

	_, err = svc.UpdateItem(ctx, stranger, item.ID, 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, stranger, item.ID), ErrCartItemNotFound)

	_, err = svc.UpdateItem(ctx, admin, item.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveItem(ctx, admin, item.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, owner, item.ID), ErrCartItemNotFound)
}
