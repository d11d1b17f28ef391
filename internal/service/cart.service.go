package service

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/repo"
)

type CartService interface {
	// Get returns the user's cart, creating an empty one on first use.
	Get(ctx context.Context, user *domain.User) (*domain.Cart, error)
	// AddItem merges into an existing line for the same variant.
	AddItem(ctx context.Context, user *domain.User, variantID int64, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, user *domain.User, itemID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, user *domain.User, itemID int64) error
}

type cartService struct {
	db          *sql.DB
	cartRepo    repo.CartRepo
	variantRepo repo.VariantRepo
}

func NewCartService(db *sql.DB, cartRepo repo.CartRepo, variantRepo repo.VariantRepo) CartService {
	return &cartService{db: db, cartRepo: cartRepo, variantRepo: variantRepo}
}

func (s *cartService) Get(ctx context.Context, user *domain.User) (*domain.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, user.ID)
	if errors.Is(err, repo.ErrCartNotFound) {
		cart, err = s.cartRepo.GetOrCreate(ctx, nil, user.ID)
		if err != nil {
			return nil, err
		}
		cart.Items = []domain.CartItem{}
		return cart, nil
	}
	return cart, err
}

func (s *cartService) AddItem(ctx context.Context, user *domain.User, variantID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item *domain.CartItem
	err := database.RunInTx(ctx, s.db, func(tx *database.Tx) error {
		variant, err := s.variantRepo.FindByID(ctx, tx.Tx, variantID)
		if err != nil {
			return err
		}
		if !variant.IsActive {
			return ErrVariantNotFound
		}
		cart, err := s.cartRepo.GetOrCreate(ctx, tx.Tx, user.ID)
		if err != nil {
			return err
		}

		// concurrent adds of one variant serialize on the line's row
		item = &domain.CartItem{CartID: cart.ID, VariantID: variantID, Quantity: quantity}
		if err := s.cartRepo.AddItem(ctx, tx.Tx, item); err != nil {
			return err
		}
		if item.Quantity > variant.Stock {
			return &repo.InsufficientStockError{VariantID: variantID, Requested: item.Quantity, Available: variant.Stock}
		}
		item.Variant = variant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *cartService) UpdateItem(ctx context.Context, user *domain.User, itemID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item *domain.CartItem
	err := database.RunInTx(ctx, s.db, func(tx *database.Tx) error {
		found, err := s.ownedItem(ctx, tx.Tx, user, itemID)
		if err != nil {
			return err
		}
		if quantity > found.Variant.Stock {
			return &repo.InsufficientStockError{VariantID: found.VariantID, Requested: quantity, Available: found.Variant.Stock}
		}
		if err := s.cartRepo.UpdateItemQuantity(ctx, tx.Tx, found.ID, quantity); err != nil {
			return err
		}
		found.Quantity = quantity
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, user *domain.User, itemID int64) error {
	if _, err := s.ownedItem(ctx, nil, user, itemID); err != nil {
		return err
	}
	return s.cartRepo.DeleteItem(ctx, nil, itemID)
}

// ownedItem loads a line the user may touch: their own, or any for staff.
func (s *cartService) ownedItem(ctx context.Context, tx *sql.Tx, user *domain.User, itemID int64) (*domain.CartItem, error) {
	item, owner, err := s.cartRepo.FindItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if owner != user.ID && !user.IsStaff {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}
