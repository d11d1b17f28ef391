package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/metrics"
	"storefront/internal/repo"
)

type CheckoutInput struct {
	UserID  int64
	Address *domain.ShippingAddress
	// TransactionReference is set when the payment was already confirmed.
	TransactionReference *string
}

type CheckoutService interface {
	// Checkout turns the user's cart into an order in one transaction:
	// either the order, its lines, the stock decrements and the emptied
	// cart all persist, or none of them do.
	Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error)
}

// OrderNotifier is fed after a checkout commits.
type OrderNotifier interface {
	OrderPlaced(c notify.OrderConfirmation)
}

type checkoutService struct {
	db          *sql.DB
	cartRepo    repo.CartRepo
	variantRepo repo.VariantRepo
	orderRepo   repo.OrderRepo
	userRepo    repo.UserRepo
	notifier    OrderNotifier
	metrics     *metrics.Metrics
}

func NewCheckoutService(
	db *sql.DB,
	cartRepo repo.CartRepo,
	variantRepo repo.VariantRepo,
	orderRepo repo.OrderRepo,
	userRepo repo.UserRepo,
	notifier OrderNotifier,
	m *metrics.Metrics,
) CheckoutService {
	return &checkoutService{
		db:          db,
		cartRepo:    cartRepo,
		variantRepo: variantRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		metrics:     m,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	user, err := s.userRepo.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = database.RunInTx(ctx, s.db, func(tx *database.Tx) error {
		order = nil

		// locks the cart, then every variant row in id order
		cart, err := s.cartRepo.LockForCheckout(ctx, tx.Tx, in.UserID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}
		for _, item := range cart.Items {
			if item.Quantity > item.Variant.Stock {
				return &repo.InsufficientStockError{
					VariantID: item.VariantID,
					Requested: item.Quantity,
					Available: item.Variant.Stock,
				}
			}
		}

		o := &domain.Order{
			UserID:               in.UserID,
			Status:               domain.OrderPending,
			PaymentStatus:        domain.PaymentUnpaid,
			TotalPrice:           decimal.Zero,
			TransactionReference: in.TransactionReference,
			ShippingAddress:      in.Address,
		}
		if err := s.orderRepo.CreateOrder(ctx, tx.Tx, o); err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			items = append(items, domain.OrderItem{
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Price:     item.Variant.Price,
			})
			if err := s.variantRepo.Reserve(ctx, tx.Tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.orderRepo.CreateItems(ctx, tx.Tx, o.ID, items); err != nil {
			return err
		}

		o.Items = items
		o.TotalPrice = o.ItemsTotal()
		if err := s.orderRepo.FinalizeOrder(ctx, tx.Tx, o); err != nil {
			return err
		}
		if err := s.cartRepo.ClearItems(ctx, tx.Tx, cart.ID); err != nil {
			return err
		}

		confirmation := notify.OrderConfirmation{
			OrderID:   o.ID,
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.FullName(),
			Total:     o.TotalPrice,
			ItemCount: len(items),
			PlacedAt:  o.CreatedAt,
		}
		if o.TransactionReference != nil {
			confirmation.TransactionReference = *o.TransactionReference
		}
		tx.OnCommit(func() {
			s.notifier.OrderPlaced(confirmation)
		})

		order = o
		return nil
	})

	s.metrics.Checkouts.WithLabelValues(checkoutOutcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("checkout for user %d: %w", in.UserID, err)
	}

	log.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
	}).Infof("order placed, total %s", order.TotalPrice.StringFixed(2))
	return order, nil
}

func checkoutOutcome(err error) string {
	var stockErr *repo.InsufficientStockError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrCartNotFound):
		return "empty_cart"
	default:
		return "error"
	}
}
