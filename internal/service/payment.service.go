package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/payment"
	"storefront/internal/metrics"
	"storefront/internal/repo"
)

// fallbackPhone is sent when the customer has no phone on file; the gateway
// refuses sessions without one.
const fallbackPhone = "01234567891"

type InitiateInput struct {
	User      *domain.User
	CartID    int64
	Amount    decimal.Decimal
	ItemCount int
	Address   domain.ShippingAddress
}

type PaymentService interface {
	// Initiate records the checkout context and returns the hosted payment page.
	Initiate(ctx context.Context, in InitiateInput) (string, error)
	// HandleSuccess completes the checkout for a confirmed payment.
	HandleSuccess(ctx context.Context, token string) (*domain.Order, error)
	HandleCancel(ctx context.Context, token string)
	HandleFail(ctx context.Context, token string)
}

type PaymentConfig struct {
	BackendURL string
	Currency   string
}

type paymentService struct {
	cfg         PaymentConfig
	cartRepo    repo.CartRepo
	userRepo    repo.UserRepo
	orderRepo   repo.OrderRepo
	pendingRepo repo.PendingPaymentRepo
	checkout    CheckoutService
	gateway     payment.PaymentGateway
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewPaymentService(
	cfg PaymentConfig,
	cartRepo repo.CartRepo,
	userRepo repo.UserRepo,
	orderRepo repo.OrderRepo,
	pendingRepo repo.PendingPaymentRepo,
	checkout CheckoutService,
	gateway payment.PaymentGateway,
	m *metrics.Metrics,
) PaymentService {
	return &paymentService{
		cfg:         cfg,
		cartRepo:    cartRepo,
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		pendingRepo: pendingRepo,
		checkout:    checkout,
		gateway:     gateway,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *paymentService) Initiate(ctx context.Context, in InitiateInput) (string, error) {
	if !in.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	cart, err := s.cartRepo.FindByID(ctx, in.CartID)
	if err != nil {
		return "", err
	}
	if cart.UserID != in.User.ID {
		return "", ErrForbidden
	}
	owned, err := s.cartRepo.FindByUserID(ctx, in.User.ID)
	if err != nil {
		return "", err
	}
	if len(owned.Items) == 0 {
		return "", ErrEmptyCart
	}
	if total := owned.Total(); !in.Amount.Equal(total) {
		log.WithFields(log.Fields{
			"user_id": in.User.ID,
			"cart_id": cart.ID,
			"amount":  in.Amount.String(),
			"total":   total.String(),
		}).Warn("payment amount does not match cart total")
		return "", ErrInvalidAmount
	}

	token := domain.NewTransactionToken(cart.ID, s.now())
	pending := &domain.PendingPayment{
		Token:   token,
		UserID:  in.User.ID,
		CartID:  cart.ID,
		Address: in.Address,
	}
	if err := s.pendingRepo.Save(ctx, pending); err != nil {
		return "", err
	}

	phone := fallbackPhone
	if in.User.Phone != nil && *in.User.Phone != "" {
		phone = *in.User.Phone
	}
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		TransactionID: token,
		Amount:        in.Amount,
		Currency:      s.cfg.Currency,
		ItemCount:     in.ItemCount,
		Customer: payment.Customer{
			Name:       in.User.FullName(),
			Email:      in.User.Email,
			Phone:      phone,
			Address:    in.Address.Address,
			City:       in.Address.City,
			PostalCode: in.Address.PostalCode,
			Country:    in.Address.Country,
		},
		SuccessURL: s.cfg.BackendURL + "/payment/api/success",
		FailURL:    s.cfg.BackendURL + "/payment/api/fail",
		CancelURL:  s.cfg.BackendURL + "/payment/api/cancel",
	})
	if err != nil {
		s.discard(ctx, token)
		if errors.Is(err, payment.ErrUnreachable) {
			s.metrics.GatewayCalls.WithLabelValues("unreachable").Inc()
			return "", fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
		}
		s.metrics.GatewayCalls.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	s.metrics.GatewayCalls.WithLabelValues("success").Inc()

	log.WithFields(log.Fields{
		"user_id": in.User.ID,
		"cart_id": cart.ID,
		"tran_id": token,
	}).Info("payment session opened")
	return session.URL, nil
}

func (s *paymentService) HandleSuccess(ctx context.Context, token string) (*domain.Order, error) {
	cartID, _, err := domain.ParseTransactionToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	owner, err := s.userRepo.FindByID(ctx, cart.UserID)
	if err != nil {
		return nil, err
	}

	// the gateway may deliver the same callback more than once
	if existing, ok := s.placedOrder(ctx, token, owner.ID); ok {
		return existing, nil
	}

	pending, err := s.pendingRepo.Find(ctx, token)
	if errors.Is(err, repo.ErrPendingNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	order, err := s.checkout.Checkout(ctx, CheckoutInput{
		UserID:               owner.ID,
		Address:              &pending.Address,
		TransactionReference: &token,
	})
	if err != nil {
		if existing, ok := s.placedOrder(ctx, token, owner.ID); ok {
			return existing, nil
		}
		// the context stays stored so a retried callback can try again
		recErr := &ReconciliationError{TransactionReference: token, CartID: cart.ID, UserID: owner.ID, Err: err}
		s.metrics.Reconciliations.Inc()
		log.WithFields(log.Fields{
			"tran_id": token,
			"cart_id": cart.ID,
			"user_id": owner.ID,
			"address": pending.Address.String(),
		}).Error(recErr.Error())
		return nil, recErr
	}
	s.discard(ctx, token)
	return order, nil
}

// placedOrder finds the order an earlier callback created for the token.
func (s *paymentService) placedOrder(ctx context.Context, token string, ownerID int64) (*domain.Order, bool) {
	existing, err := s.orderRepo.FindByTransactionReference(ctx, token)
	if err != nil || existing.UserID != ownerID {
		return nil, false
	}
	return existing, true
}

func (s *paymentService) HandleCancel(ctx context.Context, token string) {
	s.discard(ctx, token)
}

func (s *paymentService) HandleFail(ctx context.Context, token string) {
	s.discard(ctx, token)
}

func (s *paymentService) discard(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.pendingRepo.Discard(ctx, token); err != nil {
		log.WithField("tran_id", token).Warnf("discard pending payment: %v", err)
	}
}
