package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

// OrderUpdate carries the fields staff may change; nil leaves a field as is.
type OrderUpdate struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
}

type OrderService interface {
	List(ctx context.Context, user *domain.User) ([]domain.Order, error)
	Get(ctx context.Context, user *domain.User, id int64) (*domain.Order, error)
	Update(ctx context.Context, user *domain.User, id int64, upd OrderUpdate) (*domain.Order, error)
	Delete(ctx context.Context, user *domain.User, id int64) error
}

type orderService struct {
	orderRepo repo.OrderRepo
}

func NewOrderService(orderRepo repo.OrderRepo) OrderService {
	return &orderService{orderRepo: orderRepo}
}

func (s *orderService) List(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	if user.IsStaff {
		return s.orderRepo.List(ctx, nil)
	}
	return s.orderRepo.List(ctx, &user.ID)
}

// Get hides other users' orders behind not found.
func (s *orderService) Get(ctx context.Context, user *domain.User, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsStaff && order.UserID != user.ID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Update accepts any known status value; moves are not restricted to a
// workflow.
func (s *orderService) Update(ctx context.Context, user *domain.User, id int64, upd OrderUpdate) (*domain.Order, error) {
	if !user.IsStaff {
		return nil, ErrForbidden
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil {
		if order.Status.IsTerminal() && *upd.Status != order.Status {
			log.WithField("order_id", order.ID).Warnf("order leaves terminal status %s for %s", order.Status, *upd.Status)
		}
		order.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		order.PaymentStatus = *upd.PaymentStatus
	}
	if err := s.orderRepo.UpdateOrderStatus(ctx, nil, order); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  user.ID,
	}).Infof("order updated: status=%s payment_status=%s", order.Status, order.PaymentStatus)
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, user *domain.User, id int64) error {
	if !user.IsStaff {
		return ErrForbidden
	}
	return s.orderRepo.Delete(ctx, id)
}
