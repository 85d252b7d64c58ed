package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be canceled")
	ErrUnavailable    = errors.New("orders unavailable")
)

type API interface {
	Orders(ctx context.Context) ([]domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (domain.OrderStatus, error)
}

// History is the shopper's order list plus a count per status.
type History struct {
	Orders []domain.Order             `json:"orders"`
	Counts map[domain.OrderStatus]int `json:"counts"`
	Total  int                        `json:"total"`
}

type Service struct {
	api API
	log *zap.Logger
}

func NewService(api API, log *zap.Logger) *Service {
	return &Service{api: api, log: log}
}

// List returns the order history, narrowed to status when it is set.
func (s *Service) List(ctx context.Context, status domain.OrderStatus) (History, error) {
	all, err := s.api.Orders(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("list orders failed", zap.Error(err))
		return History{}, errors.Join(ErrUnavailable, err)
	}

	h := History{
		Orders: make([]domain.Order, 0, len(all)),
		Counts: make(map[domain.OrderStatus]int),
		Total:  len(all),
	}
	for _, o := range all {
		h.Counts[o.Status]++
		if status == "" || o.Status == status {
			h.Orders = append(h.Orders, o)
		}
	}
	return h, nil
}

// Cancel refuses locally for orders that are neither pending nor paid.
func (s *Service) Cancel(ctx context.Context, orderID int64) (domain.OrderStatus, error) {
	all, err := s.api.Orders(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("list orders failed", zap.Error(err))
		return "", errors.Join(ErrUnavailable, err)
	}

	var current *domain.Order
	for i := range all {
		if all[i].ID == orderID {
			current = &all[i]
			break
		}
	}
	if current == nil {
		return "", ErrNotFound
	}
	if !current.Status.CanCancel() {
		return current.Status, fmt.Errorf("%w: status %s", ErrNotCancellable, current.Status)
	}

	status, err := s.api.CancelOrder(ctx, orderID)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("cancel order failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return current.Status, errors.Join(ErrUnavailable, err)
	}

	logger.WithContext(ctx, s.log).Info("order canceled", zap.Int64("order_id", orderID))
	return status, nil
}
