package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

var (
	ErrIncompleteAddress = errors.New("address is incomplete")
	ErrInvalidAddress    = errors.New("invalid address id")
	ErrUnavailable       = errors.New("profile unavailable")
)

type API interface {
	Profile(ctx context.Context) (*domain.User, error)
	Addresses(ctx context.Context) ([]domain.Address, error)
	UpdateAddress(ctx context.Context, id int64, a domain.Address) (domain.Address, error)
}

// View is what the profile page shows: personal data and saved addresses.
type View struct {
	User      *domain.User     `json:"user"`
	Addresses []domain.Address `json:"addresses"`
}

// FieldsError lists the address fields left blank.
type FieldsError struct {
	Fields []string
}

func (e *FieldsError) Error() string {
	return fmt.Sprintf("missing address fields: %v", e.Fields)
}

func (e *FieldsError) Unwrap() error { return ErrIncompleteAddress }

type Service struct {
	api API
	log *zap.Logger
}

func NewService(api API, log *zap.Logger) *Service {
	return &Service{api: api, log: log}
}

// Load fetches the profile and the address book together.
func (s *Service) Load(ctx context.Context) (View, error) {
	var v View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.api.Profile(gctx)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		v.User = u
		return nil
	})
	g.Go(func() error {
		addrs, err := s.api.Addresses(gctx)
		if err != nil {
			return fmt.Errorf("addresses: %w", err)
		}
		v.Addresses = addrs
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.WithContext(ctx, s.log).Error("load profile failed", zap.Error(err))
		return View{}, errors.Join(ErrUnavailable, err)
	}
	if v.Addresses == nil {
		v.Addresses = []domain.Address{}
	}
	return v, nil
}

// UpdateAddress saves an edited address. Incomplete addresses never reach
// the server.
func (s *Service) UpdateAddress(ctx context.Context, id int64, a domain.Address) (domain.Address, error) {
	if id <= 0 {
		return domain.Address{}, ErrInvalidAddress
	}
	if missing := a.Missing(); len(missing) > 0 {
		return domain.Address{}, &FieldsError{Fields: missing}
	}

	updated, err := s.api.UpdateAddress(ctx, id, a)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("update address failed",
			zap.Int64("address_id", id),
			zap.Error(err),
		)
		return domain.Address{}, errors.Join(ErrUnavailable, err)
	}

	logger.WithContext(ctx, s.log).Info("address updated", zap.Int64("address_id", id))
	return updated, nil
}
