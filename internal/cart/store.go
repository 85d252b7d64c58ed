package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

const sfgKey = "cart"

// API is the slice of the upstream client the cart store talks to.
type API interface {
	Cart(ctx context.Context) (domain.Cart, error)
	AddCartItem(ctx context.Context, productID int64, quantity int, essenceID *int64, customizations []domain.CustomizationChoice) error
	UpdateCartItem(ctx context.Context, lineID int64, quantity int) error
	DeleteCartItem(ctx context.Context, lineID int64) error
}

type Authenticator interface {
	IsAuthenticated() bool
}

type AddRequest struct {
	ProductID      int64                        `json:"product_id"`
	Quantity       int                          `json:"quantity"`
	EssenceID      *int64                       `json:"essence_id"`
	Customizations []domain.CustomizationChoice `json:"customizations"`
}

// Snapshot is a consistent read of the store.
type Snapshot struct {
	Items     []domain.CartLineItem `json:"items"`
	Subtotal  decimal.Decimal       `json:"subtotal"`
	ItemCount int                   `json:"item_count"`
	Loading   bool                  `json:"loading"`
	Message   string                `json:"message,omitempty"`
}

// Store holds the shopper's cart as last reported by the server. Every
// mutation is followed by a full fetch.
type Store struct {
	api  API
	auth Authenticator
	log  *zap.Logger
	sfg  singleflight.Group

	pending atomic.Int32
	// gen advances on every mutation; a fetch that started under an older
	// gen does not store its result.
	gen atomic.Uint64

	mu      sync.RWMutex
	cart    domain.Cart
	message string
}

func NewStore(api API, auth Authenticator, log *zap.Logger) *Store {
	return &Store{
		api:  api,
		auth: auth,
		log:  log,
	}
}

// Fetch replaces the cart with the server's. Any failure leaves an empty cart.
func (s *Store) Fetch(ctx context.Context) {
	if !s.auth.IsAuthenticated() {
		s.Reset()
		return
	}

	s.begin()
	defer s.end()

	// Concurrent fetches share one upstream call.
	_, _, _ = s.sfg.Do(sfgKey, func() (interface{}, error) {
		started := s.gen.Load()
		c, err := s.api.Cart(ctx)
		if err != nil {
			logger.WithContext(ctx, s.log).Error("fetch cart failed", zap.Error(err))
			c = domain.Cart{}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen.Load() != started {
			logger.WithContext(ctx, s.log).Debug("discarding cart fetched before a mutation")
			return nil, nil
		}
		s.cart = c
		return nil, nil
	})
}

// refetch loads the cart after a mutation without joining a fetch that
// began before it.
func (s *Store) refetch(ctx context.Context) {
	s.gen.Add(1)
	s.sfg.Forget(sfgKey)
	s.Fetch(ctx)
}

func (s *Store) Add(ctx context.Context, req AddRequest) error {
	if !s.auth.IsAuthenticated() {
		return s.fail(&Notice{Message: msgLoginRequired, kind: ErrAuthRequired})
	}
	if req.ProductID <= 0 || req.Quantity < 1 {
		return s.fail(&Notice{Message: msgAddFailed, kind: ErrInvalidProduct})
	}

	s.begin()
	defer s.end()

	err := s.api.AddCartItem(ctx, req.ProductID, req.Quantity, req.EssenceID, req.Customizations)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("add cart item failed",
			zap.Int64("product_id", req.ProductID),
			zap.Error(err),
		)
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.Reset()
			return s.fail(&Notice{Message: msgLoginRequired, kind: ErrAuthRequired})
		}
		msg := msgAddFailed
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			if m := apiErr.FieldMessage("customizations"); m != "" {
				msg = m
			}
		}
		return s.fail(&Notice{Message: msg, kind: ErrAddFailed})
	}

	s.clearMessage()
	s.refetch(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity. Anything below one removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		return s.Remove(ctx, lineID)
	}

	s.begin()
	defer s.end()

	if err := s.api.UpdateCartItem(ctx, lineID, quantity); err != nil {
		logger.WithContext(ctx, s.log).Error("update cart item failed",
			zap.Int64("line_id", lineID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.Reset()
			return s.fail(&Notice{Message: msgLoginRequired, kind: ErrAuthRequired})
		}
		return s.fail(&Notice{Message: msgUpdateFailed, kind: ErrUpdateFailed})
	}

	s.clearMessage()
	s.refetch(ctx)
	return nil
}

func (s *Store) Remove(ctx context.Context, lineID int64) error {
	s.begin()
	defer s.end()

	if err := s.api.DeleteCartItem(ctx, lineID); err != nil {
		logger.WithContext(ctx, s.log).Error("remove cart item failed",
			zap.Int64("line_id", lineID),
			zap.Error(err),
		)
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.Reset()
			return s.fail(&Notice{Message: msgLoginRequired, kind: ErrAuthRequired})
		}
		return s.fail(&Notice{Message: msgRemoveFailed, kind: ErrRemoveFailed})
	}

	s.mu.Lock()
	kept := make([]domain.CartLineItem, 0, len(s.cart.Items))
	for _, item := range s.cart.Items {
		if item.ID != lineID {
			kept = append(kept, item)
		}
	}
	s.cart.Items = kept
	// the server total no longer matches the local lines
	s.cart.Total = nil
	s.message = ""
	s.mu.Unlock()

	s.refetch(ctx)
	return nil
}

// Reset empties the store without calling the server.
func (s *Store) Reset() {
	s.gen.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.Cart{}
	s.message = ""
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.ItemCount()
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Subtotal()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CartLineItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	return Snapshot{
		Items:     items,
		Subtotal:  s.cart.Subtotal(),
		ItemCount: s.cart.ItemCount(),
		Loading:   s.pending.Load() > 0,
		Message:   s.message,
	}
}

func (s *Store) begin() { s.pending.Add(1) }
func (s *Store) end()   { s.pending.Add(-1) }

func (s *Store) fail(n *Notice) error {
	s.mu.Lock()
	s.message = n.Message
	s.mu.Unlock()
	return n
}

func (s *Store) clearMessage() {
	s.mu.Lock()
	s.message = ""
	s.mu.Unlock()
}
