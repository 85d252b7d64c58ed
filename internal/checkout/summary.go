package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cache"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type QuoteAPI interface {
	CalculateShipping(ctx context.Context, postalCode string) ([]domain.ShippingQuote, error)
	ValidateCoupon(ctx context.Context, code string, orderTotal decimal.Decimal) (domain.CouponApplication, error)
}

// SubtotalSource reports the current cart subtotal.
type SubtotalSource interface {
	Subtotal() decimal.Decimal
}

// View is the summary as rendered for the shopper. Total is nil while the
// shipping choice is ambiguous.
type View struct {
	Subtotal       decimal.Decimal           `json:"subtotal"`
	PostalCode     string                    `json:"postal_code"`
	ShippingState  ShippingState             `json:"shipping_state"`
	Options        []domain.ShippingQuote    `json:"options"`
	SelectedKey    string                    `json:"selected_key,omitempty"`
	ShippingPrice  decimal.Decimal           `json:"shipping_price"`
	ShippingError  string                    `json:"shipping_error,omitempty"`
	CouponState    CouponState               `json:"coupon_state"`
	Coupon         *domain.CouponApplication `json:"coupon,omitempty"`
	CouponError    string                    `json:"coupon_error,omitempty"`
	Total          *decimal.Decimal          `json:"total"`
	CanPlaceOrder  bool                      `json:"can_place_order"`
	Calculating    bool                      `json:"calculating"`
	ApplyingCoupon bool                      `json:"applying_coupon"`
}

// Summary combines the cart subtotal with the shopper's shipping and coupon
// choices. Choices are mirrored into the session cache on every change.
type Summary struct {
	api       QuoteAPI
	cart      SubtotalSource
	cache     cache.SessionCache
	sessionID string
	log       *zap.Logger

	calculating atomic.Bool
	applying    atomic.Bool

	mu             sync.RWMutex
	postalCode     string
	quotes         []domain.ShippingQuote
	selected       string
	shippingErr    string
	quoteRequested bool
	coupon         *domain.CouponApplication
	couponErr      string
}

func NewSummary(api QuoteAPI, cart SubtotalSource, c cache.SessionCache, sessionID string, log *zap.Logger) *Summary {
	return &Summary{
		api:       api,
		cart:      cart,
		cache:     c,
		sessionID: sessionID,
		log:       log,
	}
}

// Load rehydrates the shipping and coupon choices from the session cache.
func (s *Summary) Load(ctx context.Context) {
	var (
		postalCode string
		quotes     []domain.ShippingQuote
		selected   string
		coupon     domain.CouponApplication
		hasCoupon  bool
	)
	s.restore(ctx, cache.KeyPostalCode, &postalCode)
	s.restore(ctx, cache.KeyShippingOptions, &quotes)
	s.restore(ctx, cache.KeyShippingSelected, &selected)
	hasCoupon = s.restore(ctx, cache.KeyCoupon, &coupon)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.postalCode = postalCode
	s.quotes = quotes
	s.selected = ""
	if selected != "" && findQuote(quotes, selected) != nil {
		s.selected = selected
	}
	s.quoteRequested = len(quotes) > 0
	s.shippingErr = ""
	s.coupon = nil
	if hasCoupon {
		s.coupon = &coupon
	}
	s.couponErr = ""
}

// SetPostalCode stores the code as typed, formatted 00000-000. A different
// code invalidates the quotes fetched for the previous one.
func (s *Summary) SetPostalCode(ctx context.Context, code string) string {
	formatted := domain.FormatPostalCode(code)

	s.mu.Lock()
	changed := domain.DigitsOnly(s.postalCode) != domain.DigitsOnly(formatted)
	s.postalCode = formatted
	s.shippingErr = ""
	if changed {
		s.quotes = nil
		s.selected = ""
		s.quoteRequested = false
	}
	s.mu.Unlock()

	s.persist(ctx, cache.KeyPostalCode, formatted)
	if changed {
		s.forget(ctx, cache.KeyShippingOptions, cache.KeyShippingSelected)
	}
	return formatted
}

// Calculate requests quotes for code, or for the stored postal code when code
// is empty.
func (s *Summary) Calculate(ctx context.Context, code string) error {
	if !s.calculating.CompareAndSwap(false, true) {
		return inFlight()
	}
	defer s.calculating.Store(false)

	if code != "" {
		s.SetPostalCode(ctx, code)
	}

	s.mu.RLock()
	digits := domain.DigitsOnly(s.postalCode)
	s.mu.RUnlock()

	if len(digits) != 8 {
		s.setShippingError(msgInvalidPostalCode)
		return newError(ErrInvalidPostalCode, msgInvalidPostalCode)
	}

	s.mu.Lock()
	s.quoteRequested = true
	s.shippingErr = ""
	s.mu.Unlock()

	quotes, err := s.api.CalculateShipping(ctx, digits)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("calculate shipping failed",
			zap.String("postal_code", digits),
			zap.Error(err),
		)
		msg := msgQuoteFailed
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		s.dropQuotes(ctx, msg)
		return newError(ErrQuoteFailed, msg)
	}

	if len(quotes) == 0 {
		s.dropQuotes(ctx, msgNoShippingOptions)
		return newError(ErrNoShippingOptions, msgNoShippingOptions)
	}

	s.mu.Lock()
	s.quotes = quotes
	s.selected = ""
	s.mu.Unlock()

	s.persist(ctx, cache.KeyShippingOptions, quotes)
	s.forget(ctx, cache.KeyShippingSelected)
	return nil
}

// AutoQuote runs Calculate for a selected address when nothing has been
// quoted yet.
func (s *Summary) AutoQuote(ctx context.Context, address domain.Address) error {
	s.mu.RLock()
	requested := s.quoteRequested || len(s.quotes) > 0
	s.mu.RUnlock()

	if requested || address.PostalCode == "" {
		return nil
	}
	return s.Calculate(ctx, address.PostalCode)
}

func (s *Summary) Select(ctx context.Context, key string) error {
	s.mu.Lock()
	if findQuote(s.quotes, key) == nil {
		s.mu.Unlock()
		return newError(ErrUnknownOption, msgUnknownOption)
	}
	s.selected = key
	s.shippingErr = ""
	s.mu.Unlock()

	s.persist(ctx, cache.KeyShippingSelected, key)
	return nil
}

// ResetShipping forgets the postal code, quotes and selection.
func (s *Summary) ResetShipping(ctx context.Context) {
	s.mu.Lock()
	s.postalCode = ""
	s.quotes = nil
	s.selected = ""
	s.shippingErr = ""
	s.quoteRequested = false
	s.mu.Unlock()

	s.forget(ctx, cache.KeyPostalCode, cache.KeyShippingOptions, cache.KeyShippingSelected)
}

// ApplyCoupon validates code against the current subtotal. A rejected coupon
// leaves no coupon applied.
func (s *Summary) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		s.mu.Lock()
		s.couponErr = msgEmptyCoupon
		s.mu.Unlock()
		return newError(ErrEmptyCoupon, msgEmptyCoupon)
	}

	if !s.applying.CompareAndSwap(false, true) {
		return inFlight()
	}
	defer s.applying.Store(false)

	coupon, err := s.api.ValidateCoupon(ctx, code, s.cart.Subtotal())
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("coupon rejected",
			zap.String("code", code),
			zap.Error(err),
		)
		msg := msgCouponRejected
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			switch {
			case apiErr.Message != "":
				msg = apiErr.Message
			case apiErr.Detail != "":
				msg = apiErr.Detail
			}
		}

		s.mu.Lock()
		s.coupon = nil
		s.couponErr = msg
		s.mu.Unlock()
		s.forget(ctx, cache.KeyCoupon)
		return newError(ErrCouponRejected, msg)
	}

	s.mu.Lock()
	s.coupon = &coupon
	s.couponErr = ""
	s.mu.Unlock()

	s.persist(ctx, cache.KeyCoupon, coupon)
	return nil
}

func (s *Summary) RemoveCoupon(ctx context.Context) {
	s.mu.Lock()
	s.coupon = nil
	s.couponErr = ""
	s.mu.Unlock()

	s.forget(ctx, cache.KeyCoupon)
}

// Clear drops every choice, in memory and in the cache. Called once an order
// has been placed.
func (s *Summary) Clear(ctx context.Context) {
	s.mu.Lock()
	s.postalCode = ""
	s.quotes = nil
	s.selected = ""
	s.shippingErr = ""
	s.quoteRequested = false
	s.coupon = nil
	s.couponErr = ""
	s.mu.Unlock()

	s.forget(ctx, cache.KeyPostalCode, cache.KeyShippingOptions, cache.KeyShippingSelected, cache.KeyCoupon)
}

// Total is subtotal plus the selected shipping price minus the coupon amount.
func (s *Summary) Total(subtotal decimal.Decimal) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked(subtotal)
}

// CanPlaceOrder is false while quotes are shown but none is chosen.
func (s *Summary) CanPlaceOrder() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes) == 0 || s.selected != ""
}

// SelectedShipping returns the chosen quote, or nil.
func (s *Summary) SelectedShipping() *domain.ShippingQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q := findQuote(s.quotes, s.selected); q != nil {
		cp := *q
		return &cp
	}
	return nil
}

func (s *Summary) ShippingState() ShippingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingStateLocked()
}

func (s *Summary) CouponState() CouponState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coupon != nil {
		return CouponApplied
	}
	return NoCoupon
}

func (s *Summary) View() View {
	subtotal := s.cart.Subtotal()

	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Subtotal:       subtotal,
		PostalCode:     s.postalCode,
		ShippingState:  s.shippingStateLocked(),
		Options:        append([]domain.ShippingQuote(nil), s.quotes...),
		SelectedKey:    s.selected,
		ShippingPrice:  decimal.Zero,
		ShippingError:  s.shippingErr,
		CouponState:    NoCoupon,
		CouponError:    s.couponErr,
		CanPlaceOrder:  len(s.quotes) == 0 || s.selected != "",
		Calculating:    s.calculating.Load(),
		ApplyingCoupon: s.applying.Load(),
	}
	if q := findQuote(s.quotes, s.selected); q != nil {
		v.ShippingPrice = q.Price
	}
	if s.coupon != nil {
		cp := *s.coupon
		v.Coupon = &cp
		v.CouponState = CouponApplied
	}
	if v.CanPlaceOrder {
		total := s.totalLocked(subtotal)
		v.Total = &total
	}
	return v
}

func (s *Summary) totalLocked(subtotal decimal.Decimal) decimal.Decimal {
	total := subtotal
	if q := findQuote(s.quotes, s.selected); q != nil {
		total = total.Add(q.Price)
	}
	if s.coupon != nil {
		total = total.Sub(s.coupon.Amount)
	}
	return total
}

func (s *Summary) shippingStateLocked() ShippingState {
	switch {
	case s.shippingErr != "":
		return QuoteError
	case len(s.quotes) == 0:
		return NoQuote
	case s.selected != "":
		return QuoteSelected
	default:
		return QuoteReady
	}
}

func (s *Summary) setShippingError(msg string) {
	s.mu.Lock()
	s.shippingErr = msg
	s.mu.Unlock()
}

func (s *Summary) dropQuotes(ctx context.Context, msg string) {
	s.mu.Lock()
	s.quotes = nil
	s.selected = ""
	s.shippingErr = msg
	s.mu.Unlock()

	s.forget(ctx, cache.KeyShippingOptions, cache.KeyShippingSelected)
}

func (s *Summary) restore(ctx context.Context, key string, dst any) bool {
	err := s.cache.Get(ctx, s.sessionID, key, dst)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.WithContext(ctx, s.log).Warn("checkout cache read failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return false
}

func (s *Summary) persist(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, s.sessionID, key, value); err != nil {
		logger.WithContext(ctx, s.log).Warn("checkout cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (s *Summary) forget(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, s.sessionID, keys...); err != nil {
		logger.WithContext(ctx, s.log).Warn("checkout cache delete failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

func findQuote(quotes []domain.ShippingQuote, key string) *domain.ShippingQuote {
	if key == "" {
		return nil
	}
	for i := range quotes {
		if quotes[i].Key() == key {
			return &quotes[i]
		}
	}
	return nil
}
