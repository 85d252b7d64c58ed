package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cache"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

type mockQuoteAPI struct {
	mu        sync.Mutex
	quotes    []domain.ShippingQuote
	quoteErr  error
	coupon    domain.CouponApplication
	couponErr error
	block     chan struct{}

	quoteCalls  []string
	couponCalls []string
	couponTotal []decimal.Decimal
}

func (m *mockQuoteAPI) CalculateShipping(_ context.Context, postalCode string) ([]domain.ShippingQuote, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls = append(m.quoteCalls, postalCode)
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return append([]domain.ShippingQuote(nil), m.quotes...), nil
}

func (m *mockQuoteAPI) ValidateCoupon(_ context.Context, code string, orderTotal decimal.Decimal) (domain.CouponApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.couponCalls = append(m.couponCalls, code)
	m.couponTotal = append(m.couponTotal, orderTotal)
	if m.couponErr != nil {
		return domain.CouponApplication{}, m.couponErr
	}
	c := m.coupon
	c.Code = code
	return c, nil
}

func (m *mockQuoteAPI) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.quoteCalls)
}

type fixedSubtotal decimal.Decimal

func (f fixedSubtotal) Subtotal() decimal.Decimal { return decimal.Decimal(f) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quote(service, price string, days int) domain.ShippingQuote {
	return domain.ShippingQuote{Service: service, Price: dec(price), LeadTimeDays: days, Kind: domain.ShippingDelivery}
}

func setupTestCache(t *testing.T) cache.SessionCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCache(client, time.Hour)
}

func newTestSummary(t *testing.T, api *mockQuoteAPI, subtotal string) (*Summary, cache.SessionCache) {
	c := setupTestCache(t)
	return NewSummary(api, fixedSubtotal(dec(subtotal)), c, "session-1", zap.NewNop()), c
}

func TestCalculate_ValidatesPostalCodeLocally(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s, _ := newTestSummary(t, api, "100")

	err := s.Calculate(context.Background(), "1234-56")

	require.ErrorIs(t, err, ErrInvalidPostalCode)
	assert.Equal(t, "Por favor, insira um CEP válido", err.Error())
	assert.Equal(t, 0, api.calls())
	assert.Equal(t, QuoteError, s.ShippingState())

	require.NoError(t, s.Calculate(context.Background(), "12345678"))
	assert.Equal(t, []string{"12345678"}, api.quoteCalls)
	assert.Equal(t, QuoteReady, s.ShippingState())
	assert.Equal(t, "12345-678", s.View().PostalCode)
}

func TestCalculate_NoOptions(t *testing.T) {
	api := &mockQuoteAPI{}
	s, _ := newTestSummary(t, api, "100")

	err := s.Calculate(context.Background(), "01310-100")

	require.ErrorIs(t, err, ErrNoShippingOptions)
	assert.Equal(t, QuoteError, s.ShippingState())
	assert.Equal(t, "Nenhuma opção de frete disponível para este CEP", s.View().ShippingError)
}

func TestCalculate_ServerMessage(t *testing.T) {
	api := &mockQuoteAPI{quoteErr: &apiclient.APIError{Status: 400, Message: "CEP fora da área de entrega"}}
	s, _ := newTestSummary(t, api, "100")

	err := s.Calculate(context.Background(), "01310100")

	require.ErrorIs(t, err, ErrQuoteFailed)
	assert.Equal(t, "CEP fora da área de entrega", err.Error())
	assert.Equal(t, QuoteError, s.ShippingState())
}

func TestCalculate_GenericMessage(t *testing.T) {
	api := &mockQuoteAPI{quoteErr: errors.New("dial tcp: refused")}
	s, _ := newTestSummary(t, api, "100")

	err := s.Calculate(context.Background(), "01310100")

	require.ErrorIs(t, err, ErrQuoteFailed)
	assert.Equal(t, "Erro ao calcular frete", err.Error())
}

func TestCalculate_ClearsPreviousSelection(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5), quote("SEDEX", "35.00", 2)}}
	s, _ := newTestSummary(t, api, "100")
	ctx := context.Background()

	require.NoError(t, s.Calculate(ctx, "01310100"))
	require.NoError(t, s.Select(ctx, "PAC-20.00"))
	require.Equal(t, QuoteSelected, s.ShippingState())

	require.NoError(t, s.Calculate(ctx, ""))
	assert.Equal(t, QuoteReady, s.ShippingState())
	assert.Nil(t, s.SelectedShipping())
}

func TestCalculate_InFlight(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}, block: make(chan struct{})}
	s, _ := newTestSummary(t, api, "100")

	done := make(chan error, 1)
	go func() { done <- s.Calculate(context.Background(), "01310100") }()

	require.Eventually(t, func() bool { return s.View().Calculating }, time.Second, 5*time.Millisecond)

	err := s.Calculate(context.Background(), "01310100")
	assert.ErrorIs(t, err, ErrInFlight)

	close(api.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.calls())
}

func TestSetPostalCode_ChangeDropsQuotes(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s, c := newTestSummary(t, api, "100")
	ctx := context.Background()

	require.NoError(t, s.Calculate(ctx, "01310100"))
	require.NoError(t, s.Select(ctx, "PAC-20.00"))

	assert.Equal(t, "01310-100", s.SetPostalCode(ctx, "01310-100"))
	assert.Equal(t, QuoteSelected, s.ShippingState())

	assert.Equal(t, "20040-020", s.SetPostalCode(ctx, "20040020"))
	assert.Equal(t, NoQuote, s.ShippingState())

	var quotes []domain.ShippingQuote
	assert.ErrorIs(t, c.Get(ctx, "session-1", cache.KeyShippingOptions, &quotes), cache.ErrCacheMiss)
	var cep string
	require.NoError(t, c.Get(ctx, "session-1", cache.KeyPostalCode, &cep))
	assert.Equal(t, "20040-020", cep)
}

func TestSelect_UnknownKey(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s, _ := newTestSummary(t, api, "100")
	require.NoError(t, s.Calculate(context.Background(), "01310100"))

	err := s.Select(context.Background(), "PAC-19.00")

	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.Equal(t, QuoteReady, s.ShippingState())
}

func TestTotal_Formula(t *testing.T) {
	api := &mockQuoteAPI{
		quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)},
		coupon: domain.CouponApplication{Percentage: dec("10"), Amount: dec("15.00")},
	}
	s, _ := newTestSummary(t, api, "150.00")
	ctx := context.Background()

	require.NoError(t, s.Calculate(ctx, "01310100"))
	require.NoError(t, s.Select(ctx, "PAC-20.00"))
	require.NoError(t, s.ApplyCoupon(ctx, "desconto10"))

	assert.Equal(t, "155.00", s.Total(dec("150.00")).StringFixed(2))

	v := s.View()
	require.NotNil(t, v.Total)
	assert.Equal(t, "155.00", v.Total.StringFixed(2))
	assert.Equal(t, CouponApplied, v.CouponState)
	assert.Equal(t, "20.00", v.ShippingPrice.StringFixed(2))
}

func TestTotal_Monotonic(t *testing.T) {
	api := &mockQuoteAPI{
		quotes: []domain.ShippingQuote{quote("PAC", "12.90", 7), quote("SEDEX", "31.50", 2), quote("Retirada", "0", 0)},
		coupon: domain.CouponApplication{Amount: dec("5")},
	}
	s, _ := newTestSummary(t, api, "80")
	ctx := context.Background()
	subtotal := dec("80")

	require.NoError(t, s.Calculate(ctx, "01310100"))

	require.NoError(t, s.Select(ctx, "Retirada-0.00"))
	free := s.Total(subtotal)
	require.NoError(t, s.Select(ctx, "PAC-12.90"))
	cheap := s.Total(subtotal)
	require.NoError(t, s.Select(ctx, "SEDEX-31.50"))
	pricey := s.Total(subtotal)

	assert.True(t, cheap.GreaterThanOrEqual(free))
	assert.True(t, pricey.GreaterThanOrEqual(cheap))

	require.NoError(t, s.ApplyCoupon(ctx, "x5"))
	assert.True(t, s.Total(subtotal).LessThanOrEqual(pricey))
}

func TestCanPlaceOrder_GatedOnAmbiguousShipping(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5), quote("SEDEX", "35.00", 2)}}
	s, _ := newTestSummary(t, api, "100")
	ctx := context.Background()

	assert.True(t, s.CanPlaceOrder())

	require.NoError(t, s.Calculate(ctx, "01310100"))
	assert.False(t, s.CanPlaceOrder())
	assert.Nil(t, s.View().Total)

	require.NoError(t, s.Select(ctx, "SEDEX-35.00"))
	assert.True(t, s.CanPlaceOrder())
}

func TestLoad_RoundTripsFromCache(t *testing.T) {
	api := &mockQuoteAPI{
		quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5), quote("SEDEX", "35.00", 2)},
		coupon: domain.CouponApplication{Percentage: dec("10"), Amount: dec("10.00")},
	}
	first, c := newTestSummary(t, api, "100")
	ctx := context.Background()

	require.NoError(t, first.Calculate(ctx, "01310-100"))
	require.NoError(t, first.Select(ctx, "SEDEX-35.00"))
	require.NoError(t, first.ApplyCoupon(ctx, "save10"))
	callsBefore := api.calls()

	reloaded := NewSummary(api, fixedSubtotal(dec("100")), c, "session-1", zap.NewNop())
	reloaded.Load(ctx)

	assert.Equal(t, callsBefore, api.calls())
	before, after := first.View(), reloaded.View()
	assert.Equal(t, before.PostalCode, after.PostalCode)
	assert.Equal(t, before.SelectedKey, after.SelectedKey)
	assert.Equal(t, QuoteSelected, after.ShippingState)
	require.Len(t, after.Options, 2)
	for i := range before.Options {
		assert.Equal(t, before.Options[i].Key(), after.Options[i].Key())
		assert.Equal(t, before.Options[i].LeadTimeDays, after.Options[i].LeadTimeDays)
	}
	assert.True(t, before.ShippingPrice.Equal(after.ShippingPrice))
	require.NotNil(t, after.Coupon)
	assert.Equal(t, "SAVE10", after.Coupon.Code)
	assert.True(t, before.Total.Equal(*after.Total))
}

func TestLoad_OtherSessionStartsEmpty(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	first, c := newTestSummary(t, api, "100")
	ctx := context.Background()
	require.NoError(t, first.Calculate(ctx, "01310100"))

	other := NewSummary(api, fixedSubtotal(dec("100")), c, "session-2", zap.NewNop())
	other.Load(ctx)

	assert.Equal(t, NoQuote, other.ShippingState())
	assert.Empty(t, other.View().PostalCode)
}

func TestResetShipping_ClearsCache(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s, c := newTestSummary(t, api, "100")
	ctx := context.Background()

	require.NoError(t, s.Calculate(ctx, "01310100"))
	require.NoError(t, s.Select(ctx, "PAC-20.00"))

	s.ResetShipping(ctx)

	assert.Equal(t, NoQuote, s.ShippingState())
	var v any
	for _, key := range []string{cache.KeyPostalCode, cache.KeyShippingOptions, cache.KeyShippingSelected} {
		assert.ErrorIs(t, c.Get(ctx, "session-1", key, &v), cache.ErrCacheMiss, key)
	}
}

func TestAutoQuote(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s, _ := newTestSummary(t, api, "100")
	ctx := context.Background()
	addr := domain.Address{ID: 3, PostalCode: "01310-100"}

	require.NoError(t, s.AutoQuote(ctx, addr))
	assert.Equal(t, QuoteReady, s.ShippingState())
	assert.Equal(t, []string{"01310100"}, api.quoteCalls)

	require.NoError(t, s.AutoQuote(ctx, domain.Address{ID: 4, PostalCode: "20040-020"}))
	assert.Equal(t, 1, api.calls())
}

func TestApplyCoupon_NormalizesCode(t *testing.T) {
	api := &mockQuoteAPI{coupon: domain.CouponApplication{Amount: dec("10")}}
	s, _ := newTestSummary(t, api, "100")
	ctx := context.Background()

	require.NoError(t, s.ApplyCoupon(ctx, "save10"))
	require.NoError(t, s.ApplyCoupon(ctx, " SAVE10 "))

	assert.Equal(t, []string{"SAVE10", "SAVE10"}, api.couponCalls)
	assert.Equal(t, "100", api.couponTotal[0].String())
}

func TestApplyCoupon_EmptyRejectedLocally(t *testing.T) {
	api := &mockQuoteAPI{}
	s, _ := newTestSummary(t, api, "100")

	err := s.ApplyCoupon(context.Background(), "   ")

	require.ErrorIs(t, err, ErrEmptyCoupon)
	assert.Empty(t, api.couponCalls)
	assert.Equal(t, NoCoupon, s.CouponState())
}

func TestApplyCoupon_RejectionLeavesNoCoupon(t *testing.T) {
	api := &mockQuoteAPI{coupon: domain.CouponApplication{Amount: dec("10")}}
	s, c := newTestSummary(t, api, "100")
	ctx := context.Background()
	require.NoError(t, s.ApplyCoupon(ctx, "SAVE10"))

	api.couponErr = &apiclient.APIError{Status: 400, Message: "Cupom expirado"}
	err := s.ApplyCoupon(ctx, "OLD")

	require.ErrorIs(t, err, ErrCouponRejected)
	assert.Equal(t, "Cupom expirado", err.Error())
	assert.Equal(t, NoCoupon, s.CouponState())
	assert.Equal(t, "100", s.Total(dec("100")).String())

	var stored domain.CouponApplication
	assert.ErrorIs(t, c.Get(ctx, "session-1", cache.KeyCoupon, &stored), cache.ErrCacheMiss)
}

func TestRemoveCoupon(t *testing.T) {
	api := &mockQuoteAPI{coupon: domain.CouponApplication{Amount: dec("10")}}
	s, _ := newTestSummary(t, api, "100")
	ctx := context.Background()
	require.NoError(t, s.ApplyCoupon(ctx, "SAVE10"))

	s.RemoveCoupon(ctx)

	assert.Equal(t, NoCoupon, s.CouponState())
	assert.Equal(t, "100", s.Total(dec("100")).String())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, string, any) error { return errors.New("redis down") }
func (brokenCache) Set(context.Context, string, string, any) error { return errors.New("redis down") }
func (brokenCache) Delete(context.Context, string, ...string) error {
	return errors.New("redis down")
}
func (brokenCache) Clear(context.Context, string) error { return errors.New("redis down") }

func TestSummary_CacheFailuresAreNotFatal(t *testing.T) {
	api := &mockQuoteAPI{quotes: []domain.ShippingQuote{quote("PAC", "20.00", 5)}}
	s := NewSummary(api, fixedSubtotal(dec("100")), brokenCache{}, "session-1", zap.NewNop())
	ctx := context.Background()

	s.Load(ctx)
	require.NoError(t, s.Calculate(ctx, "01310100"))
	require.NoError(t, s.Select(ctx, "PAC-20.00"))
	assert.Equal(t, "120", s.Total(dec("100")).String())
}
