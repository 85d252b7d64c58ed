package checkout

type ShippingState string

const (
	NoQuote       ShippingState = "no_quote"
	QuoteReady    ShippingState = "quote_ready"
	QuoteSelected ShippingState = "quote_selected"
	QuoteError    ShippingState = "quote_error"
)

func (s ShippingState) String() string {
	return string(s)
}

type CouponState string

const (
	NoCoupon      CouponState = "no_coupon"
	CouponApplied CouponState = "coupon_applied"
)

func (s CouponState) String() string {
	return string(s)
}
