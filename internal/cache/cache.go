package cache

import (
	"context"
	"errors"
)

// Keys of the checkout sub-state kept per shopper session.
const (
	KeyPostalCode        = "shipping_cep"
	KeyShippingOptions   = "shipping_options"
	KeyShippingSelected  = "shipping_selected"
	KeyCoupon            = "coupon"
	KeyRegistrationEmail = "registration_email"
)

// SessionCache is a short-lived key-value store scoped to one shopper
// session. Values are JSON encoded.
type SessionCache interface {
	Get(ctx context.Context, sessionID, key string, dst any) error
	Set(ctx context.Context, sessionID, key string, value any) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	Clear(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
