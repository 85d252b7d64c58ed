package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	OrderPlaced Type = "checkout.order_placed"
	OrderFailed Type = "checkout.order_failed"
)

// Event describes the outcome of one checkout attempt.
type Event struct {
	Type         Type             `json:"type"`
	SessionID    string           `json:"session_id"`
	AddressID    int64            `json:"address_id,omitempty"`
	OrderID      int64            `json:"order_id,omitempty"`
	PreferenceID string           `json:"preference_id,omitempty"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Step         string           `json:"step,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
