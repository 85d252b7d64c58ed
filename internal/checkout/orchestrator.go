package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/events"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

const (
	stepCreateAddress = "create_address"
	stepCreateOrder   = "create_order"
	stepCreatePayment = "create_payment"
)

type OrderAPI interface {
	CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error)
	CreateOrder(ctx context.Context, addressID int64, shippingCost *decimal.Decimal) (int64, error)
	CreatePayment(ctx context.Context, orderID int64) (string, error)
}

// PlaceOrderRequest names either a saved address or a new one to create.
type PlaceOrderRequest struct {
	AddressID  *int64          `json:"address_id,omitempty"`
	NewAddress *domain.Address `json:"new_address,omitempty"`
}

type PlaceOrderResult struct {
	AddressID    int64  `json:"address_id"`
	OrderID      int64  `json:"order_id"`
	PreferenceID string `json:"preference_id"`
}

// Orchestrator turns a checkout into an order and a payment preference in
// three dependent calls. A failed step is not compensated; retrying starts
// over from the address.
type Orchestrator struct {
	api       OrderAPI
	summary   *Summary
	publisher events.Publisher
	sessionID string
	log       *zap.Logger

	inFlight atomic.Bool

	mu     sync.RWMutex
	result *PlaceOrderResult
}

func NewOrchestrator(api OrderAPI, summary *Summary, publisher events.Publisher, sessionID string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		api:       api,
		summary:   summary,
		publisher: publisher,
		sessionID: sessionID,
		log:       log,
	}
}

func (o *Orchestrator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return PlaceOrderResult{}, inFlight()
	}
	defer o.inFlight.Store(false)

	if err := o.precheck(req); err != nil {
		return PlaceOrderResult{}, err
	}

	var shippingCost *decimal.Decimal
	if q := o.summary.SelectedShipping(); q != nil {
		price := q.Price
		shippingCost = &price
	}

	log := logger.WithContext(ctx, o.log).With(zap.String("session_id", o.sessionID))
	var res PlaceOrderResult

	if req.NewAddress != nil {
		created, err := o.api.CreateAddress(ctx, *req.NewAddress)
		if err != nil {
			return res, o.abort(ctx, log, stepCreateAddress, res, err)
		}
		if created.ID == 0 {
			_ = o.abort(ctx, log, stepCreateAddress, res, errors.New("created address has no id"))
			return res, newError(ErrAddressRequired, msgAddressRequired)
		}
		res.AddressID = created.ID
		log.Info("address created", zap.Int64("address_id", res.AddressID))
	} else {
		res.AddressID = *req.AddressID
	}

	orderID, err := o.api.CreateOrder(ctx, res.AddressID, shippingCost)
	if err != nil {
		return res, o.abort(ctx, log, stepCreateOrder, res, err)
	}
	res.OrderID = orderID
	log.Info("order created", zap.Int64("order_id", orderID))

	preferenceID, err := o.api.CreatePayment(ctx, orderID)
	if err != nil {
		return res, o.abort(ctx, log, stepCreatePayment, res, err)
	}
	res.PreferenceID = preferenceID
	log.Info("payment preference created", zap.Int64("order_id", orderID))

	o.summary.Clear(ctx)

	o.mu.Lock()
	o.result = &res
	o.mu.Unlock()

	o.publish(ctx, events.Event{
		Type:         events.OrderPlaced,
		SessionID:    o.sessionID,
		AddressID:    res.AddressID,
		OrderID:      res.OrderID,
		PreferenceID: res.PreferenceID,
		ShippingCost: shippingCost,
		OccurredAt:   time.Now().UTC(),
	})
	return res, nil
}

// Result is the last successful placement, or nil.
func (o *Orchestrator) Result() *PlaceOrderResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.result == nil {
		return nil
	}
	cp := *o.result
	return &cp
}

func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) precheck(req PlaceOrderRequest) error {
	if req.NewAddress != nil {
		if missing := req.NewAddress.Missing(); len(missing) > 0 {
			e := newError(ErrAddressIncomplete, msgAddressIncomplete)
			e.Fields = missing
			return e
		}
	} else if req.AddressID == nil || *req.AddressID <= 0 {
		return newError(ErrAddressRequired, msgAddressRequired)
	}

	if !o.summary.CanPlaceOrder() {
		return newError(ErrShippingNotSelected, msgShippingNotSelected)
	}
	return nil
}

func (o *Orchestrator) abort(ctx context.Context, log *zap.Logger, step string, res PlaceOrderResult, cause error) error {
	log.Error("checkout step failed",
		zap.String("step", step),
		zap.Int64("address_id", res.AddressID),
		zap.Int64("order_id", res.OrderID),
		zap.Error(cause),
	)

	o.publish(ctx, events.Event{
		Type:       events.OrderFailed,
		SessionID:  o.sessionID,
		AddressID:  res.AddressID,
		OrderID:    res.OrderID,
		Step:       step,
		OccurredAt: time.Now().UTC(),
	})
	return newError(ErrOrderFailed, msgOrderFailed)
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if err := o.publisher.Publish(ctx, e); err != nil {
		logger.WithContext(ctx, o.log).Warn("failed to publish checkout event",
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
	}
}
