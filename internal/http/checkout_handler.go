package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/cart"
	"github.com/bruno-romeu/frontend-ecommerce/internal/checkout"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
	"github.com/bruno-romeu/frontend-ecommerce/internal/payment"
	"github.com/bruno-romeu/frontend-ecommerce/internal/postal"
)

// PostalLookup resolves a postal code into the address it covers.
type PostalLookup interface {
	Lookup(ctx context.Context, cep string) (postal.Address, error)
}

type CheckoutHandler struct {
	postal  PostalLookup
	timeout time.Duration
	log     *zap.Logger
}

func NewCheckoutHandler(postal PostalLookup, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{postal: postal, timeout: timeout, log: log}
}

type PostalCodeRequestDTO struct {
	PostalCode string `json:"postal_code"`
}

type SelectShippingRequestDTO struct {
	Key string `json:"key"`
}

type CouponRequestDTO struct {
	Code string `json:"code"`
}

type SelectAddressRequestDTO struct {
	AddressID int64 `json:"address_id"`
}

// SummaryDTO pairs the cart with the checkout choices made on top of it.
type SummaryDTO struct {
	Cart    cart.Snapshot              `json:"cart"`
	Summary checkout.View              `json:"summary"`
	Result  *checkout.PlaceOrderResult `json:"last_order,omitempty"`
}

func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) SetPostalCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PostalCodeRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	currentSession(r).Summary.SetPostalCode(ctx, req.PostalCode)
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PostalCodeRequestDTO
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	if err := currentSession(r).Summary.Calculate(ctx, req.PostalCode); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectShippingRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := currentSession(r).Summary.Select(ctx, req.Key); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) ResetShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	currentSession(r).Summary.ResetShipping(ctx)
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CouponRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := currentSession(r).Summary.ApplyCoupon(ctx, req.Code); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	currentSession(r).Summary.RemoveCoupon(ctx)
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	addresses, err := currentSession(r).Addresses.Addresses(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

// SelectAddress quotes shipping for a saved address unless the shopper has
// already asked for a quote.
func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectAddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	s := currentSession(r)
	addresses, err := s.Addresses.Addresses(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	var selected *domain.Address
	for i := range addresses {
		if addresses[i].ID == req.AddressID {
			selected = &addresses[i]
			break
		}
	}
	if selected == nil {
		respondError(w, http.StatusNotFound, "not_found", "Endereço não encontrado.")
		return
	}

	if err := s.Summary.AutoQuote(ctx, *selected); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, summaryDTO(r))
}

func (h *CheckoutHandler) LookupPostalCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	addr, err := h.postal.Lookup(ctx, chi.URLParam(r, "cep"))
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkout.PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := currentSession(r).Checkout.PlaceOrder(ctx, req)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// Outcome renders the page the payment provider redirects back to. An
// approved payment empties the cart server side, so it is fetched again.
func (h *CheckoutHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := payment.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	outcome, err := payment.Resolve(status, r.URL.Query())
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}

	if status == payment.StatusApproved {
		currentSession(r).Cart.Fetch(ctx)
	}
	respondJSON(w, http.StatusOK, outcome)
}

func summaryDTO(r *http.Request) SummaryDTO {
	s := currentSession(r)
	return SummaryDTO{
		Cart:    s.Cart.Snapshot(),
		Summary: s.Summary.View(),
		Result:  s.Checkout.Result(),
	}
}
