package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/auth"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cart"
	"github.com/bruno-romeu/frontend-ecommerce/internal/catalog"
	"github.com/bruno-romeu/frontend-ecommerce/internal/checkout"
	"github.com/bruno-romeu/frontend-ecommerce/internal/orders"
	"github.com/bruno-romeu/frontend-ecommerce/internal/payment"
	"github.com/bruno-romeu/frontend-ecommerce/internal/postal"
	"github.com/bruno-romeu/frontend-ecommerce/internal/profile"
)

const (
	msgUnavailable    = "Serviço temporariamente indisponível. Tente novamente."
	msgInternal       = "Erro interno. Tente novamente."
	msgLoginRequired  = "Por favor, faça login para continuar."
	msgSessionExpired = "Sua sessão expirou. Faça login novamente."
	msgInvalidBody    = "Requisição inválida."
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondErr maps a store or service error onto a status code. Typed errors
// already carry the text the shopper should read.
func respondErr(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		checkoutErr *checkout.Error
		cartErr     *cart.Notice
		authErr     *auth.Error
		fieldsErr   *profile.FieldsError
	)

	switch {
	case errors.As(err, &checkoutErr):
		status, code := checkoutStatus(checkoutErr)
		resp := ErrorResponse{Error: checkoutErr.Message, Code: code}
		if len(checkoutErr.Fields) > 0 {
			resp.Fields = checkoutErr.Fields
		}
		respondJSON(w, status, resp)

	case errors.As(err, &cartErr):
		status, code := cartStatus(cartErr)
		respondError(w, status, code, cartErr.Message)

	case errors.As(err, &authErr):
		status, code := authStatus(authErr)
		resp := ErrorResponse{Error: authErr.Message, Code: code}
		if len(authErr.Fields) > 0 {
			resp.Fields = authErr.Fields
		}
		respondJSON(w, status, resp)

	case errors.As(err, &fieldsErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Preencha todos os campos obrigatórios do endereço.",
			Code:   "invalid_argument",
			Fields: fieldsErr.Fields,
		})

	case errors.Is(err, catalog.ErrEmptyQuery), errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, postal.ErrInvalidPostalCode), errors.Is(err, profile.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())

	case errors.Is(err, orders.ErrNotFound), errors.Is(err, payment.ErrUnknownStatus),
		errors.Is(err, postal.ErrNotFound), apiclient.StatusOf(err) == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "not_found", "Não encontrado.")

	case errors.Is(err, orders.ErrNotCancellable):
		respondError(w, http.StatusConflict, "not_cancellable", "Este pedido não pode mais ser cancelado.")

	case errors.Is(err, apiclient.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, "session_expired", msgSessionExpired)

	case errors.Is(err, apiclient.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", msgUnavailable)

	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, orders.ErrUnavailable),
		errors.Is(err, profile.ErrUnavailable), apiclient.StatusOf(err) != 0:
		log.Warn("upstream failure", zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_error", msgUnavailable)

	default:
		log.Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", msgInternal)
	}
}

func checkoutStatus(e *checkout.Error) (int, string) {
	switch {
	case errors.Is(e, checkout.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(e, checkout.ErrOrderFailed), errors.Is(e, checkout.ErrQuoteFailed):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(e, checkout.ErrCouponRejected), errors.Is(e, checkout.ErrNoShippingOptions):
		return http.StatusUnprocessableEntity, "rejected"
	default:
		return http.StatusBadRequest, "invalid_argument"
	}
}

func cartStatus(n *cart.Notice) (int, string) {
	switch {
	case errors.Is(n, cart.ErrAuthRequired):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(n, cart.ErrInvalidProduct):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func authStatus(e *auth.Error) (int, string) {
	switch {
	case errors.Is(e, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(e, auth.ErrEmailNotVerified):
		return http.StatusForbidden, "email_not_verified"
	default:
		return http.StatusBadRequest, "invalid_argument"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", msgInvalidBody)
		return false
	}
	return true
}
