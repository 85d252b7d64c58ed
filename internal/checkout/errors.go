package checkout

import "errors"

var (
	ErrInFlight            = errors.New("operation already in progress")
	ErrInvalidPostalCode   = errors.New("invalid postal code")
	ErrNoShippingOptions   = errors.New("no shipping options for postal code")
	ErrQuoteFailed         = errors.New("shipping quote failed")
	ErrUnknownOption       = errors.New("unknown shipping option")
	ErrEmptyCoupon         = errors.New("empty coupon code")
	ErrCouponRejected      = errors.New("coupon rejected")
	ErrShippingNotSelected = errors.New("shipping option not selected")
	ErrAddressIncomplete   = errors.New("address is incomplete")
	ErrAddressRequired     = errors.New("address is required")
	ErrOrderFailed         = errors.New("order could not be placed")
)

const (
	msgInvalidPostalCode   = "Por favor, insira um CEP válido"
	msgNoShippingOptions   = "Nenhuma opção de frete disponível para este CEP"
	msgQuoteFailed         = "Erro ao calcular frete"
	msgUnknownOption       = "Opção de frete inválida"
	msgEmptyCoupon         = "Informe o código do cupom"
	msgCouponRejected      = "Cupom inválido ou expirado"
	msgShippingNotSelected = "Selecione uma opção de frete"
	msgAddressIncomplete   = "Por favor, preencha todos os campos do novo endereço."
	msgAddressRequired     = "Por favor, selecione ou adicione um endereço de entrega."
	msgOrderFailed         = "Não foi possível processar seu pedido. Tente novamente."
	msgInFlight            = "Aguarde, a operação anterior ainda está em andamento."
)

// Error is a failed checkout action as the shopper sees it. It unwraps to one
// of the package sentinels; the upstream cause is only logged.
type Error struct {
	Message string
	Fields  []string
	kind    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, msg string) *Error {
	return &Error{Message: msg, kind: kind}
}

func inFlight() *Error {
	return newError(ErrInFlight, msgInFlight)
}
