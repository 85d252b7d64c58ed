package cart

import "errors"

var (
	ErrAuthRequired   = errors.New("authentication required")
	ErrInvalidProduct = errors.New("invalid product")
	ErrAddFailed      = errors.New("add to cart failed")
	ErrUpdateFailed   = errors.New("update cart item failed")
	ErrRemoveFailed   = errors.New("remove cart item failed")
)

// Shopper-facing messages.
const (
	msgLoginRequired = "Por favor, faça login para adicionar itens ao carrinho."
	msgAddFailed     = "Não foi possível adicionar o item ao carrinho. Tente novamente."
	msgUpdateFailed  = "Não foi possível atualizar a quantidade. Tente novamente."
	msgRemoveFailed  = "Não foi possível remover o item. Tente novamente."
)

// Notice is the message a failed cart operation leaves for the shopper. It
// unwraps to one of the package sentinels.
type Notice struct {
	Message string
	kind    error
}

func (n *Notice) Error() string {
	return n.Message
}

func (n *Notice) Unwrap() error {
	return n.kind
}
