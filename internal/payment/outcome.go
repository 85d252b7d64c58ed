package payment

import (
	"errors"
	"net/url"
	"strings"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

var ErrUnknownStatus = errors.New("unknown payment outcome")

// Action is where the shopper is sent next.
type Action struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Outcome is what the shopper sees after the payment provider redirects back.
type Outcome struct {
	Status      Status   `json:"status"`
	OrderID     string   `json:"order_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Message     string   `json:"message"`
	Actions     []Action `json:"actions"`
}

var outcomes = map[Status]Outcome{
	StatusApproved: {
		Title:       "Pagamento Aprovado!",
		Description: "Obrigado pela sua compra.",
		Message:     "Uma confirmação foi enviada para o seu email. O seu pedido está a ser preparado para envio.",
		Actions:     []Action{{Label: "Continuar a Comprar", Path: "/"}},
	},
	StatusPending: {
		Title:       "Pagamento Pendente",
		Description: "Aguardando confirmação.",
		Message:     "Estamos a aguardar a confirmação do seu pagamento. Você receberá uma notificação por e-mail assim que o seu pedido for aprovado.",
		Actions:     []Action{{Label: "Acompanhar Meus Pedidos", Path: "/perfil/pedidos"}},
	},
	StatusRejected: {
		Title:       "Pagamento Recusado",
		Description: "Não foi possível processar o seu pagamento.",
		Message:     "Houve um problema com a sua forma de pagamento e nenhum valor foi cobrado. Por favor, verifique os seus dados ou tente um método diferente.",
		Actions: []Action{
			{Label: "Tentar Novamente", Path: "/checkout"},
			{Label: "Voltar para a Loja", Path: "/"},
		},
	},
}

// aliases maps the provider's redirect names onto the three outcomes.
var aliases = map[string]Status{
	"approved": StatusApproved,
	"success":  StatusApproved,
	"sucesso":  StatusApproved,
	"pending":  StatusPending,
	"pendente": StatusPending,
	"rejected": StatusRejected,
	"failure":  StatusRejected,
	"falha":    StatusRejected,
}

// ParseStatus resolves a redirect name into an outcome status.
func ParseStatus(name string) (Status, error) {
	s, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", ErrUnknownStatus
	}
	return s, nil
}

// Resolve renders the outcome for status, reading the order id from the
// external_reference parameter. The rejected view never shows it.
func Resolve(status Status, query url.Values) (Outcome, error) {
	o, ok := outcomes[status]
	if !ok {
		return Outcome{}, ErrUnknownStatus
	}
	o.Status = status
	o.Actions = append([]Action(nil), o.Actions...)
	if status != StatusRejected {
		o.OrderID = strings.TrimSpace(query.Get("external_reference"))
	}
	return o, nil
}
