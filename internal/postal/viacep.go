package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

var (
	ErrInvalidPostalCode = errors.New("postal code must have 8 digits")
	ErrNotFound          = errors.New("postal code not found")
)

// Address is the part of a delivery address a postal code resolves to.
type Address struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// Client looks postal codes up on ViaCEP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) Lookup(ctx context.Context, cep string) (Address, error) {
	digits := domain.DigitsOnly(cep)
	if len(digits) != 8 {
		return Address{}, ErrInvalidPostalCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits), nil)
	if err != nil {
		return Address{}, fmt.Errorf("build viacep request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("viacep request: %w", err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for malformed codes and 200 with "erro" for unknown ones.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return Address{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("viacep returned status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("decode viacep response: %w", err)
	}
	if notFound(body.Erro) {
		return Address{}, ErrNotFound
	}

	return Address{
		PostalCode:   domain.FormatPostalCode(digits),
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}

// notFound accepts both "erro": true and the older "erro": "true".
func notFound(v any) bool {
	switch e := v.(type) {
	case bool:
		return e
	case string:
		return e == "true"
	default:
		return false
	}
}
