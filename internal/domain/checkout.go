package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ShippingKind string

const (
	ShippingDelivery ShippingKind = "delivery"
	ShippingPickup   ShippingKind = "pickup"
)

// ShippingQuote is one option returned for a postal code. ID is only set by
// newer API versions, so selection goes through Key.
type ShippingQuote struct {
	ID           *int64          `json:"id,omitempty"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	LeadTimeDays int             `json:"lead_time_days"`
	Kind         ShippingKind    `json:"kind"`
}

func (q ShippingQuote) Key() string {
	return fmt.Sprintf("%s-%s", q.Service, q.Price.StringFixed(2))
}

type CouponApplication struct {
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

type Address struct {
	ID           int64  `json:"id,omitempty"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// Missing returns the names of required fields that are blank.
func (a Address) Missing() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("street", a.Street)
	check("number", a.Number)
	check("neighborhood", a.Neighborhood)
	check("city", a.City)
	check("state", a.State)
	check("postal_code", a.PostalCode)
	return missing
}

// DigitsOnly strips everything but 0-9.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPostalCode renders a CEP as 00000-000, leaving partial input partial.
func FormatPostalCode(s string) string {
	digits := DigitsOnly(s)
	if len(digits) > 8 {
		digits = digits[:8]
	}
	if len(digits) <= 5 {
		return digits
	}
	return digits[:5] + "-" + digits[5:]
}
