package domain

import "github.com/shopspring/decimal"

type Essence struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

// Customization is a chosen personalization attached to a cart line.
type Customization struct {
	OptionID   int64           `json:"option_id"`
	Label      string          `json:"label"`
	Value      string          `json:"value"`
	PriceExtra decimal.Decimal `json:"price_extra"`
}

// CustomizationChoice is what the shopper sends when adding a product.
type CustomizationChoice struct {
	OptionID int64  `json:"option_id"`
	Value    string `json:"value"`
}

type CartLineItem struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Image          string          `json:"image,omitempty"`
	Quantity       int             `json:"quantity"`
	Essence        *Essence        `json:"essence"`
	Customizations []Customization `json:"customizations"`
	InStock        bool            `json:"in_stock"`
	StockQuantity  int             `json:"stock_quantity"`
}

func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the server view of the active cart. Total is nil when the API
// did not report one.
type Cart struct {
	Items []CartLineItem
	Total *decimal.Decimal
}

// Subtotal prefers the server-reported total and falls back to summing lines.
func (c Cart) Subtotal() decimal.Decimal {
	if c.Total != nil {
		return *c.Total
	}
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
