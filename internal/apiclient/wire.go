package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

// Field names in API responses moved around between API revisions. Everything
// in this file maps those shapes onto the domain types so nothing else has to
// know about the variants.

const unavailableProductName = "Produto Indisponível"

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseDecimal accepts a JSON number or numeric string. Anything else is nil.
func parseDecimal(raw json.RawMessage) *decimal.Decimal {
	if isNull(raw) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(bytes.TrimSpace(raw)); err != nil {
		return nil
	}
	return &d
}

func firstDecimal(raws ...json.RawMessage) *decimal.Decimal {
	for _, raw := range raws {
		if d := parseDecimal(raw); d != nil {
			return d
		}
	}
	return nil
}

func decimalOrZero(raws ...json.RawMessage) decimal.Decimal {
	if d := firstDecimal(raws...); d != nil {
		return *d
	}
	return decimal.Zero
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// decodeList reads either a bare JSON array or a paginated {"results": [...]} object.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

type wireProductRef struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         json.RawMessage `json:"price"`
	Image         string          `json:"image"`
	StockQuantity *int            `json:"stock_quantity"`
	Stock         *bool           `json:"stock"`
}

type wireEssence struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

type wireCartCustomization struct {
	ID     int64 `json:"id"`
	Option struct {
		ID         int64           `json:"id"`
		Name       string          `json:"name"`
		PriceExtra json.RawMessage `json:"price_extra"`
	} `json:"option"`
	Value string `json:"value"`
}

type wireCartItem struct {
	ID             int64                   `json:"id"`
	ProductID      *int64                  `json:"product_id"`
	Product        json.RawMessage         `json:"product"`
	Quantity       int                     `json:"quantity"`
	Price          json.RawMessage         `json:"price"`
	UnitPrice      json.RawMessage         `json:"unit_price"`
	StockQuantity  *int                    `json:"stock_quantity"`
	Stock          *bool                   `json:"stock"`
	Essence        *wireEssence            `json:"essence"`
	Customizations []wireCartCustomization `json:"customizations"`
}

type wireCart struct {
	Items      []wireCartItem  `json:"items"`
	Total      json.RawMessage `json:"total"`
	CartTotal  json.RawMessage `json:"cart_total"`
	TotalPrice json.RawMessage `json:"total_price"`
	OrderTotal json.RawMessage `json:"order_total"`
}

// normalizeCart maps the my-cart payload onto domain.Cart.
func normalizeCart(raw []byte) (domain.Cart, error) {
	var wc wireCart
	if err := json.Unmarshal(raw, &wc); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}

	cart := domain.Cart{
		Items: make([]domain.CartLineItem, 0, len(wc.Items)),
		Total: firstDecimal(wc.Total, wc.CartTotal, wc.TotalPrice, wc.OrderTotal),
	}
	for _, wi := range wc.Items {
		cart.Items = append(cart.Items, normalizeCartItem(wi))
	}
	return cart, nil
}

func normalizeCartItem(wi wireCartItem) domain.CartLineItem {
	var product *wireProductRef
	trimmed := bytes.TrimSpace(wi.Product)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		product = &wireProductRef{}
		if err := json.Unmarshal(trimmed, product); err != nil {
			product = nil
		}
	}

	item := domain.CartLineItem{
		ID:             wi.ID,
		Quantity:       wi.Quantity,
		Name:           unavailableProductName,
		InStock:        true,
		Customizations: make([]domain.Customization, 0, len(wi.Customizations)),
	}

	switch {
	case wi.ProductID != nil:
		item.ProductID = *wi.ProductID
	case product != nil:
		item.ProductID = product.ID
	default:
		var id int64
		if err := json.Unmarshal(trimmed, &id); err == nil {
			item.ProductID = id
		}
	}

	var productPrice json.RawMessage
	if product != nil {
		productPrice = product.Price
		if product.Name != "" {
			item.Name = product.Name
		}
		item.Image = product.Image
	}
	item.UnitPrice = decimalOrZero(wi.Price, wi.UnitPrice, productPrice)

	switch {
	case product != nil && product.StockQuantity != nil:
		item.StockQuantity = *product.StockQuantity
	case wi.StockQuantity != nil:
		item.StockQuantity = *wi.StockQuantity
	}
	switch {
	case product != nil && product.Stock != nil:
		item.InStock = *product.Stock
	case wi.Stock != nil:
		item.InStock = *wi.Stock
	}

	if wi.Essence != nil {
		item.Essence = &domain.Essence{
			ID:    wi.Essence.ID,
			Name:  wi.Essence.Name,
			Slug:  wi.Essence.Slug,
			Image: wi.Essence.Image,
		}
	}

	for _, c := range wi.Customizations {
		optionID := c.Option.ID
		if optionID == 0 {
			optionID = c.ID
		}
		item.Customizations = append(item.Customizations, domain.Customization{
			OptionID:   optionID,
			Label:      c.Option.Name,
			Value:      c.Value,
			PriceExtra: decimalOrZero(c.Option.PriceExtra),
		})
	}
	return item
}

type wireQuote struct {
	ID       *int64          `json:"id"`
	Servico  string          `json:"servico"`
	Service  string          `json:"service"`
	Preco    json.RawMessage `json:"preco"`
	Price    json.RawMessage `json:"price"`
	Prazo    *int            `json:"prazo"`
	LeadTime *int            `json:"lead_time"`
	Tipo     string          `json:"tipo"`
	Type     string          `json:"type"`
}

func normalizeQuotes(raw []byte) ([]domain.ShippingQuote, error) {
	wqs, err := decodeList[wireQuote](raw)
	if err != nil {
		return nil, fmt.Errorf("decode shipping quotes: %w", err)
	}
	quotes := make([]domain.ShippingQuote, 0, len(wqs))
	for _, wq := range wqs {
		q := domain.ShippingQuote{
			ID:      wq.ID,
			Service: firstString(wq.Servico, wq.Service),
			Price:   decimalOrZero(wq.Preco, wq.Price),
			Kind:    quoteKind(firstString(wq.Tipo, wq.Type)),
		}
		switch {
		case wq.Prazo != nil:
			q.LeadTimeDays = *wq.Prazo
		case wq.LeadTime != nil:
			q.LeadTimeDays = *wq.LeadTime
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func quoteKind(v string) domain.ShippingKind {
	switch strings.ToLower(v) {
	case "pickup", "retirada", "store_pickup":
		return domain.ShippingPickup
	default:
		return domain.ShippingDelivery
	}
}

type wireCoupon struct {
	Code               string          `json:"code"`
	DiscountPercentage json.RawMessage `json:"discount_percentage"`
	Percentage         json.RawMessage `json:"percentage"`
	DiscountAmount     json.RawMessage `json:"discount_amount"`
	Amount             json.RawMessage `json:"amount"`
}

func normalizeCoupon(raw []byte, requested string) (domain.CouponApplication, error) {
	var wc wireCoupon
	if err := json.Unmarshal(raw, &wc); err != nil {
		return domain.CouponApplication{}, fmt.Errorf("decode coupon: %w", err)
	}
	return domain.CouponApplication{
		Code:       strings.ToUpper(firstString(wc.Code, requested)),
		Percentage: decimalOrZero(wc.DiscountPercentage, wc.Percentage),
		Amount:     decimalOrZero(wc.DiscountAmount, wc.Amount),
	}, nil
}

type wireAddress struct {
	ID           int64  `json:"id,omitempty"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode"`
}

func toWireAddress(a domain.Address) wireAddress {
	return wireAddress{
		Street:       a.Street,
		Number:       a.Number,
		Complement:   a.Complement,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		Zipcode:      a.PostalCode,
	}
}

func (w wireAddress) toDomain() domain.Address {
	return domain.Address{
		ID:           w.ID,
		Street:       w.Street,
		Number:       w.Number,
		Complement:   w.Complement,
		Neighborhood: w.Neighborhood,
		City:         w.City,
		State:        w.State,
		PostalCode:   w.Zipcode,
	}
}

type wireOrderItem struct {
	ID       int64           `json:"id"`
	Product  wireProductRef  `json:"product"`
	Quantity int             `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

type wireOrder struct {
	ID        int64                `json:"id"`
	Status    string               `json:"status"`
	Total     json.RawMessage      `json:"total"`
	CreatedAt time.Time            `json:"created_at"`
	Items     []wireOrderItem      `json:"items"`
	Shipping  *domain.ShippingInfo `json:"shipping"`
	Payment   *domain.PaymentInfo  `json:"payment"`
}

func (w wireOrder) toDomain() domain.Order {
	order := domain.Order{
		ID:        w.ID,
		Status:    domain.OrderStatus(w.Status),
		Total:     decimalOrZero(w.Total),
		CreatedAt: w.CreatedAt,
		Items:     make([]domain.OrderItem, 0, len(w.Items)),
		Shipping:  w.Shipping,
		Payment:   w.Payment,
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	for _, wi := range w.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:          wi.ID,
			ProductID:   wi.Product.ID,
			ProductName: wi.Product.Name,
			Quantity:    wi.Quantity,
			Price:       decimalOrZero(wi.Price, wi.Product.Price),
		})
	}
	return order
}

type wirePayment struct {
	PreferenceID string          `json:"preference_id"`
	ID           json.RawMessage `json:"id"`
}

func (w wirePayment) handle() string {
	if w.PreferenceID != "" {
		return w.PreferenceID
	}
	if isNull(w.ID) {
		return ""
	}
	var s string
	if err := json.Unmarshal(w.ID, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(w.ID))
}

type wireProduct struct {
	ID               int64                 `json:"id"`
	Slug             string                `json:"slug"`
	Name             string                `json:"name"`
	Price            json.RawMessage       `json:"price"`
	Size             *domain.Size          `json:"size"`
	Essence          *domain.EssenceDetail `json:"essence"`
	Image            *string               `json:"image"`
	Category         json.RawMessage       `json:"category"`
	ShortDescription *string               `json:"short_description"`
	FullDescription  *string               `json:"full_description"`
	StockQuantity    int                   `json:"stock_quantity"`
	IsBestseller     bool                  `json:"is_bestseller"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// categoryName accepts either a plain name or a category object.
func categoryName(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func (w wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:               w.ID,
		Slug:             w.Slug,
		Name:             w.Name,
		Price:            decimalOrZero(w.Price),
		Size:             w.Size,
		Essence:          w.Essence,
		Image:            deref(w.Image),
		Category:         categoryName(w.Category),
		ShortDescription: deref(w.ShortDescription),
		FullDescription:  deref(w.FullDescription),
		StockQuantity:    w.StockQuantity,
		IsBestseller:     w.IsBestseller,
	}
}
