package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

// Auth

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.Get(ctx, "auth/users/me/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile returns the shopper's personal data as kept by the client app.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.Get(ctx, "client/profile/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens struct {
		Access string `json:"access"`
	}
	err := c.Post(ctx, loginPath, map[string]string{"email": email, "password": password}, &tokens)
	if err != nil {
		return err
	}
	if tokens.Access != "" {
		c.SetToken(tokens.Access)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.Post(ctx, "client/register/", req, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	return c.Post(ctx, "client/auth/logout/", struct{}{}, nil)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.Post(ctx, "client/resend-verification/", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.Post(ctx, "client/verify-email/", map[string]string{"token": token}, nil)
}

// Cart

func (c *Client) Cart(ctx context.Context) (domain.Cart, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "cart/my-cart/", nil, &raw); err != nil {
		return domain.Cart{}, err
	}
	return normalizeCart(raw)
}

type addCartItemRequest struct {
	Product        int64                        `json:"product"`
	Quantity       int                          `json:"quantity"`
	Essence        *int64                       `json:"essence"`
	Customizations []domain.CustomizationChoice `json:"customizations"`
}

func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int, essenceID *int64, customizations []domain.CustomizationChoice) error {
	if customizations == nil {
		customizations = []domain.CustomizationChoice{}
	}
	return c.Post(ctx, "cart/items/add/", addCartItemRequest{
		Product:        productID,
		Quantity:       quantity,
		Essence:        essenceID,
		Customizations: customizations,
	}, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, lineID int64, quantity int) error {
	return c.Patch(ctx, fmt.Sprintf("cart/items/%d/", lineID), map[string]int{"quantity": quantity}, nil)
}

func (c *Client) DeleteCartItem(ctx context.Context, lineID int64) error {
	return c.Delete(ctx, fmt.Sprintf("cart/items/delete/%d/", lineID))
}

// Checkout

func (c *Client) CalculateShipping(ctx context.Context, postalCode string) ([]domain.ShippingQuote, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, "cart/calculate-shipping/", map[string]string{"cep": postalCode}, &raw); err != nil {
		return nil, err
	}
	return normalizeQuotes(raw)
}

func (c *Client) ValidateCoupon(ctx context.Context, code string, orderTotal decimal.Decimal) (domain.CouponApplication, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "checkout/coupons/validate/", map[string]any{
		"code":        code,
		"order_total": orderTotal.StringFixed(2),
	}, &raw)
	if err != nil {
		return domain.CouponApplication{}, err
	}
	return normalizeCoupon(raw, code)
}

func (c *Client) Addresses(ctx context.Context) ([]domain.Address, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "client/addresses/", nil, &raw); err != nil {
		return nil, err
	}
	was, err := decodeList[wireAddress](raw)
	if err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	out := make([]domain.Address, 0, len(was))
	for _, wa := range was {
		out = append(out, wa.toDomain())
	}
	return out, nil
}

// UpdateAddress patches one saved address with the edited fields.
func (c *Client) UpdateAddress(ctx context.Context, id int64, a domain.Address) (domain.Address, error) {
	var updated wireAddress
	if err := c.Patch(ctx, fmt.Sprintf("client/addresses/%d/", id), toWireAddress(a), &updated); err != nil {
		return domain.Address{}, err
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	return updated.toDomain(), nil
}

func (c *Client) CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	var created wireAddress
	if err := c.Post(ctx, "client/address/create/", toWireAddress(a), &created); err != nil {
		return domain.Address{}, err
	}
	return created.toDomain(), nil
}

type createOrderRequest struct {
	Address      int64   `json:"address"`
	ShippingCost *string `json:"shipping_cost,omitempty"`
}

// CreateOrder places an order for the current cart. shippingCost is sent when
// a shipping option was selected.
func (c *Client) CreateOrder(ctx context.Context, addressID int64, shippingCost *decimal.Decimal) (int64, error) {
	req := createOrderRequest{Address: addressID}
	if shippingCost != nil {
		cost := shippingCost.StringFixed(2)
		req.ShippingCost = &cost
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.Post(ctx, "order/order-create/", req, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("order create: missing order id")
	}
	return created.ID, nil
}

func (c *Client) CreatePayment(ctx context.Context, orderID int64) (string, error) {
	var created wirePayment
	if err := c.Post(ctx, "checkout/payments/create/", map[string]int64{"order": orderID}, &created); err != nil {
		return "", err
	}
	handle := created.handle()
	if handle == "" {
		return "", fmt.Errorf("payment create: missing preference id")
	}
	return handle, nil
}

// Orders

func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "order/order-list/", nil, &raw); err != nil {
		return nil, err
	}
	wos, err := decodeList[wireOrder](raw)
	if err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	out := make([]domain.Order, 0, len(wos))
	for _, wo := range wos {
		out = append(out, wo.toDomain())
	}
	return out, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) (domain.OrderStatus, error) {
	var updated struct {
		Status string `json:"status"`
	}
	path := fmt.Sprintf("order/order-cancel/%d/", orderID)
	if err := c.Patch(ctx, path, map[string]string{"status": string(domain.OrderStatusCanceled)}, &updated); err != nil {
		return "", err
	}
	if updated.Status == "" {
		return domain.OrderStatusCanceled, nil
	}
	return domain.OrderStatus(updated.Status), nil
}

// Catalog

func (c *Client) Products(ctx context.Context, query url.Values) ([]domain.Product, error) {
	return c.productList(ctx, "product/products/", query)
}

func (c *Client) Bestsellers(ctx context.Context) ([]domain.Product, error) {
	return c.productList(ctx, "product/bestsellers/", nil)
}

func (c *Client) productList(ctx context.Context, path string, query url.Values) ([]domain.Product, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	wps, err := decodeList[wireProduct](raw)
	if err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make([]domain.Product, 0, len(wps))
	for _, wp := range wps {
		out = append(out, wp.toDomain())
	}
	return out, nil
}

// Product loads one product by numeric id or slug.
func (c *Client) Product(ctx context.Context, ref string) (domain.Product, error) {
	var wp wireProduct
	path := fmt.Sprintf("product/products/%s/", url.PathEscape(strings.TrimSpace(ref)))
	if err := c.Get(ctx, path, nil, &wp); err != nil {
		return domain.Product{}, err
	}
	return wp.toDomain(), nil
}

func (c *Client) Essences(ctx context.Context) ([]domain.EssenceDetail, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "product/essences/", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.EssenceDetail](raw)
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "product/categories/", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.Category](raw)
}

func (c *Client) States(ctx context.Context) ([]domain.StateOption, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "client/utils/states/", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.StateOption](raw)
}
