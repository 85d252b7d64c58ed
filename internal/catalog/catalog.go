package catalog

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

var (
	ErrEmptyQuery     = errors.New("search query is empty")
	ErrInvalidProduct = errors.New("invalid product reference")
	ErrUnavailable    = errors.New("catalog unavailable")
)

// minSearchLength matches the shortest query the storefront searches for.
const minSearchLength = 3

type API interface {
	Products(ctx context.Context, query url.Values) ([]domain.Product, error)
	Bestsellers(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, ref string) (domain.Product, error)
	Essences(ctx context.Context) ([]domain.EssenceDetail, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	States(ctx context.Context) ([]domain.StateOption, error)
}

// Filter narrows a product listing. All filtering happens upstream.
type Filter struct {
	Categories []string
	Essences   []string
	Search     string
	Ordering   string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Page       int
}

// Values renders the filter as upstream query parameters.
func (f Filter) Values() url.Values {
	q := url.Values{}
	for _, c := range f.Categories {
		if c = strings.TrimSpace(c); c != "" {
			q.Add("category", c)
		}
	}
	for _, e := range f.Essences {
		if e = strings.TrimSpace(e); e != "" {
			q.Add("essence", e)
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// ParseFilter reads a filter from shopper query parameters. Unparseable
// numbers are ignored.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Categories: q["category"],
		Essences:   q["essence"],
		Search:     q.Get("search"),
		Ordering:   q.Get("ordering"),
	}
	if v, err := decimal.NewFromString(q.Get("min_price")); err == nil {
		f.MinPrice = &v
	}
	if v, err := decimal.NewFromString(q.Get("max_price")); err == nil {
		f.MaxPrice = &v
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = p
	}
	return f
}

// Service is a read-through view over the catalog endpoints.
type Service struct {
	api API
	log *zap.Logger
}

func NewService(api API, log *zap.Logger) *Service {
	return &Service{api: api, log: log}
}

func (s *Service) Products(ctx context.Context, f Filter) ([]domain.Product, error) {
	products, err := s.api.Products(ctx, f.Values())
	if err != nil {
		return nil, s.fail(ctx, "list products", err)
	}
	return products, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return nil, ErrEmptyQuery
	}
	return s.Products(ctx, Filter{Search: query})
}

// Product accepts a numeric id or a slug.
func (s *Service) Product(ctx context.Context, ref string) (domain.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, "/") {
		return domain.Product{}, ErrInvalidProduct
	}
	p, err := s.api.Product(ctx, ref)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "get product", err)
	}
	return p, nil
}

func (s *Service) Bestsellers(ctx context.Context) ([]domain.Product, error) {
	products, err := s.api.Bestsellers(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list bestsellers", err)
	}
	return products, nil
}

func (s *Service) Essences(ctx context.Context) ([]domain.EssenceDetail, error) {
	essences, err := s.api.Essences(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list essences", err)
	}
	return essences, nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.api.Categories(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list categories", err)
	}
	return categories, nil
}

func (s *Service) States(ctx context.Context) ([]domain.StateOption, error) {
	states, err := s.api.States(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list states", err)
	}
	return states, nil
}

// fail logs the upstream cause and keeps it in the chain so callers can
// still tell a 404 from an outage.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	logger.WithContext(ctx, s.log).Error(op+" failed", zap.Error(err))
	return errors.Join(ErrUnavailable, err)
}
