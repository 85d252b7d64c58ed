package catalog

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

type mockAPI struct {
	query   url.Values
	ref     string
	err     error
	product domain.Product
}

func (m *mockAPI) Products(_ context.Context, query url.Values) ([]domain.Product, error) {
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Product{{ID: 1, Name: "Vela Lavanda"}}, nil
}

func (m *mockAPI) Bestsellers(context.Context) ([]domain.Product, error) {
	return []domain.Product{{ID: 2, IsBestseller: true}}, m.err
}

func (m *mockAPI) Product(_ context.Context, ref string) (domain.Product, error) {
	m.ref = ref
	return m.product, m.err
}

func (m *mockAPI) Essences(context.Context) ([]domain.EssenceDetail, error) {
	return []domain.EssenceDetail{{ID: 1, Name: "Lavanda"}}, m.err
}

func (m *mockAPI) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Velas"}}, m.err
}

func (m *mockAPI) States(context.Context) ([]domain.StateOption, error) {
	return []domain.StateOption{{Value: "SP", Label: "São Paulo"}}, m.err
}

func TestFilter_Values(t *testing.T) {
	minPrice := decimal.RequireFromString("19.90")
	f := Filter{
		Categories: []string{"velas", " ", "difusores"},
		Essences:   []string{"lavanda"},
		Search:     " alecrim ",
		Ordering:   "-price",
		MinPrice:   &minPrice,
		Page:       2,
	}

	q := f.Values()

	assert.Equal(t, []string{"velas", "difusores"}, q["category"])
	assert.Equal(t, "lavanda", q.Get("essence"))
	assert.Equal(t, "alecrim", q.Get("search"))
	assert.Equal(t, "-price", q.Get("ordering"))
	assert.Equal(t, "19.9", q.Get("min_price"))
	assert.Empty(t, q.Get("max_price"))
	assert.Equal(t, "2", q.Get("page"))
}

func TestFilter_FirstPageOmitted(t *testing.T) {
	assert.Empty(t, Filter{Page: 1}.Values())
}

func TestParseFilter(t *testing.T) {
	q, err := url.ParseQuery("category=velas&category=kits&max_price=100&min_price=abc&page=3&ordering=name")
	require.NoError(t, err)

	f := ParseFilter(q)

	assert.Equal(t, []string{"velas", "kits"}, f.Categories)
	assert.Nil(t, f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, "100", f.MaxPrice.String())
	assert.Equal(t, 3, f.Page)
}

func TestProducts_PassesFilterUpstream(t *testing.T) {
	api := &mockAPI{}
	s := NewService(api, zap.NewNop())

	products, err := s.Products(context.Background(), Filter{Essences: []string{"lavanda"}})

	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "lavanda", api.query.Get("essence"))
}

func TestSearch(t *testing.T) {
	api := &mockAPI{}
	s := NewService(api, zap.NewNop())

	_, err := s.Search(context.Background(), " ve ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Nil(t, api.query)

	_, err = s.Search(context.Background(), "vela")
	require.NoError(t, err)
	assert.Equal(t, "vela", api.query.Get("search"))
}

func TestProduct_Reference(t *testing.T) {
	api := &mockAPI{product: domain.Product{ID: 9, Slug: "vela-lavanda"}}
	s := NewService(api, zap.NewNop())

	_, err := s.Product(context.Background(), "a/b")
	assert.ErrorIs(t, err, ErrInvalidProduct)

	p, err := s.Product(context.Background(), "vela-lavanda")
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, "vela-lavanda", api.ref)
}

func TestUpstreamFailureKeepsCause(t *testing.T) {
	api := &mockAPI{err: &apiclient.APIError{Status: 404}}
	s := NewService(api, zap.NewNop())

	_, err := s.Product(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 404, apiclient.StatusOf(err))
}

func TestReadThroughLists(t *testing.T) {
	s := NewService(&mockAPI{}, zap.NewNop())
	ctx := context.Background()

	best, err := s.Bestsellers(ctx)
	require.NoError(t, err)
	assert.True(t, best[0].IsBestseller)

	essences, err := s.Essences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lavanda", essences[0].Name)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Velas", categories[0].Name)

	states, err := s.States(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SP", states[0].Value)

	_, err = NewService(&mockAPI{err: errors.New("down")}, zap.NewNop()).States(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
