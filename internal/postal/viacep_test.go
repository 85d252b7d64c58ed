package postal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViaCEP(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second), &hits
}

func TestLookup_Success(t *testing.T) {
	c, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01310100/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
	})

	addr, err := c.Lookup(context.Background(), "01310-100")

	require.NoError(t, err)
	assert.Equal(t, Address{
		PostalCode:   "01310-100",
		Street:       "Avenida Paulista",
		Neighborhood: "Bela Vista",
		City:         "São Paulo",
		State:        "SP",
	}, addr)
}

func TestLookup_InvalidSkipsRequest(t *testing.T) {
	c, hits := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Lookup(context.Background(), "1234-56")

	assert.ErrorIs(t, err, ErrInvalidPostalCode)
	assert.Equal(t, int32(0), hits.Load())
}

func TestLookup_NotFound(t *testing.T) {
	for _, body := range []string{`{"erro":true}`, `{"erro":"true"}`} {
		c, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := c.Lookup(context.Background(), "99999999")
		assert.ErrorIs(t, err, ErrNotFound, body)
	}
}

func TestLookup_UpstreamError(t *testing.T) {
	c, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Lookup(context.Background(), "01310100")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
