package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
)

type fakeAPI struct {
	mux       *http.ServeMux
	refreshes atomic.Int32
	hits      atomic.Int32
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	return newFakeAPIWithBreaker(t, nil)
}

func newFakeAPIWithBreaker(t *testing.T, breaker *Breaker) (*fakeAPI, *Client) {
	f := &fakeAPI{mux: http.NewServeMux()}
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	client, err := New(Options{
		BaseURL: srv.URL + "/api/",
		Timeout: 2 * time.Second,
		Breaker: breaker,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	return f, client
}

func (f *fakeAPI) refreshWith(status int, body string) {
	f.mux.HandleFunc("/api/auth/jwt/refresh/", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.ErrorContains(t, err, "base URL")
}

func TestDo_RefreshesOnceAndReplays(t *testing.T) {
	f, client := newFakeAPI(t)
	f.refreshWith(http.StatusOK, `{"access":"fresh-token"}`)
	f.mux.HandleFunc("/api/cart/my-cart/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"total":"0.00"}`))
	})

	cart, err := client.Cart(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int32(1), f.refreshes.Load())
	assert.Equal(t, int32(2), f.hits.Load())
	assert.Equal(t, "fresh-token", client.Token())
}

func TestDo_SecondUnauthorizedIsNotRetried(t *testing.T) {
	f, client := newFakeAPI(t)
	f.refreshWith(http.StatusOK, `{"access":"still-bad"}`)
	f.mux.HandleFunc("/api/cart/my-cart/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token inválido"}`))
	})

	_, err := client.Cart(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, int32(1), f.refreshes.Load())
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestDo_RefreshFailureExpiresSession(t *testing.T) {
	f, client := newFakeAPI(t)
	client.SetToken("stale")
	f.refreshWith(http.StatusUnauthorized, `{"detail":"refresh expired"}`)
	f.mux.HandleFunc("/api/auth/users/me/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, int32(1), f.refreshes.Load())
	assert.Equal(t, int32(1), f.hits.Load())
	assert.Empty(t, client.Token())
}

func TestDo_RefreshFailureNotifiesListener(t *testing.T) {
	f, client := newFakeAPI(t)
	client.SetToken("stale")
	f.refreshWith(http.StatusUnauthorized, `{"detail":"refresh expired"}`)
	f.mux.HandleFunc("/api/cart/items/add/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	err := client.AddCartItem(context.Background(), 1, 1, nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), expired.Load())
	assert.Empty(t, client.Token())
}

func TestDo_SuccessfulRefreshDoesNotNotifyListener(t *testing.T) {
	f, client := newFakeAPI(t)
	f.refreshWith(http.StatusOK, `{"access":"fresh-token"}`)
	f.mux.HandleFunc("/api/cart/my-cart/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	_, err := client.Cart(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired.Load())
}

func TestDo_LoginIsNeverRefreshed(t *testing.T) {
	f, client := newFakeAPI(t)
	f.refreshWith(http.StatusOK, `{"access":"x"}`)
	f.mux.HandleFunc("/api/client/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"No active account found"}`))
	})

	err := client.Login(context.Background(), "a@b.com", "wrong")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "No active account found", apiErr.Detail)
	assert.Equal(t, int32(0), f.refreshes.Load())
}

func TestLogin_StoresAccessToken(t *testing.T) {
	f, client := newFakeAPI(t)
	f.mux.HandleFunc("/api/client/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access":"abc"}`))
	})

	require.NoError(t, client.Login(context.Background(), "a@b.com", "secret"))
	assert.Equal(t, "abc", client.Token())
}

func TestDo_BreakerOpensOnServerErrors(t *testing.T) {
	breaker := NewBreaker(2, time.Minute, zap.NewNop())
	f, client := newFakeAPIWithBreaker(t, breaker)
	f.mux.HandleFunc("/api/product/bestsellers/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 2; i++ {
		_, err := client.Bestsellers(context.Background())
		assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	}
	_, err := client.Bestsellers(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestDo_CancelledRequestsLeaveBreakerClosed(t *testing.T) {
	breaker := NewBreaker(2, time.Minute, zap.NewNop())
	f, client := newFakeAPIWithBreaker(t, breaker)
	f.mux.HandleFunc("/api/product/bestsellers/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := client.Bestsellers(ctx)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	_, err := client.Bestsellers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestProfile(t *testing.T) {
	f, client := newFakeAPI(t)
	f.mux.HandleFunc("/api/client/profile/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"first_name":"Ana","last_name":"Souza","email":"ana@example.com","cpf":"123.456.789-00","phone_number":"11999990000"}`))
	})

	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, "Souza", user.LastName)
	assert.Equal(t, "123.456.789-00", user.CPF)
	assert.Empty(t, user.Birthday)
}

func TestUpdateAddress_PatchesWireFields(t *testing.T) {
	f, client := newFakeAPI(t)
	var got map[string]any
	f.mux.HandleFunc("/api/client/addresses/12/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":12,"street":"Rua Augusta","number":"500","neighborhood":"Consolação","city":"São Paulo","state":"SP","zipcode":"01305000"}`))
	})

	updated, err := client.UpdateAddress(context.Background(), 12, domain.Address{
		Street:       "Rua Augusta",
		Number:       "500",
		Neighborhood: "Consolação",
		City:         "São Paulo",
		State:        "SP",
		PostalCode:   "01305000",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated.ID)
	assert.Equal(t, "01305000", updated.PostalCode)
	assert.Equal(t, "01305000", got["zipcode"])
	assert.NotContains(t, got, "postal_code")
}

func TestUpdateAddress_NotFound(t *testing.T) {
	f, client := newFakeAPI(t)
	f.mux.HandleFunc("/api/client/addresses/99/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Não encontrado."}`))
	})

	_, err := client.UpdateAddress(context.Background(), 99, domain.Address{Street: "x"})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestAPIError_FieldMessage(t *testing.T) {
	apiErr := newAPIError(http.MethodPost, "cart/items/add/", http.StatusBadRequest,
		[]byte(`{"customizations":{"3":["Texto obrigatório."],"5":["Máximo 20 caracteres."]},"quantity":"inválido","error":"dados inválidos"}`))

	assert.Equal(t, "Texto obrigatório. Máximo 20 caracteres.", apiErr.FieldMessage("customizations"))
	assert.Equal(t, "inválido", apiErr.FieldMessage("quantity"))
	assert.Equal(t, "", apiErr.FieldMessage("essence"))
	assert.Equal(t, "dados inválidos", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "400 dados inválidos")
}

func TestAPIError_NonJSONBody(t *testing.T) {
	apiErr := newAPIError(http.MethodGet, "x/", http.StatusInternalServerError, []byte("<html>boom</html>"))
	assert.Contains(t, apiErr.Error(), "Internal Server Error")
	assert.Nil(t, apiErr.Fields)
}

func TestRefreshable(t *testing.T) {
	assert.False(t, refreshable("/client/auth/jwt/create/"))
	assert.False(t, refreshable("auth/jwt/refresh/"))
	assert.True(t, refreshable("cart/my-cart/"))
}
