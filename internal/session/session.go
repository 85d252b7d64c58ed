package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/auth"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cache"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cart"
	"github.com/bruno-romeu/frontend-ecommerce/internal/catalog"
	"github.com/bruno-romeu/frontend-ecommerce/internal/checkout"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/events"
	"github.com/bruno-romeu/frontend-ecommerce/internal/orders"
	"github.com/bruno-romeu/frontend-ecommerce/internal/profile"
)

// AddressBook lists the shopper's saved delivery addresses.
type AddressBook interface {
	Addresses(ctx context.Context) ([]domain.Address, error)
}

// Session is the application state of one shopper: an upstream client with
// its own cookies and token, and the stores built on top of it.
type Session struct {
	ID        string
	Auth      *auth.Store
	Cart      *cart.Store
	Summary   *checkout.Summary
	Checkout  *checkout.Orchestrator
	Catalog   *catalog.Service
	Orders    *orders.Service
	Profile   *profile.Service
	Addresses AddressBook

	cache    cache.SessionCache
	log      *zap.Logger
	initOnce sync.Once
	lastSeen atomic.Int64
}

// Init hydrates identity, cart and checkout choices on first use.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.Auth.Init(ctx)
		s.Cart.Fetch(ctx)
		s.Summary.Load(ctx)
	})
}

func (s *Session) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.Cart.Fetch(ctx)
	return user, nil
}

// Logout ends the shopper's identity and drops everything tied to it.
func (s *Session) Logout(ctx context.Context) {
	s.Auth.Logout(ctx)
	s.Cart.Reset()
	s.Summary.Clear(ctx)
}

// Expire drops the session's cached checkout state. Called once the session
// leaves the registry.
func (s *Session) Expire(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx, s.ID); err != nil && s.log != nil {
		s.log.Warn("clear session cache failed", zap.Error(err))
	}
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Builder assembles sessions from shared infrastructure.
type Builder struct {
	APIBaseURL string
	Timeout    time.Duration
	Transport  http.RoundTripper
	Breaker    *apiclient.Breaker
	Cache      cache.SessionCache
	Publisher  events.Publisher
	Logger     *zap.Logger
}

func (b Builder) Build(id string) (*Session, error) {
	log := b.Logger.With(zap.String("session_id", id))

	client, err := apiclient.New(apiclient.Options{
		BaseURL:   b.APIBaseURL,
		Timeout:   b.Timeout,
		Transport: b.Transport,
		Breaker:   b.Breaker,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	publisher := b.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}

	authStore := auth.NewStore(client, b.Cache, id, log)
	cartStore := cart.NewStore(client, authStore, log)
	summary := checkout.NewSummary(client, cartStore, b.Cache, id, log)

	client.OnSessionExpired(func() {
		log.Info("api session expired")
		authStore.Expire()
		cartStore.Reset()
	})

	return &Session{
		ID:        id,
		Auth:      authStore,
		Cart:      cartStore,
		Summary:   summary,
		Checkout:  checkout.NewOrchestrator(client, summary, publisher, id, log),
		Catalog:   catalog.NewService(client, log),
		Orders:    orders.NewService(client, log),
		Profile:   profile.NewService(client, log),
		Addresses: client,
		cache:     b.Cache,
		log:       log,
	}, nil
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
