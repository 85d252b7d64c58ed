package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/session"
)

type RouterConfig struct {
	Sessions       SessionResolver
	Signer         *session.Signer
	Postal         PostalLookup
	Logger         *zap.Logger
	RequestTimeout time.Duration
	MaxBodySize    int64
	CookieSecure   bool
}

// NewRouter mounts the shopper API under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.RequestTimeout, cfg.Logger)
	catalogHandler := NewCatalogHandler(cfg.RequestTimeout, cfg.Logger)
	cartHandler := NewCartHandler(cfg.RequestTimeout, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Postal, cfg.RequestTimeout, cfg.Logger)
	ordersHandler := NewOrdersHandler(cfg.RequestTimeout, cfg.Logger)
	profileHandler := NewProfileHandler(cfg.RequestTimeout, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Sessions, cfg.Signer, cfg.CookieSecure, cfg.Logger))

		r.Get("/session", authHandler.Session)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/verify-email", authHandler.VerifyEmail)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", catalogHandler.Products)
			r.Get("/products/{ref}", catalogHandler.Product)
			r.Get("/search", catalogHandler.Search)
			r.Get("/bestsellers", catalogHandler.Bestsellers)
			r.Get("/essences", catalogHandler.Essences)
			r.Get("/categories", catalogHandler.Categories)
			r.Get("/states", catalogHandler.States)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/summary", checkoutHandler.Summary)
			r.Post("/shipping/postal-code", checkoutHandler.SetPostalCode)
			r.Post("/shipping/quote", checkoutHandler.Quote)
			r.Post("/shipping/select", checkoutHandler.SelectShipping)
			r.Delete("/shipping", checkoutHandler.ResetShipping)
			r.Post("/coupon", checkoutHandler.ApplyCoupon)
			r.Delete("/coupon", checkoutHandler.RemoveCoupon)
			r.Get("/postal/{cep}", checkoutHandler.LookupPostalCode)
			r.Get("/outcome/{status}", checkoutHandler.Outcome)

			r.Group(func(r chi.Router) {
				r.Use(requireLogin)
				r.Get("/addresses", checkoutHandler.Addresses)
				r.Post("/address", checkoutHandler.SelectAddress)
				r.Post("/place-order", checkoutHandler.PlaceOrder)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireLogin)
			r.Get("/", ordersHandler.List)
			r.Patch("/{id}/cancel", ordersHandler.Cancel)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(requireLogin)
			r.Get("/", profileHandler.Get)
			r.Patch("/addresses/{id}", profileHandler.UpdateAddress)
		})
	})

	return r
}
