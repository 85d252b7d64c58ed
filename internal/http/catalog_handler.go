package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/catalog"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type CatalogHandler struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewCatalogHandler(timeout time.Duration, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{timeout: timeout, log: log}
}

func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := currentSession(r).Catalog.Products(ctx, catalog.ParseFilter(r.URL.Query()))
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := currentSession(r).Catalog.Product(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := currentSession(r).Catalog.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Bestsellers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := currentSession(r).Catalog.Bestsellers(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Essences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	essences, err := currentSession(r).Catalog.Essences(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, essences)
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := currentSession(r).Catalog.Categories(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) States(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	states, err := currentSession(r).Catalog.States(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, states)
}
