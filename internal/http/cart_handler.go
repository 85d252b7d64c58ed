package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/cart"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type CartHandler struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{timeout: timeout, log: log}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store := currentSession(r).Cart
	store.Fetch(ctx)
	respondJSON(w, http.StatusOK, store.Snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req cart.AddRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	store := currentSession(r).Cart
	if err := store.Add(ctx, req); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusCreated, store.Snapshot())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	store := currentSession(r).Cart
	if err := store.UpdateQuantity(ctx, lineID, req.Quantity); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, store.Snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	store := currentSession(r).Cart
	if err := store.Remove(ctx, lineID); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, store.Snapshot())
}

func lineIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
