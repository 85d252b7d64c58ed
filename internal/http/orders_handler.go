package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type OrdersHandler struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{timeout: timeout, log: log}
}

type CancelResponseDTO struct {
	ID     int64              `json:"id"`
	Status domain.OrderStatus `json:"status"`
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := domain.OrderStatus(r.URL.Query().Get("status"))
	history, err := currentSession(r).Orders.List(ctx, status)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "id must be a positive integer")
		return
	}

	status, err := currentSession(r).Orders.Cancel(ctx, orderID)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, CancelResponseDTO{ID: orderID, Status: status})
}
