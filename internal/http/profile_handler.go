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

type ProfileHandler struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewProfileHandler(timeout time.Duration, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{timeout: timeout, log: log}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := currentSession(r).Profile.Load(ctx)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ProfileHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "id must be a positive integer")
		return
	}

	var req domain.Address
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := currentSession(r).Profile.UpdateAddress(ctx, id, req)
	if err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
