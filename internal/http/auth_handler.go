package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type AuthHandler struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewAuthHandler(timeout time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{timeout: timeout, log: log}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequestDTO struct {
	Email string `json:"email"`
}

type TokenRequestDTO struct {
	Token string `json:"token"`
}

// SessionDTO is what the header and nav need on every page.
type SessionDTO struct {
	Authenticated     bool            `json:"authenticated"`
	User              *domain.User    `json:"user"`
	CartItemCount     int             `json:"cart_item_count"`
	CartSubtotal      decimal.Decimal `json:"cart_subtotal"`
	RegistrationEmail string          `json:"registration_email,omitempty"`
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, h.sessionDTO(ctx, r))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "Informe email e senha.")
		return
	}

	if _, err := currentSession(r).Login(ctx, req.Email, req.Password); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionDTO(ctx, r))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := currentSession(r).Auth.Register(ctx, req); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusCreated, EmailRequestDTO{Email: req.Email})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	currentSession(r).Logout(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req EmailRequestDTO
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	if err := currentSession(r).Auth.ResendVerification(ctx, req.Email); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req TokenRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "Token de verificação ausente.")
		return
	}

	if err := currentSession(r).Auth.VerifyEmail(ctx, req.Token); err != nil {
		respondErr(w, logger.WithContext(ctx, h.log), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) sessionDTO(ctx context.Context, r *http.Request) SessionDTO {
	s := currentSession(r)
	user := s.Auth.User()
	dto := SessionDTO{
		Authenticated: user != nil,
		User:          user,
		CartItemCount: s.Cart.ItemCount(),
		CartSubtotal:  s.Cart.Subtotal(),
	}
	if user == nil {
		dto.RegistrationEmail = s.Auth.RegistrationEmail(ctx)
	}
	return dto
}
