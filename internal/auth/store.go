package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cache"
	"github.com/bruno-romeu/frontend-ecommerce/internal/domain"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

type API interface {
	Me(ctx context.Context) (*domain.User, error)
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, req domain.RegisterRequest) error
	Logout(ctx context.Context) error
	ResendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error
}

// Store tracks who the session belongs to.
type Store struct {
	api       API
	cache     cache.SessionCache
	sessionID string
	log       *zap.Logger

	initOnce sync.Once

	mu   sync.RWMutex
	user *domain.User
}

func NewStore(api API, c cache.SessionCache, sessionID string, log *zap.Logger) *Store {
	return &Store{
		api:       api,
		cache:     c,
		sessionID: sessionID,
		log:       log,
	}
}

// Init resolves the current identity once per session.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.identify(ctx)
	})
}

func (s *Store) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	log := logger.WithContext(ctx, s.log)

	if err := s.api.Login(ctx, email, password); err != nil {
		apiErr, ok := apiclient.AsAPIError(err)
		if ok && apiErr.Status == http.StatusForbidden {
			s.rememberEmail(ctx, email)
			msg := msgEmailNotVerified
			if apiErr.Message != "" {
				msg = apiErr.Message
			}
			log.Info("login blocked, email not verified")
			return nil, &Error{Message: msg, kind: ErrEmailNotVerified}
		}

		log.Warn("login failed", zap.Error(err))
		msg := msgInvalidCredentials
		if ok && apiErr.Detail != "" {
			msg = apiErr.Detail
		}
		return nil, &Error{Message: msg, kind: ErrInvalidCredentials}
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		log.Error("identity lookup after login failed", zap.Error(err))
		return nil, &Error{Message: msgInvalidCredentials, kind: ErrInvalidCredentials}
	}

	s.setUser(user)
	return user, nil
}

func (s *Store) Register(ctx context.Context, req domain.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.api.Register(ctx, req); err != nil {
		logger.WithContext(ctx, s.log).Warn("registration failed", zap.Error(err))
		e := &Error{Message: msgRegistration, kind: ErrRegistration}
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			if len(apiErr.Fields) > 0 {
				e.Fields = make(map[string]string, len(apiErr.Fields))
				for field := range apiErr.Fields {
					e.Fields[field] = apiErr.FieldMessage(field)
				}
			}
			if apiErr.Detail != "" {
				e.Message = apiErr.Detail
			}
		}
		return e
	}

	s.rememberEmail(ctx, req.Email)
	return nil
}

// RegistrationEmail is the address last used to register or to attempt an
// unverified login.
func (s *Store) RegistrationEmail(ctx context.Context) string {
	var email string
	if err := s.cache.Get(ctx, s.sessionID, cache.KeyRegistrationEmail, &email); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithContext(ctx, s.log).Warn("read registration email failed", zap.Error(err))
		}
		return ""
	}
	return email
}

// ResendVerification falls back to the remembered registration email.
func (s *Store) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		email = s.RegistrationEmail(ctx)
	}
	if email == "" {
		return &Error{Message: msgEmailRequired, kind: ErrEmailRequired}
	}

	if err := s.api.ResendVerification(ctx, email); err != nil {
		logger.WithContext(ctx, s.log).Warn("resend verification failed", zap.Error(err))
		msg := msgResendFailed
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &Error{Message: msg, kind: ErrVerification}
	}
	return nil
}

func (s *Store) VerifyEmail(ctx context.Context, token string) error {
	if err := s.api.VerifyEmail(ctx, token); err != nil {
		logger.WithContext(ctx, s.log).Warn("verify email failed", zap.Error(err))
		msg := msgVerification
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &Error{Message: msg, kind: ErrVerification}
	}

	if err := s.cache.Delete(ctx, s.sessionID, cache.KeyRegistrationEmail); err != nil {
		logger.WithContext(ctx, s.log).Warn("forget registration email failed", zap.Error(err))
	}
	return nil
}

// Logout always ends the local session, whatever the server says.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("logout request failed", zap.Error(err))
	}
	s.setUser(nil)
}

// Expire forgets the user without calling the server. Used once the API
// session can no longer be refreshed.
func (s *Store) Expire() {
	s.setUser(nil)
}

func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Store) identify(ctx context.Context) {
	user, err := s.api.Me(ctx)
	if err != nil {
		log := logger.WithContext(ctx, s.log)
		if apiclient.StatusOf(err) == http.StatusUnauthorized {
			log.Debug("anonymous session")
		} else {
			log.Error("identity lookup failed", zap.Error(err))
		}
		s.setUser(nil)
		return
	}
	s.setUser(user)
}

func (s *Store) setUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Store) rememberEmail(ctx context.Context, email string) {
	if err := s.cache.Set(ctx, s.sessionID, cache.KeyRegistrationEmail, email); err != nil {
		logger.WithContext(ctx, s.log).Warn("remember registration email failed", zap.Error(err))
	}
}
