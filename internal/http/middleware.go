package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
	"github.com/bruno-romeu/frontend-ecommerce/internal/session"
)

// SessionResolver finds or creates the session behind a verified id.
type SessionResolver interface {
	Resolve(id string) (*session.Session, bool, error)
}

// SessionMiddleware binds every request to a shopper session carried in a
// signed cookie. A missing or invalid cookie starts a new session.
func SessionMiddleware(sessions SessionResolver, signer *session.Signer, secure bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := logger.WithContext(r.Context(), log)

			var id string
			if c, err := r.Cookie(session.CookieName); err == nil {
				if id, err = signer.Verify(c.Value); err != nil {
					reqLog.Debug("discarding session cookie", zap.Error(err))
					id = ""
				}
			}

			s, created, err := sessions.Resolve(id)
			if err != nil {
				reqLog.Error("resolve session failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "internal_error", msgInternal)
				return
			}

			// re-signed on every request so the cookie slides with activity
			token, err := signer.Sign(s.ID)
			if err != nil {
				reqLog.Error("sign session failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "internal_error", msgInternal)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(signer.TTL().Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			if created {
				reqLog.Info("session started", zap.String("session_id", s.ID))
			}

			ctx := session.NewContext(r.Context(), s)
			s.Init(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.WithContext(r.Context(), log).Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// MaxBodySize caps request bodies at n bytes.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireLogin rejects anonymous sessions.
func requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok || !s.Auth.IsAuthenticated() {
			respondError(w, http.StatusUnauthorized, "unauthenticated", msgLoginRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentSession(r *http.Request) *session.Session {
	s, _ := session.FromContext(r.Context())
	return s
}
