package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	sessionKey
)

// RequestIDMiddleware adds a unique request ID to each request and forwards
// it to the backend calls made while serving it.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = client.WithRequestID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", getRequestID(r.Context())),
			)
		})
	}
}

// SessionMiddleware resolves the session cookie to a session bundle, issuing
// a new cookie when the browser has none or its session expired.
func SessionMiddleware(reg *session.Registry, cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookieName); err == nil {
				id = c.Value
			}

			b, created, err := reg.GetOrCreate(id)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "session_error", "could not start session")
				return
			}
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    b.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey, b)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) *session.Bundle {
	b, _ := ctx.Value(sessionKey).(*session.Bundle)
	return b
}

// RateLimitMiddleware throttles mutating requests per session. Reads pass.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if b := sessionFrom(r.Context()); b != nil && !b.Limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets a request through only for a signed-in admin. A session
// whose first auth check has not run yet is checked here instead of being
// turned away.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := sessionFrom(r.Context())
		if b.Admin.IsLoading() {
			b.Admin.CheckAuthStatus(r.Context())
		}
		if err := b.Admin.Require(); err != nil {
			handleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
