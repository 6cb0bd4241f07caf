// Package admin tracks the signed-in admin for one browser session and gates
// the admin console on it.
package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("admin authentication required")
	ErrAuthPending      = errors.New("admin authentication check still running")
)

// Error is a failed login with the message to show on the login form.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

type AuthBackend interface {
	CheckAuth(ctx context.Context) (client.AuthStatus, error)
	Login(ctx context.Context, username, password string) (*domain.Admin, error)
	Logout(ctx context.Context) error
	CreateDefaultAdmin(ctx context.Context) (*client.DefaultAdminCredentials, error)
}

type Decision int

const (
	// Wait means the first auth check has not settled; render nothing yet.
	Wait Decision = iota
	Allow
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect"
	default:
		return "wait"
	}
}

type Session struct {
	backend AuthBackend
	logger  *zap.Logger

	mu            sync.RWMutex
	admin         *domain.Admin
	authenticated bool
	loading       bool
}

// NewSession starts in the loading state; call CheckAuthStatus to settle it.
func NewSession(backend AuthBackend, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{backend: backend, logger: logger, loading: true}
}

func (s *Session) Admin() *domain.Admin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin == nil {
		return nil
	}
	a := *s.admin
	return &a
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Guard decides what an admin console view should do right now.
func (s *Session) Guard() Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.loading:
		return Wait
	case s.authenticated:
		return Allow
	default:
		return RedirectToLogin
	}
}

// Require turns the guard decision into an error for data calls.
func (s *Session) Require() error {
	switch s.Guard() {
	case Allow:
		return nil
	case Wait:
		return ErrAuthPending
	default:
		return ErrNotAuthenticated
	}
}

// CheckAuthStatus asks the backend whether the session cookie belongs to an
// admin. It never fails; errors are logged and the previous state is kept.
func (s *Session) CheckAuthStatus(ctx context.Context) {
	status, err := s.backend.CheckAuth(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.logger.Warn("admin auth check failed", zap.Error(err))
		return
	}
	if status.Authenticated && status.Admin != nil {
		s.admin = status.Admin
		s.authenticated = true
		return
	}
	s.admin = nil
	s.authenticated = false
}

func (s *Session) Login(ctx context.Context, username, password string) (*domain.Admin, error) {
	admin, err := s.backend.Login(ctx, username, password)
	if err != nil {
		msg := "Network error occurred"
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Error()
		}
		return nil, &Error{Message: msg, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	s.authenticated = true
	s.loading = false
	a := *admin
	return &a, nil
}

// Logout always leaves the session signed out locally, whatever the backend
// answers.
func (s *Session) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("admin logout call failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = nil
	s.authenticated = false
	s.loading = false
}

// CreateDefaultAdmin bootstraps the first admin account on an empty backend.
func (s *Session) CreateDefaultAdmin(ctx context.Context) (*client.DefaultAdminCredentials, error) {
	creds, err := s.backend.CreateDefaultAdmin(ctx)
	if err != nil {
		msg := "Network error occurred"
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Error()
		}
		return nil, &Error{Message: msg, Err: err}
	}
	return creds, nil
}
