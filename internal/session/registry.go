// Package session keeps one set of stores per browser session: a backend
// client with its own cookie jar, the cart store, the admin session and at
// most one checkout in progress.
package session

import (
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/admin"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	CallTimeout     time.Duration
	RatePerSecond   float64
	RateBurst       int
}

// ClientFactory builds a fresh backend client. Each session gets its own so
// backend cookies never leak between browsers.
type ClientFactory func() (*client.Client, error)

type Bundle struct {
	ID      string
	Client  *client.Client
	Cart    *cart.Store
	Admin   *admin.Session
	Console *admin.Console
	Limiter *rate.Limiter

	mu       sync.Mutex
	checkout *checkout.Flow
	lastSeen time.Time
}

// Checkout returns the flow in progress, or nil.
func (b *Bundle) Checkout() *checkout.Flow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkout
}

// StartCheckout replaces any earlier flow, which is discarded.
func (b *Bundle) StartCheckout(f *checkout.Flow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.checkout != nil && b.checkout != f {
		b.checkout.Discard()
	}
	b.checkout = f
}

func (b *Bundle) DiscardCheckout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.checkout != nil {
		b.checkout.Discard()
		b.checkout = nil
	}
}

func (b *Bundle) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *Bundle) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

type Registry struct {
	cfg       Config
	newClient ClientFactory
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Bundle

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewRegistry(cfg Config, newClient ClientFactory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	r := &Registry{
		cfg:         cfg,
		newClient:   newClient,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*Bundle),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()
	return r
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Bundle, bool) {
	r.mu.RLock()
	b, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		b.touch(r.now())
	}
	return b, ok
}

// Create builds a new session with a random id.
func (r *Registry) Create() (*Bundle, error) {
	c, err := r.newClient()
	if err != nil {
		return nil, err
	}

	var opts []cart.Option
	if r.cfg.CallTimeout > 0 {
		opts = append(opts, cart.WithTimeout(r.cfg.CallTimeout))
	}
	id := uuid.NewString()
	log := r.logger.With(zap.String("session", id))
	adminSession := admin.NewSession(c, log)
	b := &Bundle{
		ID:       id,
		Client:   c,
		Cart:     cart.NewStore(c, log, opts...),
		Admin:    adminSession,
		Console:  admin.NewConsole(adminSession, c),
		Limiter:  rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), r.cfg.RateBurst),
		lastSeen: r.now(),
	}

	r.mu.Lock()
	r.sessions[id] = b
	r.mu.Unlock()
	r.logger.Debug("session created", zap.String("session", id))
	return b, nil
}

// GetOrCreate resolves the cookie value to a session, starting a new one when
// the id is unknown or expired. created tells the caller to set the cookie.
func (r *Registry) GetOrCreate(id string) (b *Bundle, created bool, err error) {
	if id != "" {
		if b, ok := r.Get(id); ok {
			return b, false, nil
		}
	}
	b, err = r.Create()
	return b, err == nil, err
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

// expireIdle drops sessions unused for longer than the idle TTL.
func (r *Registry) expireIdle() {
	now := r.now()

	r.mu.Lock()
	var expired []*Bundle
	for id, b := range r.sessions {
		if b.idleSince(now) > r.cfg.IdleTTL {
			expired = append(expired, b)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, b := range expired {
		b.DiscardCheckout()
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
}

// Close stops the background cleanup and waits for it to finish.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopCleanup)
	})
	r.wg.Wait()
	return nil
}
