package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRegistryClosed is returned by Get after Close.
var ErrRegistryClosed = errors.New("cart registry closed")

type cartEntry struct {
	once sync.Once
	mgr  *CartManager
	err  error
}

// CartRegistry owns one CartManager per client id. Managers are created and
// initialized on first use.
type CartRegistry struct {
	deps   CartDeps
	logger logrus.FieldLogger

	mu          sync.Mutex
	carts       map[string]*cartEntry
	subscribers []func(CartEvent)
	closed      bool

	initTimeout time.Duration
}

// NewCartRegistry creates an empty registry sharing deps across managers.
func NewCartRegistry(deps CartDeps) *CartRegistry {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CartRegistry{
		deps:        deps,
		logger:      logger.WithField("component", "cart_registry"),
		carts:       make(map[string]*cartEntry),
		initTimeout: 30 * time.Second,
	}
}

// Subscribe attaches fn to the change events of every current and future cart.
func (r *CartRegistry) Subscribe(fn func(CartEvent)) {
	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	entries := make([]*cartEntry, 0, len(r.carts))
	for _, e := range r.carts {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.mgr.OnCartChanged(fn)
	}
}

// Get returns the initialized manager of clientID. Initialization outlives
// the caller's cancellation so a dropped request does not poison the entry.
func (r *CartRegistry) Get(ctx context.Context, clientID string) (*CartManager, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	e, ok := r.carts[clientID]
	if !ok {
		mgr := NewCartManager(clientID, r.deps)
		for _, fn := range r.subscribers {
			mgr.OnCartChanged(fn)
		}
		e = &cartEntry{mgr: mgr}
		r.carts[clientID] = e
		r.deps.Metrics.SetCartSessions(len(r.carts))
	}
	r.mu.Unlock()

	e.once.Do(func() {
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.initTimeout)
		defer cancel()
		_, e.err = e.mgr.Init(initCtx)
	})
	if e.err != nil {
		r.mu.Lock()
		if r.carts[clientID] == e {
			delete(r.carts, clientID)
			r.deps.Metrics.SetCartSessions(len(r.carts))
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.mgr, nil
}

// Evict closes and forgets the manager of clientID.
func (r *CartRegistry) Evict(clientID string) {
	r.mu.Lock()
	e, ok := r.carts[clientID]
	delete(r.carts, clientID)
	r.deps.Metrics.SetCartSessions(len(r.carts))
	r.mu.Unlock()

	if ok {
		if err := e.mgr.Close(); err != nil {
			r.logger.WithError(err).WithField("client_id", clientID).Warn("failed to close cart")
		}
	}
}

// Len returns the number of managers held.
func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Close closes every manager. Get fails afterwards.
func (r *CartRegistry) Close() error {
	r.mu.Lock()
	r.closed = true
	entries := r.carts
	r.carts = make(map[string]*cartEntry)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.mgr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.deps.Metrics.SetCartSessions(0)
	r.logger.WithField("carts", len(entries)).Info("cart registry closed")
	return errors.Join(errs...)
}
