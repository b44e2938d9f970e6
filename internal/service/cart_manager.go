package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"decostore-rest-api/internal/metrics"
	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/proxy"
	"decostore-rest-api/internal/repository"
	"decostore-rest-api/pkg/uid"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrItemNotFound is returned by lookups of an unknown item reference.
var ErrItemNotFound = errors.New("item not found in cart")

// CartDeps are the collaborators of a CartManager.
type CartDeps struct {
	Backend CartBackend
	Mirror  repository.MirrorRepository // optional
	LTM     pricing.LTMConfig
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type cartListener struct {
	id int
	fn func(CartEvent)
}

// CartManager owns the cart of one client. Mutations are serialized and
// reconciled with the remote backend; queries read an in-memory snapshot.
type CartManager struct {
	clientID string
	backend  CartBackend
	mirror   *cartMirror
	ltm      pricing.LTMConfig
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
	validate *validator.Validate

	// opMu is held across remote calls; stateMu only around memory access.
	opMu        sync.Mutex
	stateMu     sync.RWMutex
	session     model.CartSession
	initialized bool

	syncing atomic.Bool

	listenersMu  sync.Mutex
	listeners    []cartListener
	nextListener int
}

// NewCartManager creates a manager for clientID. Call Init before use.
func NewCartManager(clientID string, deps CartDeps) *CartManager {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"component": "cart", "client_id": clientID})

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ltm := deps.LTM
	if ltm.Threshold <= 0 {
		ltm = pricing.DefaultLTM()
	}

	return &CartManager{
		clientID: clientID,
		backend:  deps.Backend,
		mirror:   newCartMirror(deps.Mirror, clientID, logger),
		ltm:      ltm,
		logger:   logger,
		metrics:  deps.Metrics,
		now:      now,
		validate: validator.New(),
	}
}

// ClientID returns the client the manager belongs to.
func (m *CartManager) ClientID() string {
	return m.clientID
}

// Init loads the mirrored cart, resolves the session against the backend and
// runs a first Sync, whose result it returns. Backend failures degrade to a
// local session and are never returned as errors.
func (m *CartManager) Init(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ev := func() CartEvent {
		m.opMu.Lock()
		defer m.opMu.Unlock()

		stored := m.mirror.load(ctx)
		m.setSession(stored)

		m.resolveSession(ctx, stored)

		m.stateMu.Lock()
		m.initialized = true
		m.stateMu.Unlock()

		return m.event(OpInit)
	}()
	m.metrics.ObserveCartOperation(OpInit, "success")
	m.emit(ev)

	res := m.Sync(ctx)
	if !res.Success || res.Error != "" {
		m.logger.WithField("error", res.Error).Warn("initial cart sync incomplete")
	}
	return res, nil
}

func (m *CartManager) resolveSession(ctx context.Context, stored model.CartSession) {
	log := m.logger.WithField("stored_session", stored.SessionID)

	if stored.SessionID != "" && !stored.IsLocal() {
		active, err := m.backend.SessionActive(ctx, stored.SessionID)
		switch {
		case err != nil:
			log.WithError(err).Warn("failed to verify cart session")
		case active:
			items, err := m.backend.ListItems(ctx, stored.SessionID)
			if err != nil {
				log.WithError(err).Warn("failed to fetch cart items, keeping mirrored cart")
				return
			}
			now := m.now()
			m.commit(ctx, func(s *model.CartSession) {
				s.Items = items
				s.LastSyncedAt = &now
			})
			return
		default:
			log.Info("stored cart session is no longer active")
		}
	}

	sessionID, err := m.backend.CreateSession(ctx)
	if err != nil {
		if stored.IsLocal() {
			log.WithError(err).Warn("failed to create cart session, staying local")
			return
		}
		sessionID = uid.Prefixed(model.LocalSessionPrefix)
		log.WithError(err).WithField("session_id", sessionID).Warn("failed to create cart session, using local session")
		m.commit(ctx, func(s *model.CartSession) {
			s.SessionID = sessionID
		})
		return
	}

	// Items carried over from another session must be pushed again.
	m.commit(ctx, func(s *model.CartSession) {
		s.SessionID = sessionID
		s.LastSyncedAt = nil
		for i := range s.Items {
			s.Items[i].ID = ""
			for j := range s.Items[i].Sizes {
				s.Items[i].Sizes[j].ID = ""
			}
		}
	})
	log.WithField("session_id", sessionID).Info("created cart session")
}

// Close persists the cart and drops every listener.
func (m *CartManager) Close() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.RLock()
	initialized := m.initialized
	m.stateMu.RUnlock()
	if initialized {
		m.mirror.save(context.Background(), m.snapshot())
	}

	m.listenersMu.Lock()
	m.listeners = nil
	m.listenersMu.Unlock()
	return nil
}

// Clear drops the cart from memory and the mirror. The next Init starts over.
func (m *CartManager) Clear(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.Lock()
	m.session = model.CartSession{}
	m.initialized = false
	m.stateMu.Unlock()
	return m.mirror.clear(ctx)
}

// OnCartChanged registers fn for every cart change and returns a function
// that unregisters it.
func (m *CartManager) OnCartChanged(fn func(CartEvent)) func() {
	m.listenersMu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners = append(m.listeners, cartListener{id: id, fn: fn})
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			defer m.listenersMu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *CartManager) emit(ev CartEvent) {
	m.listenersMu.Lock()
	listeners := append([]cartListener(nil), m.listeners...)
	m.listenersMu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.WithField("panic", r).Error("cart listener panicked")
				}
			}()
			l.fn(ev)
		}()
	}
}

func (m *CartManager) event(op string) CartEvent {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return CartEvent{
		ClientID:  m.clientID,
		SessionID: m.session.SessionID,
		Operation: op,
		Items:     model.CloneItems(m.session.Items),
		Count:     activeCount(m.session.Items),
		Total:     activeTotal(m.session.Items),
		At:        m.now(),
	}
}

// run executes a mutation under the operation lock. When fn reports a change
// one event is emitted after the lock is released.
func (m *CartManager) run(op string, fn func() (Result, bool)) Result {
	res, ev := func() (Result, *CartEvent) {
		m.opMu.Lock()
		defer m.opMu.Unlock()

		m.stateMu.RLock()
		initialized := m.initialized
		m.stateMu.RUnlock()
		if !initialized {
			return fail(CodeValidation, MsgCartNotInitialized), nil
		}

		res, changed := fn()
		if !changed {
			return res, nil
		}
		ev := m.event(op)
		return res, &ev
	}()

	m.metrics.ObserveCartOperation(op, res.Outcome())
	if !res.Success {
		m.logger.WithFields(logrus.Fields{"operation": op, "code": res.Code}).Info(res.Error)
	}
	if ev != nil {
		m.emit(*ev)
	}
	return res
}

// State helpers. Callers of commit must hold opMu.

func (m *CartManager) snapshot() model.CartSession {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return cloneSession(m.session)
}

func (m *CartManager) setSession(s model.CartSession) {
	m.stateMu.Lock()
	m.session = cloneSession(s)
	m.stateMu.Unlock()
}

// commit applies fn to the in-memory session and writes the result to the mirror.
func (m *CartManager) commit(ctx context.Context, fn func(s *model.CartSession)) {
	m.stateMu.Lock()
	fn(&m.session)
	snap := cloneSession(m.session)
	m.stateMu.Unlock()

	m.mirror.save(ctx, snap)
}

func cloneSession(s model.CartSession) model.CartSession {
	out := model.CartSession{SessionID: s.SessionID, Items: model.CloneItems(s.Items)}
	if s.LastSyncedAt != nil {
		t := *s.LastSyncedAt
		out.LastSyncedAt = &t
	}
	return out
}

func findItem(items []model.CartItem, ref string) int {
	for i := range items {
		if items[i].Matches(ref) {
			return i
		}
	}
	return -1
}

// Queries

// Session returns a copy of the whole cart session.
func (m *CartManager) Session() model.CartSession {
	return m.snapshot()
}

// Item returns a copy of the item addressed by ref.
func (m *CartManager) Item(ref string) (model.CartItem, error) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	idx := findItem(m.session.Items, ref)
	if idx < 0 {
		return model.CartItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, ref)
	}
	return m.session.Items[idx].Clone(), nil
}

// GetCartItems returns copies of the items, filtered by status when given.
func (m *CartManager) GetCartItems(status *model.ItemStatus) []model.CartItem {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	out := make([]model.CartItem, 0, len(m.session.Items))
	for _, item := range m.session.Items {
		if status != nil && item.Status != *status {
			continue
		}
		out = append(out, item.Clone())
	}
	return out
}

// GetCartCount sums the quantities of active items.
func (m *CartManager) GetCartCount() int {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return activeCount(m.session.Items)
}

// GetCartTotal sums active line totals, rounded to cents.
func (m *CartManager) GetCartTotal() decimal.Decimal {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return activeTotal(m.session.Items)
}

// HasDecorationType reports whether an active item uses t.
func (m *CartManager) HasDecorationType(t model.DecorationType) bool {
	for _, dt := range m.GetDecorationTypesInCart() {
		if dt == t {
			return true
		}
	}
	return false
}

// GetDecorationTypesInCart lists the decoration types of active items in
// the order they first appear.
func (m *CartManager) GetDecorationTypesInCart() []model.DecorationType {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return activeTypes(m.session.Items)
}

// MixedDecorationWarning returns the warning shown when t differs from the
// decoration type already in the cart, or "".
func (m *CartManager) MixedDecorationWarning(t model.DecorationType) string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return mixedWarning(m.session.Items, t)
}

func activeCount(items []model.CartItem) int {
	n := 0
	for i := range items {
		if items[i].Status == model.StatusActive {
			n += items[i].TotalQuantity()
		}
	}
	return n
}

func activeTotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		if items[i].Status == model.StatusActive {
			total = total.Add(items[i].Total())
		}
	}
	return total.Round(2)
}

func activeTypes(items []model.CartItem) []model.DecorationType {
	var out []model.DecorationType
	seen := make(map[model.DecorationType]bool)
	for _, item := range items {
		if item.Status != model.StatusActive || seen[item.DecorationType] {
			continue
		}
		seen[item.DecorationType] = true
		out = append(out, item.DecorationType)
	}
	return out
}

func mixedWarning(items []model.CartItem, t model.DecorationType) string {
	var others []string
	for _, dt := range activeTypes(items) {
		if dt != t {
			others = append(others, string(dt))
		}
	}
	if len(others) == 0 {
		return ""
	}
	return fmt.Sprintf("Your cart contains items with a different decoration type (%s). Mixing decoration types may create separate production runs.",
		strings.Join(others, ", "))
}

// remoteFailure converts a backend error into a failed Result.
func remoteFailure(err error) Result {
	return fail(CodeRemote, proxy.UserMessage(err))
}
