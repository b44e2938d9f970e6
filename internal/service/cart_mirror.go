package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/repository"

	"github.com/sirupsen/logrus"
)

// MirrorKeys returns the mirror keys of a client: items, session, last sync.
func MirrorKeys(clientID string) (items, session, lastSync string) {
	prefix := "cart:" + clientID + ":"
	return prefix + "items", prefix + "session", prefix + "last_sync"
}

// cartMirror persists one client's cart under its well-known keys.
// A nil repository turns every call into a no-op.
type cartMirror struct {
	repo        repository.MirrorRepository
	itemsKey    string
	sessionKey  string
	lastSyncKey string
	logger      logrus.FieldLogger
}

func newCartMirror(repo repository.MirrorRepository, clientID string, logger logrus.FieldLogger) *cartMirror {
	items, session, lastSync := MirrorKeys(clientID)
	return &cartMirror{
		repo:        repo,
		itemsKey:    items,
		sessionKey:  session,
		lastSyncKey: lastSync,
		logger:      logger,
	}
}

// load reads the mirrored session. Unreadable entries are skipped.
func (m *cartMirror) load(ctx context.Context) model.CartSession {
	var s model.CartSession
	if m.repo == nil {
		return s
	}

	if raw := m.get(ctx, m.sessionKey); raw != nil {
		if err := json.Unmarshal(raw, &s.SessionID); err != nil {
			m.logger.WithError(err).Warn("discarding unreadable mirrored session id")
		}
	}
	if raw := m.get(ctx, m.itemsKey); raw != nil {
		if err := json.Unmarshal(raw, &s.Items); err != nil {
			m.logger.WithError(err).Warn("discarding unreadable mirrored cart items")
			s.Items = nil
		}
	}
	if raw := m.get(ctx, m.lastSyncKey); raw != nil {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err == nil {
			s.LastSyncedAt = &t
		}
	}
	return s
}

func (m *cartMirror) get(ctx context.Context, key string) []byte {
	raw, _, err := m.repo.Get(ctx, key)
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("failed to read cart mirror")
		return nil
	}
	return raw
}

// save writes the whole session. Failures are logged; the mirror is a cache.
func (m *cartMirror) save(ctx context.Context, s model.CartSession) {
	if m.repo == nil {
		return
	}
	items := s.Items
	if items == nil {
		items = []model.CartItem{}
	}
	m.put(ctx, m.itemsKey, items)
	m.put(ctx, m.sessionKey, s.SessionID)
	if s.LastSyncedAt != nil {
		m.put(ctx, m.lastSyncKey, s.LastSyncedAt.UTC())
	}
}

func (m *cartMirror) put(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Error("failed to encode cart mirror entry")
		return
	}
	if err := m.repo.Put(ctx, key, raw); err != nil {
		m.logger.WithError(fmt.Errorf("put %s: %w", key, err)).Warn("failed to write cart mirror")
	}
}

// clear removes every key of the client.
func (m *cartMirror) clear(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	for _, key := range []string{m.itemsKey, m.sessionKey, m.lastSyncKey} {
		if err := m.repo.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
