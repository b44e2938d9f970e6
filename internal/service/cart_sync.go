package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/proxy"

	"github.com/sirupsen/logrus"
)

// Sync reconciles memory with the backend. The server wins when it holds any
// item; otherwise unsynced local items are pushed. An overlapping call is
// skipped.
func (m *CartManager) Sync(ctx context.Context) Result {
	if !m.syncing.CompareAndSwap(false, true) {
		res := Result{Success: true, Code: CodeSkipped}
		m.metrics.ObserveCartOperation(OpSync, res.Outcome())
		return res
	}
	defer m.syncing.Store(false)

	return m.run(OpSync, func() (Result, bool) {
		return m.syncLocked(ctx)
	})
}

func (m *CartManager) syncLocked(ctx context.Context) (Result, bool) {
	sess := m.snapshot()
	if sess.SessionID == "" || sess.IsLocal() {
		return ok(), false
	}

	remote, err := m.backend.ListItems(ctx, sess.SessionID)
	if err != nil {
		return remoteFailure(err), false
	}
	if len(remote) > 0 {
		m.replaceItems(ctx, remote)
		return ok(), true
	}

	var pending []model.CartItem
	for _, item := range sess.Items {
		if !item.Synced() {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		m.replaceItems(ctx, nil)
		return ok(), len(sess.Items) > 0
	}

	pushed := make([]model.CartItem, len(pending))
	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pushed[i], errs[i] = m.pushItem(ctx, sess.SessionID, pending[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			m.logger.WithError(err).WithField("local_id", pending[i].LocalID).Warn("failed to push cart item")
		}
	}

	// Apply assigned ids first so memory holds them even if the reload fails.
	m.commit(ctx, func(s *model.CartSession) {
		for i := range pending {
			if errs[i] != nil {
				continue
			}
			if idx := findItem(s.Items, pending[i].LocalID); idx >= 0 {
				s.Items[idx] = pushed[i]
			}
		}
	})

	if reloaded, err := m.backend.ListItems(ctx, sess.SessionID); err != nil {
		m.logger.WithError(err).Warn("failed to reload cart after push")
	} else {
		m.replaceItems(ctx, keepLocalIDs(reloaded, pushed))
	}

	if failed > 0 {
		return Result{
			Success: true,
			Code:    CodePartial,
			Error:   fmt.Sprintf("Some items failed to sync with the server (%d of %d).", failed, len(pending)),
		}, true
	}
	return ok(), true
}

// replaceItems installs items as the whole cart and stamps the sync time.
func (m *CartManager) replaceItems(ctx context.Context, items []model.CartItem) {
	now := m.now()
	m.commit(ctx, func(s *model.CartSession) {
		s.Items = model.CloneItems(items)
		s.LastSyncedAt = &now
	})
}

// keepLocalIDs carries the local ids of pushed items over to their reloaded
// server copies so references held by clients stay valid.
func keepLocalIDs(reloaded, pushed []model.CartItem) []model.CartItem {
	byID := make(map[string]string, len(pushed))
	for _, p := range pushed {
		if p.ID != "" {
			byID[p.ID] = p.LocalID
		}
	}
	for i := range reloaded {
		if local, ok := byID[reloaded[i].ID]; ok && local != "" {
			reloaded[i].LocalID = local
		}
	}
	return reloaded
}

// pushItem creates item and its size lines on the backend. If any size line
// fails the item is deleted again and the original item is returned.
func (m *CartManager) pushItem(ctx context.Context, sessionID string, item model.CartItem) (model.CartItem, error) {
	id, err := m.backend.CreateItem(ctx, sessionID, item)
	if err != nil {
		return item, err
	}

	out := item.Clone()
	out.ID = id
	lines, err := m.createSizes(ctx, id, out.Sizes)
	if err != nil {
		m.rollbackItem(ctx, id, lines)
		return item, err
	}
	out.Sizes = lines
	return out, nil
}

// createSizes creates lines in parallel. The returned lines carry the ids of
// every line that was created, also on error.
func (m *CartManager) createSizes(ctx context.Context, itemID string, lines []model.SizeLine) ([]model.SizeLine, error) {
	out := append([]model.SizeLine(nil), lines...)
	errs := make([]error, len(lines))

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.backend.CreateSize(ctx, itemID, out[i])
			if err != nil {
				errs[i] = fmt.Errorf("size %s: %w", out[i].Size, err)
				return
			}
			out[i].ID = id
		}(i)
	}
	wg.Wait()
	return out, errors.Join(errs...)
}

// deleteSizes removes the lines that have server ids, in parallel. Lines
// already gone on the server count as deleted.
func (m *CartManager) deleteSizes(ctx context.Context, lines []model.SizeLine) error {
	errs := make([]error, len(lines))
	var wg sync.WaitGroup
	for i := range lines {
		if lines[i].ID == "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := m.backend.DeleteSize(ctx, lines[i].ID); err != nil && !proxy.IsNotFound(err) {
				errs[i] = err
			}
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (m *CartManager) rollbackItem(ctx context.Context, itemID string, lines []model.SizeLine) {
	log := m.logger.WithField("item_id", itemID)
	if err := m.deleteSizes(ctx, lines); err != nil {
		log.WithError(err).Warn("failed to delete size lines during rollback")
	}
	if err := m.backend.DeleteItem(ctx, itemID); err != nil {
		log.WithError(err).Error("failed to delete partially created cart item")
		return
	}
	log.WithFields(logrus.Fields{"sizes": len(lines)}).Info("rolled back partially created cart item")
}
