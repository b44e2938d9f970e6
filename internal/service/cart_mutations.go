package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/proxy"
	"decostore-rest-api/pkg/uid"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AddToCart adds a product to the cart. An active item with the same style,
// color and decoration type absorbs the new quantities.
func (m *CartManager) AddToCart(ctx context.Context, in ProductInput) Result {
	return m.run(OpAdd, func() (Result, bool) {
		return m.addLocked(ctx, in)
	})
}

func (m *CartManager) addLocked(ctx context.Context, in ProductInput) (Result, bool) {
	in.DecorationType = model.DecorationType(strings.ToLower(strings.TrimSpace(string(in.DecorationType))))
	in.StyleNumber = strings.TrimSpace(in.StyleNumber)
	in.Color = strings.TrimSpace(in.Color)

	if err := m.validate.Struct(in); err != nil {
		return fail(CodeValidation, MsgMissingProduct), false
	}
	if !in.DecorationType.Valid() {
		return fail(CodeValidation, MsgInvalidDecoration), false
	}
	want := mergeSizeInputs(in.Sizes)
	if len(want) == 0 {
		return fail(CodeValidation, MsgNoSizes), false
	}

	sess := m.snapshot()
	local := sess.IsLocal()

	if !local {
		requested := make(map[string]int, len(want))
		for _, w := range want {
			requested[w.Size] = w.Quantity
		}
		if res, short := m.checkInventory(ctx, sess.Items, in.StyleNumber, in.Color, requested, ""); short {
			return res, false
		}
	}

	added := 0
	for _, w := range want {
		added += w.Quantity
	}
	ltm := pricing.LTMPerUnit(activeTypeQuantity(sess.Items, in.DecorationType)+added, m.ltm)

	var (
		item    model.CartItem
		applied = true
		err     error
	)
	if idx := findMergeTarget(sess.Items, in); idx >= 0 {
		item, applied, err = m.mergeInto(ctx, !local, sess.Items[idx], want, ltm)
	} else {
		item = newCartItem(in, want, ltm, m.now())
		if !local {
			item, err = m.pushItem(ctx, sess.SessionID, item)
			applied = err == nil
		}
	}
	if !applied {
		return remoteFailure(err), false
	}

	var puts []sizePut
	m.commit(ctx, func(s *model.CartSession) {
		if idx := findItem(s.Items, item.LocalID); idx >= 0 {
			s.Items[idx] = item
		} else {
			s.Items = append(s.Items, item)
		}
		puts = m.applyLTM(s, item.DecorationType)
	})
	m.putPrices(ctx, puts)

	var res Result
	if err != nil {
		res = remoteFailure(err)
		res.Success = true
		res.Code = CodePartial
	} else {
		res = ok()
	}
	res.Warning = mixedWarning(sess.Items, in.DecorationType)
	if current, err := m.Item(item.LocalID); err == nil {
		res.Item = &current
	}
	return res, true
}

// mergeSizeInputs drops non-positive quantities and folds duplicate sizes.
func mergeSizeInputs(in []SizeInput) []SizeInput {
	var out []SizeInput
	index := make(map[string]int)
	for _, s := range in {
		size := strings.TrimSpace(s.Size)
		if size == "" || s.Quantity <= 0 {
			continue
		}
		key := strings.ToUpper(size)
		if i, ok := index[key]; ok {
			out[i].Quantity += s.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, SizeInput{Size: size, Quantity: s.Quantity, BasePrice: s.BasePrice})
	}
	return out
}

func findMergeTarget(items []model.CartItem, in ProductInput) int {
	for i, item := range items {
		if item.Status == model.StatusActive &&
			item.DecorationType == in.DecorationType &&
			strings.EqualFold(item.StyleNumber, in.StyleNumber) &&
			strings.EqualFold(item.Color, in.Color) {
			return i
		}
	}
	return -1
}

func newCartItem(in ProductInput, want []SizeInput, ltm decimal.Decimal, now time.Time) model.CartItem {
	item := model.CartItem{
		LocalID:           uid.Prefixed("item_"),
		StyleNumber:       in.StyleNumber,
		Color:             in.Color,
		DecorationType:    in.DecorationType,
		DecorationOptions: in.DecorationOptions,
		Status:            model.StatusActive,
		AddedAt:           now.UTC(),
	}
	for _, w := range want {
		item.Sizes = append(item.Sizes, model.SizeLine{
			Size:      w.Size,
			Quantity:  w.Quantity,
			BasePrice: w.BasePrice,
			UnitPrice: w.BasePrice.Add(ltm),
		})
	}
	return item.Clone()
}

// mergeInto adds want to item. When remote is set the touched lines are
// written to the backend in parallel; lines whose write failed keep their
// previous state. applied reports whether anything changed.
func (m *CartManager) mergeInto(ctx context.Context, remote bool, item model.CartItem, want []SizeInput, ltm decimal.Decimal) (model.CartItem, bool, error) {
	out := item.Clone()
	var touched []int
	for _, w := range want {
		li := out.FindSize(w.Size)
		if li < 0 {
			out.Sizes = append(out.Sizes, model.SizeLine{Size: w.Size, BasePrice: w.BasePrice})
			li = len(out.Sizes) - 1
		}
		out.Sizes[li].Quantity += w.Quantity
		out.Sizes[li].UnitPrice = out.Sizes[li].BasePrice.Add(ltm)
		touched = append(touched, li)
	}
	if !remote || !item.Synced() {
		return out, true, nil
	}

	errs := make([]error, len(touched))
	var wg sync.WaitGroup
	for k, li := range touched {
		wg.Add(1)
		go func(k, li int) {
			defer wg.Done()
			line := out.Sizes[li]
			if line.ID != "" {
				errs[k] = m.backend.UpdateSize(ctx, out.ID, line)
				return
			}
			id, err := m.backend.CreateSize(ctx, out.ID, line)
			if err != nil {
				errs[k] = err
				return
			}
			out.Sizes[li].ID = id
		}(k, li)
	}
	wg.Wait()

	failed := 0
	drop := make(map[int]bool)
	for k, li := range touched {
		if errs[k] == nil {
			continue
		}
		failed++
		if orig := item.FindSize(out.Sizes[li].Size); orig >= 0 {
			out.Sizes[li] = item.Sizes[orig]
		} else {
			drop[li] = true
		}
	}
	if len(drop) > 0 {
		kept := out.Sizes[:0]
		for i, line := range out.Sizes {
			if !drop[i] {
				kept = append(kept, line)
			}
		}
		out.Sizes = kept
	}
	return out, failed < len(touched), errors.Join(errs...)
}

// UpdateQuantity sets the quantity of one size line. A quantity of zero or
// less removes the line, and removing the last line removes the item.
func (m *CartManager) UpdateQuantity(ctx context.Context, itemRef, size string, quantity int) Result {
	return m.run(OpUpdateQuantity, func() (Result, bool) {
		sess := m.snapshot()
		idx := findItem(sess.Items, itemRef)
		if idx < 0 {
			return fail(CodeNotFound, MsgItemNotFound), false
		}
		item := sess.Items[idx]
		li := item.FindSize(size)
		if li < 0 {
			return fail(CodeNotFound, MsgSizeNotFound), false
		}

		if quantity <= 0 {
			if len(item.Sizes) == 1 {
				return m.removeLocked(ctx, itemRef)
			}
			return m.removeSizeLocked(ctx, sess, item, li)
		}
		return m.setQuantityLocked(ctx, sess, item, li, quantity)
	})
}

func (m *CartManager) removeSizeLocked(ctx context.Context, sess model.CartSession, item model.CartItem, li int) (Result, bool) {
	line := item.Sizes[li]
	if !sess.IsLocal() && line.ID != "" {
		if err := m.backend.DeleteSize(ctx, line.ID); err != nil && !proxy.IsNotFound(err) {
			return remoteFailure(err), false
		}
	}

	var puts []sizePut
	m.commit(ctx, func(s *model.CartSession) {
		idx := findItem(s.Items, item.LocalID)
		if idx < 0 {
			return
		}
		target := &s.Items[idx]
		if i := target.FindSize(line.Size); i >= 0 {
			target.Sizes = append(target.Sizes[:i], target.Sizes[i+1:]...)
		}
		puts = m.applyLTM(s, item.DecorationType)
	})
	m.putPrices(ctx, puts)
	return ok(), true
}

func (m *CartManager) setQuantityLocked(ctx context.Context, sess model.CartSession, item model.CartItem, li, quantity int) (Result, bool) {
	line := item.Sizes[li]
	local := sess.IsLocal()

	if !local && item.Status == model.StatusActive {
		requested := map[string]int{line.Size: quantity}
		if res, short := m.checkInventory(ctx, sess.Items, item.StyleNumber, item.Color, requested, item.Ref()); short {
			return res, false
		}
	}

	line.Quantity = quantity
	if item.Status == model.StatusActive {
		total := activeTypeQuantity(sess.Items, item.DecorationType) - item.Sizes[li].Quantity + quantity
		line.UnitPrice = line.BasePrice.Add(pricing.LTMPerUnit(total, m.ltm))
	}

	if !local && item.Synced() {
		var err error
		if line.ID != "" {
			err = m.backend.UpdateSize(ctx, item.ID, line)
		} else {
			line.ID, err = m.backend.CreateSize(ctx, item.ID, line)
		}
		if err != nil {
			return remoteFailure(err), false
		}
	}

	var puts []sizePut
	m.commit(ctx, func(s *model.CartSession) {
		idx := findItem(s.Items, item.LocalID)
		if idx < 0 {
			return
		}
		if i := s.Items[idx].FindSize(line.Size); i >= 0 {
			s.Items[idx].Sizes[i] = line
		}
		puts = m.applyLTM(s, item.DecorationType)
	})
	m.putPrices(ctx, puts)
	return ok(), true
}

// RemoveItem deletes an item with all of its size lines.
func (m *CartManager) RemoveItem(ctx context.Context, itemRef string) Result {
	return m.run(OpRemove, func() (Result, bool) {
		return m.removeLocked(ctx, itemRef)
	})
}

func (m *CartManager) removeLocked(ctx context.Context, itemRef string) (Result, bool) {
	sess := m.snapshot()
	idx := findItem(sess.Items, itemRef)
	if idx < 0 {
		return fail(CodeNotFound, MsgItemNotFound), false
	}
	item := sess.Items[idx]

	if !sess.IsLocal() && item.Synced() {
		if err := m.deleteSizes(ctx, item.Sizes); err != nil {
			return remoteFailure(err), false
		}
		if err := m.backend.DeleteItem(ctx, item.ID); err != nil && !proxy.IsNotFound(err) {
			return remoteFailure(err), false
		}
	}

	var puts []sizePut
	m.commit(ctx, func(s *model.CartSession) {
		if i := findItem(s.Items, item.LocalID); i >= 0 {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
		}
		puts = m.applyLTM(s, item.DecorationType)
	})
	m.putPrices(ctx, puts)
	return ok(), true
}

// SaveForLater moves every active item to the saved-for-later list.
// Items whose update failed stay active.
func (m *CartManager) SaveForLater(ctx context.Context) Result {
	return m.run(OpSaveForLater, func() (Result, bool) {
		sess := m.snapshot()
		var targets []model.CartItem
		for _, item := range sess.Items {
			if item.Status == model.StatusActive {
				targets = append(targets, item)
			}
		}
		if len(targets) == 0 {
			return ok(), false
		}

		errs := make([]error, len(targets))
		if !sess.IsLocal() {
			var wg sync.WaitGroup
			for i := range targets {
				if !targets[i].Synced() {
					continue
				}
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					updated := targets[i].Clone()
					updated.Status = model.StatusSavedForLater
					errs[i] = m.backend.UpdateItem(ctx, sess.SessionID, updated)
				}(i)
			}
			wg.Wait()
		}

		failed := 0
		moved := make(map[string]bool)
		types := make(map[model.DecorationType]bool)
		for i, err := range errs {
			if err != nil {
				failed++
				m.logger.WithError(err).WithField("item_id", targets[i].ID).Warn("failed to save item for later")
				continue
			}
			moved[targets[i].LocalID] = true
			types[targets[i].DecorationType] = true
		}
		msg := fmt.Sprintf("%d of %d items failed to save for later", failed, len(targets))
		if failed == len(targets) {
			return fail(CodeRemote, msg), false
		}

		var puts []sizePut
		m.commit(ctx, func(s *model.CartSession) {
			for i := range s.Items {
				if moved[s.Items[i].LocalID] {
					s.Items[i].Status = model.StatusSavedForLater
				}
			}
			for t := range types {
				puts = append(puts, m.applyLTM(s, t)...)
			}
		})
		m.putPrices(ctx, puts)

		if failed > 0 {
			return Result{Success: true, Code: CodePartial, Error: msg}, true
		}
		return ok(), true
	})
}

// MoveToCart makes a saved-for-later item active again.
func (m *CartManager) MoveToCart(ctx context.Context, itemRef string) Result {
	return m.run(OpMoveToCart, func() (Result, bool) {
		sess := m.snapshot()
		idx := findItem(sess.Items, itemRef)
		if idx < 0 {
			return fail(CodeNotFound, MsgItemNotFound), false
		}
		item := sess.Items[idx]
		if item.Status != model.StatusSavedForLater {
			return fail(CodeValidation, MsgNotSavedForLater), false
		}

		if !sess.IsLocal() && item.Synced() {
			updated := item.Clone()
			updated.Status = model.StatusActive
			if err := m.backend.UpdateItem(ctx, sess.SessionID, updated); err != nil {
				return remoteFailure(err), false
			}
		}

		var puts []sizePut
		m.commit(ctx, func(s *model.CartSession) {
			if i := findItem(s.Items, item.LocalID); i >= 0 {
				s.Items[i].Status = model.StatusActive
			}
			puts = m.applyLTM(s, item.DecorationType)
		})
		m.putPrices(ctx, puts)

		res := ok()
		if current, err := m.Item(item.LocalID); err == nil {
			res.Item = &current
		}
		return res, true
	})
}

// checkInventory compares requested quantities, plus what other active items
// of the same style and color already hold, against live stock.
func (m *CartManager) checkInventory(ctx context.Context, items []model.CartItem, style, color string, requested map[string]int, skipRef string) (Result, bool) {
	inv, err := m.backend.GetInventory(ctx, style, color)
	if err != nil {
		return remoteFailure(err), true
	}

	sizes := make([]string, 0, len(requested))
	for size := range requested {
		sizes = append(sizes, size)
	}
	pricing.SortSizes(sizes)

	var shortfalls []model.Shortfall
	for _, size := range sizes {
		want := requested[size] + quantityInCart(items, style, color, size, skipRef)
		if avail := inv.Available(size); want > avail {
			shortfalls = append(shortfalls, model.Shortfall{Size: size, Requested: want, Available: avail})
		}
	}
	if len(shortfalls) == 0 {
		return Result{}, false
	}
	return fail(CodeInventory, InventoryMessage(shortfalls)), true
}

// InventoryMessage formats shortfalls for the shopper.
func InventoryMessage(shortfalls []model.Shortfall) string {
	parts := make([]string, len(shortfalls))
	for i, s := range shortfalls {
		parts[i] = fmt.Sprintf("%s (requested %d, only %d available)", s.Size, s.Requested, s.Available)
	}
	return "Insufficient inventory: " + strings.Join(parts, ", ")
}

func quantityInCart(items []model.CartItem, style, color, size, skipRef string) int {
	n := 0
	for i := range items {
		item := &items[i]
		if item.Status != model.StatusActive || item.Matches(skipRef) {
			continue
		}
		if !strings.EqualFold(item.StyleNumber, style) || !strings.EqualFold(item.Color, color) {
			continue
		}
		if li := item.FindSize(size); li >= 0 {
			n += item.Sizes[li].Quantity
		}
	}
	return n
}

func activeTypeQuantity(items []model.CartItem, t model.DecorationType) int {
	n := 0
	for i := range items {
		if items[i].Status == model.StatusActive && items[i].DecorationType == t {
			n += items[i].TotalQuantity()
		}
	}
	return n
}

type sizePut struct {
	itemID string
	line   model.SizeLine
}

// applyLTM reprices the active lines of t for the current quantity of t and
// returns the synced lines whose price changed.
func (m *CartManager) applyLTM(s *model.CartSession, t model.DecorationType) []sizePut {
	ltm := pricing.LTMPerUnit(activeTypeQuantity(s.Items, t), m.ltm)
	local := s.IsLocal()

	var puts []sizePut
	for i := range s.Items {
		item := &s.Items[i]
		if item.Status != model.StatusActive || item.DecorationType != t {
			continue
		}
		for j := range item.Sizes {
			line := &item.Sizes[j]
			unit := line.BasePrice.Add(ltm)
			if unit.Equal(line.UnitPrice) {
				continue
			}
			line.UnitPrice = unit
			if !local && item.Synced() && line.ID != "" {
				puts = append(puts, sizePut{itemID: item.ID, line: *line})
			}
		}
	}
	return puts
}

// putPrices writes repriced lines to the backend. Failures are logged only.
func (m *CartManager) putPrices(ctx context.Context, puts []sizePut) {
	if len(puts) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, p := range puts {
		wg.Add(1)
		go func(p sizePut) {
			defer wg.Done()
			if err := m.backend.UpdateSize(ctx, p.itemID, p.line); err != nil {
				m.logger.WithError(err).WithFields(logrus.Fields{
					"item_id": p.itemID,
					"size":    p.line.Size,
				}).Warn("failed to update repriced size line")
			}
		}(p)
	}
	wg.Wait()
}
