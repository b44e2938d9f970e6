package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/proxy"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var errNetwork = &proxy.TransportError{Op: "POST /api/cart-items", Err: errors.New("connection refused")}

type fakeItem struct {
	session string
	item    model.CartItem
	sizes   []string
}

// fakeBackend is an in-memory CartBackend with failure injection.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]bool
	items    map[string]*fakeItem
	order    []string
	sizes    map[string]model.SizeLine
	stock    map[string]*model.Inventory
	calls    map[string]int

	createSessionErr error
	createItemErr    func(item model.CartItem) error
	createSizeErr    func(line model.SizeLine) error
	updateItemErr    func(item model.CartItem) error

	// listEntered and listRelease, when set, park the next ListItems call.
	listEntered chan struct{}
	listRelease chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: make(map[string]bool),
		items:    make(map[string]*fakeItem),
		sizes:    make(map[string]model.SizeLine),
		stock:    make(map[string]*model.Inventory),
		calls:    make(map[string]int),
	}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeBackend) setStock(style, color string, sizes map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := &model.Inventory{StyleNumber: style, Color: color}
	for size, qty := range sizes {
		inv.Sizes = append(inv.Sizes, model.SizeAvailability{Size: size, Warehouse: "WH1", Quantity: qty})
	}
	f.stock[strings.ToUpper(style+"|"+color)] = inv
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) itemCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// dropSize deletes a size line server-side behind the cart's back.
func (f *fakeBackend) dropSize(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sizes, id)
}

func (f *fakeBackend) sizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sizes)
}

func (f *fakeBackend) CreateSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateSession"]++
	if f.createSessionErr != nil {
		return "", f.createSessionErr
	}
	id := f.id("sess_")
	f.sessions[id] = true
	return id, nil
}

func (f *fakeBackend) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SessionActive"]++
	return f.sessions[sessionID], nil
}

// holdListItems parks the next ListItems call until release is closed.
func (f *fakeBackend) holdListItems(entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listEntered, f.listRelease = entered, release
}

func (f *fakeBackend) ListItems(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	f.mu.Lock()
	f.calls["ListItems"]++
	entered, release := f.listEntered, f.listRelease
	f.listEntered, f.listRelease = nil, nil
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.CartItem
	for _, id := range f.order {
		fi, ok := f.items[id]
		if !ok || fi.session != sessionID {
			continue
		}
		item := fi.item.Clone()
		item.Sizes = nil
		for _, sid := range fi.sizes {
			if line, ok := f.sizes[sid]; ok {
				item.Sizes = append(item.Sizes, line)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeBackend) CreateItem(ctx context.Context, sessionID string, item model.CartItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateItem"]++
	if f.createItemErr != nil {
		if err := f.createItemErr(item); err != nil {
			return "", err
		}
	}
	id := f.id("")
	stored := item.Clone()
	stored.ID = id
	stored.LocalID = id
	stored.Sizes = nil
	f.items[id] = &fakeItem{session: sessionID, item: stored}
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeBackend) UpdateItem(ctx context.Context, sessionID string, item model.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateItem"]++
	if f.updateItemErr != nil {
		if err := f.updateItemErr(item); err != nil {
			return err
		}
	}
	fi, ok := f.items[item.ID]
	if !ok {
		return &proxy.StatusError{StatusCode: 404, Body: "not found"}
	}
	fi.item.Status = item.Status
	return nil
}

func (f *fakeBackend) DeleteItem(ctx context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteItem"]++
	if _, ok := f.items[itemID]; !ok {
		return &proxy.StatusError{StatusCode: 404, Body: "not found"}
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeBackend) CreateSize(ctx context.Context, itemID string, line model.SizeLine) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateSize"]++
	if f.createSizeErr != nil {
		if err := f.createSizeErr(line); err != nil {
			return "", err
		}
	}
	fi, ok := f.items[itemID]
	if !ok {
		return "", &proxy.StatusError{StatusCode: 404, Body: "item not found"}
	}
	id := f.id("sz")
	line.ID = id
	f.sizes[id] = line
	fi.sizes = append(fi.sizes, id)
	return id, nil
}

func (f *fakeBackend) UpdateSize(ctx context.Context, itemID string, line model.SizeLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateSize"]++
	if _, ok := f.sizes[line.ID]; !ok {
		return &proxy.StatusError{StatusCode: 404, Body: "size not found"}
	}
	f.sizes[line.ID] = line
	return nil
}

func (f *fakeBackend) DeleteSize(ctx context.Context, sizeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteSize"]++
	if _, ok := f.sizes[sizeID]; !ok {
		return &proxy.StatusError{StatusCode: 404, Body: "size not found"}
	}
	delete(f.sizes, sizeID)
	return nil
}

func (f *fakeBackend) GetInventory(ctx context.Context, styleNumber, color string) (*model.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetInventory"]++
	if inv, ok := f.stock[strings.ToUpper(styleNumber+"|"+color)]; ok {
		return inv, nil
	}
	return &model.Inventory{StyleNumber: styleNumber, Color: color}, nil
}

// sizeLine returns the stored line of size within itemID.
func (f *fakeBackend) sizeLine(itemID, size string) (model.SizeLine, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fi, ok := f.items[itemID]
	if !ok {
		return model.SizeLine{}, false
	}
	for _, sid := range fi.sizes {
		if line, ok := f.sizes[sid]; ok && strings.EqualFold(line.Size, size) {
			return line, true
		}
	}
	return model.SizeLine{}, false
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// describeItems renders items in a representation independent of decimal
// scale and server ordering.
func describeItems(items []model.CartItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var sizes []string
		for _, s := range item.Sizes {
			sizes = append(sizes, fmt.Sprintf("%s=%d@%s", s.Size, s.Quantity, s.UnitPrice.StringFixed(2)))
		}
		sort.Strings(sizes)
		out = append(out, fmt.Sprintf("%s/%s/%s/%s[%s]", item.StyleNumber, item.Color, item.DecorationType, item.Status, strings.Join(sizes, ",")))
	}
	sort.Strings(out)
	return out
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
