package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LocalSessionPrefix marks session ids minted without a server round trip.
const LocalSessionPrefix = "local_"

// DecorationType is the method used to apply a design to a garment.
type DecorationType string

const (
	DecorationEmbroidery    DecorationType = "embroidery"
	DecorationCapEmbroidery DecorationType = "cap-embroidery"
	DecorationDTG           DecorationType = "dtg"
	DecorationDTF           DecorationType = "dtf"
	DecorationScreenPrint   DecorationType = "screen-print"
	DecorationVinyl         DecorationType = "vinyl"
)

// DecorationTypes lists every supported decoration type.
var DecorationTypes = []DecorationType{
	DecorationEmbroidery,
	DecorationCapEmbroidery,
	DecorationDTG,
	DecorationDTF,
	DecorationScreenPrint,
	DecorationVinyl,
}

// Valid reports whether d is a known decoration type.
func (d DecorationType) Valid() bool {
	for _, t := range DecorationTypes {
		if d == t {
			return true
		}
	}
	return false
}

// ItemStatus is the lifecycle state of a cart item.
type ItemStatus string

const (
	StatusActive        ItemStatus = "Active"
	StatusSavedForLater ItemStatus = "SavedForLater"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	return s == StatusActive || s == StatusSavedForLater
}

// IsLocalSession reports whether the session id was generated offline.
func IsLocalSession(sessionID string) bool {
	return strings.HasPrefix(sessionID, LocalSessionPrefix)
}

// CartSession is the cart of a single client context.
type CartSession struct {
	SessionID    string     `json:"session_id"`
	Items        []CartItem `json:"items"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// IsLocal reports whether the session is offline-only.
func (s CartSession) IsLocal() bool {
	return IsLocalSession(s.SessionID)
}

// CartItem is one (style, color, decoration type) combination in the cart.
type CartItem struct {
	ID                string                 `json:"id,omitempty"`
	LocalID           string                 `json:"local_id"`
	StyleNumber       string                 `json:"style_number"`
	Color             string                 `json:"color"`
	DecorationType    DecorationType         `json:"decoration_type"`
	DecorationOptions map[string]interface{} `json:"decoration_options,omitempty"`
	Status            ItemStatus             `json:"status"`
	Sizes             []SizeLine             `json:"sizes"`
	AddedAt           time.Time              `json:"added_at"`
}

// Ref returns the identifier callers use to address the item: the server id
// once assigned, otherwise the local id.
func (i *CartItem) Ref() string {
	if i.ID != "" {
		return i.ID
	}
	return i.LocalID
}

// Matches reports whether ref addresses this item.
func (i *CartItem) Matches(ref string) bool {
	return ref != "" && (ref == i.ID || ref == i.LocalID)
}

// Synced reports whether the item has a server-assigned id.
func (i *CartItem) Synced() bool {
	return i.ID != ""
}

// TotalQuantity sums the quantities of all size lines.
func (i *CartItem) TotalQuantity() int {
	total := 0
	for _, s := range i.Sizes {
		total += s.Quantity
	}
	return total
}

// Total returns the sum of quantity x unit price over all size lines.
func (i *CartItem) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range i.Sizes {
		total = total.Add(s.LineTotal())
	}
	return total
}

// FindSize returns the index of the size line for size, or -1.
func (i *CartItem) FindSize(size string) int {
	for idx := range i.Sizes {
		if strings.EqualFold(i.Sizes[idx].Size, size) {
			return idx
		}
	}
	return -1
}

// Clone returns a deep copy of the item.
func (i CartItem) Clone() CartItem {
	out := i
	out.Sizes = append([]SizeLine(nil), i.Sizes...)
	if i.DecorationOptions != nil {
		out.DecorationOptions = make(map[string]interface{}, len(i.DecorationOptions))
		for k, v := range i.DecorationOptions {
			out.DecorationOptions[k] = v
		}
	}
	return out
}

// SizeLine is the quantity and price of one size within a cart item.
// UnitPrice includes the amortized less-than-minimum fee; BasePrice does not.
type SizeLine struct {
	ID        string          `json:"id,omitempty"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	BasePrice decimal.Decimal `json:"base_price"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity x unit price.
func (s SizeLine) LineTotal() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
