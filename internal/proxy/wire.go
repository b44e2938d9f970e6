package proxy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"decostore-rest-api/internal/model"

	"github.com/shopspring/decimal"
)

// Wire structs mirror the proxy's Caspio column names. Nothing outside this
// package sees them.

// flexID accepts numeric or string ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(string(b))
	return nil
}

func (f flexID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(f))
}

type cartSessionWire struct {
	SessionID    string `json:"SessionID"`
	CreateDate   string `json:"CreateDate,omitempty"`
	LastActivity string `json:"LastActivity,omitempty"`
	IsActive     bool   `json:"IsActive"`
}

type cartItemWire struct {
	CartItemID        flexID `json:"CartItemID,omitempty"`
	SessionID         string `json:"SessionID"`
	StyleNumber       string `json:"StyleNumber"`
	Color             string `json:"Color"`
	ImprintType       string `json:"ImprintType"`
	CartStatus        string `json:"CartStatus"`
	DateAdded         string `json:"DateAdded,omitempty"`
	DecorationOptions string `json:"EmbellishmentOptions,omitempty"`
}

type cartItemSizeWire struct {
	SizeItemID flexID  `json:"SizeItemID,omitempty"`
	CartItemID flexID  `json:"CartItemID"`
	Size       string  `json:"Size"`
	Quantity   int     `json:"Quantity"`
	BasePrice  float64 `json:"BasePrice"`
	UnitPrice  float64 `json:"UnitPrice"`
}

type inventoryRowWire struct {
	Size          string `json:"size"`
	WarehouseName string `json:"warehouseName"`
	Quantity      int    `json:"quantity"`
}

type pricingTierWire struct {
	TierLabel   string `json:"TierLabel"`
	MinQuantity int    `json:"MinQuantity"`
	MaxQuantity int    `json:"MaxQuantity"`
	TierOrder   *int   `json:"TierOrder"`
}

type pricingCostWire struct {
	PricingKey string          `json:"PricingKey"`
	SizeGroup  string          `json:"SizeGroup"`
	TierLabel  string          `json:"TierLabel"`
	Price      decimal.Decimal `json:"Price"`
}

type sizeGroupWire struct {
	Size      string `json:"Size"`
	SizeGroup string `json:"SizeGroup"`
}

type pricingBundleWire struct {
	Tiers      []pricingTierWire `json:"tiersR"`
	Costs      []pricingCostWire `json:"costsR"`
	SizeGroups []sizeGroupWire   `json:"sizeGroupsR"`
}

type stylePriceWire struct {
	Style string `json:"style"`
	Sizes []struct {
		Size  string          `json:"size"`
		Price decimal.Decimal `json:"price"`
	} `json:"sizes"`
}

type quoteSessionWire struct {
	QuoteID        string  `json:"QuoteID"`
	SessionID      string  `json:"SessionID"`
	CustomerEmail  string  `json:"CustomerEmail"`
	CustomerName   string  `json:"CustomerName"`
	CompanyName    string  `json:"CompanyName,omitempty"`
	Phone          string  `json:"Phone,omitempty"`
	SalesRepEmail  string  `json:"SalesRepEmail"`
	TotalQuantity  int     `json:"TotalQuantity"`
	SubtotalAmount float64 `json:"SubtotalAmount"`
	LTMFeeTotal    float64 `json:"LTMFeeTotal"`
	TotalAmount    float64 `json:"TotalAmount"`
	Status         string  `json:"Status"`
	ExpiresAt      string  `json:"ExpiresAt"`
	Notes          string  `json:"Notes,omitempty"`
}

type quoteItemWire struct {
	QuoteID           string  `json:"QuoteID"`
	LineNumber        int     `json:"LineNumber"`
	StyleNumber       string  `json:"StyleNumber"`
	ProductName       string  `json:"ProductName"`
	Color             string  `json:"Color"`
	EmbellishmentType string  `json:"EmbellishmentType"`
	Quantity          int     `json:"Quantity"`
	HasLTM            string  `json:"HasLTM"`
	BaseUnitPrice     float64 `json:"BaseUnitPrice"`
	LTMPerUnit        float64 `json:"LTMPerUnit"`
	FinalUnitPrice    float64 `json:"FinalUnitPrice"`
	LineTotal         float64 `json:"LineTotal"`
	SizeBreakdown     string  `json:"SizeBreakdown"`
	PricingTier       string  `json:"PricingTier"`
	AddedAt           string  `json:"AddedAt"`
}

const wireTimeLayout = "2006-01-02T15:04:05"

func formatWireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

func parseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, wireTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toItemWire(sessionID string, item model.CartItem) cartItemWire {
	w := cartItemWire{
		CartItemID:  flexID(item.ID),
		SessionID:   sessionID,
		StyleNumber: item.StyleNumber,
		Color:       item.Color,
		ImprintType: string(item.DecorationType),
		CartStatus:  string(item.Status),
		DateAdded:   formatWireTime(item.AddedAt),
	}
	if len(item.DecorationOptions) > 0 {
		if b, err := json.Marshal(item.DecorationOptions); err == nil {
			w.DecorationOptions = string(b)
		}
	}
	return w
}

func (w cartItemWire) toModel() model.CartItem {
	item := model.CartItem{
		ID:             string(w.CartItemID),
		LocalID:        string(w.CartItemID),
		StyleNumber:    w.StyleNumber,
		Color:          w.Color,
		DecorationType: model.DecorationType(strings.ToLower(w.ImprintType)),
		Status:         model.ItemStatus(w.CartStatus),
		AddedAt:        parseWireTime(w.DateAdded),
	}
	if !item.Status.Valid() {
		item.Status = model.StatusActive
	}
	if w.DecorationOptions != "" {
		_ = json.Unmarshal([]byte(w.DecorationOptions), &item.DecorationOptions)
	}
	return item
}

func toSizeWire(itemID string, line model.SizeLine) cartItemSizeWire {
	return cartItemSizeWire{
		SizeItemID: flexID(line.ID),
		CartItemID: flexID(itemID),
		Size:       line.Size,
		Quantity:   line.Quantity,
		BasePrice:  line.BasePrice.InexactFloat64(),
		UnitPrice:  line.UnitPrice.InexactFloat64(),
	}
}

func (w cartItemSizeWire) toModel() model.SizeLine {
	return model.SizeLine{
		ID:        string(w.SizeItemID),
		Size:      w.Size,
		Quantity:  w.Quantity,
		BasePrice: decimal.NewFromFloat(w.BasePrice),
		UnitPrice: decimal.NewFromFloat(w.UnitPrice),
	}
}
