package service

import (
	"context"
	"time"

	"decostore-rest-api/internal/model"

	"github.com/shopspring/decimal"
)

// Shopper-facing messages.
const (
	MsgItemNotFound       = "Item not found in cart"
	MsgSizeNotFound       = "Size not found in cart item"
	MsgNotSavedForLater   = "Item is not saved for later"
	MsgMissingProduct     = "Missing required product information"
	MsgNoSizes            = "Please select at least one size with a quantity greater than zero"
	MsgInvalidDecoration  = "Invalid decoration type"
	MsgCartNotInitialized = "Cart is not initialized"
)

// ResultCode classifies a failed or partial Result.
type ResultCode string

const (
	CodeValidation ResultCode = "validation"
	CodeNotFound   ResultCode = "not_found"
	CodeInventory  ResultCode = "inventory"
	CodeRemote     ResultCode = "remote"
	CodePartial    ResultCode = "partial"
	CodeSkipped    ResultCode = "skipped"
)

// Result is the outcome of a cart operation. Error may be set while Success
// is true to carry partial failure detail.
type Result struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
	Code    ResultCode      `json:"code,omitempty"`
	Item    *model.CartItem `json:"item,omitempty"`
}

func ok() Result { return Result{Success: true} }

func fail(code ResultCode, msg string) Result {
	return Result{Success: false, Code: code, Error: msg}
}

// Outcome is the metrics label of the result.
func (r Result) Outcome() string {
	switch {
	case r.Code == CodeSkipped:
		return "skipped"
	case r.Success && r.Error != "":
		return "partial"
	case r.Success:
		return "success"
	default:
		return "failure"
	}
}

// SizeInput is one requested size of an add.
type SizeInput struct {
	Size      string          `json:"size" validate:"required"`
	Quantity  int             `json:"quantity"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// ProductInput is the payload of AddToCart.
type ProductInput struct {
	StyleNumber       string                 `json:"style_number" validate:"required"`
	Color             string                 `json:"color" validate:"required"`
	DecorationType    model.DecorationType   `json:"decoration_type" validate:"required"`
	DecorationOptions map[string]interface{} `json:"decoration_options,omitempty"`
	Sizes             []SizeInput            `json:"sizes" validate:"dive"`
}

// CartEvent is emitted once per logical cart change.
type CartEvent struct {
	ClientID  string           `json:"client_id"`
	SessionID string           `json:"session_id"`
	Operation string           `json:"operation"`
	Items     []model.CartItem `json:"items"`
	Count     int              `json:"count"`
	Total     decimal.Decimal  `json:"total"`
	At        time.Time        `json:"at"`
}

// Operation names carried by CartEvent and metrics.
const (
	OpInit           = "init"
	OpSync           = "sync"
	OpAdd            = "add"
	OpUpdateQuantity = "update_quantity"
	OpRemove         = "remove"
	OpSaveForLater   = "save_for_later"
	OpMoveToCart     = "move_to_cart"
)

// CartBackend is the remote store the manager reconciles with.
type CartBackend interface {
	CreateSession(ctx context.Context) (string, error)
	SessionActive(ctx context.Context, sessionID string) (bool, error)
	ListItems(ctx context.Context, sessionID string) ([]model.CartItem, error)
	CreateItem(ctx context.Context, sessionID string, item model.CartItem) (string, error)
	UpdateItem(ctx context.Context, sessionID string, item model.CartItem) error
	DeleteItem(ctx context.Context, itemID string) error
	CreateSize(ctx context.Context, itemID string, line model.SizeLine) (string, error)
	UpdateSize(ctx context.Context, itemID string, line model.SizeLine) error
	DeleteSize(ctx context.Context, sizeID string) error
	GetInventory(ctx context.Context, styleNumber, color string) (*model.Inventory, error)
}
