package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"decostore-rest-api/internal/middleware"
	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/service"
	"decostore-rest-api/pkg/apierror"
	"decostore-rest-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CartStore hands out the cart manager of a client.
type CartStore interface {
	Get(ctx context.Context, clientID string) (*service.CartManager, error)
	Evict(clientID string)
}

// CartHandler handles cart HTTP requests. Every route expects the client id
// set by middleware.RequireClientID.
type CartHandler struct {
	carts  CartStore
	logger logrus.FieldLogger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts CartStore, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger.WithField("component", "cart_handler"),
	}
}

// CartSnapshot is the cart as returned to the storefront.
type CartSnapshot struct {
	SessionID       string                 `json:"session_id"`
	IsLocal         bool                   `json:"is_local"`
	Items           []model.CartItem       `json:"items"`
	Count           int                    `json:"count"`
	Total           decimal.Decimal        `json:"total"`
	DecorationTypes []model.DecorationType `json:"decoration_types"`
	LastSyncedAt    *time.Time             `json:"last_synced_at,omitempty"`
	// MixedWarning is set when ?decoration_type= names a type that would mix
	// with what is already in the cart.
	MixedWarning string `json:"mixed_warning,omitempty"`
}

// CartResponse pairs an operation result with the cart after it.
type CartResponse struct {
	Result service.Result `json:"result"`
	Cart   CartSnapshot   `json:"cart"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) manager(w http.ResponseWriter, r *http.Request) (*service.CartManager, bool) {
	clientID := middleware.GetClientID(r.Context())
	if clientID == "" {
		response.Error(w, apierror.BadRequest("X-Client-ID header is required"))
		return nil, false
	}
	mgr, err := h.carts.Get(r.Context(), clientID)
	if err != nil {
		h.logger.WithError(err).WithField("client_id", clientID).Error("failed to load cart")
		response.Error(w, apierror.ServiceUnavailable("Cart is temporarily unavailable"))
		return nil, false
	}
	return mgr, true
}

func snapshot(mgr *service.CartManager, status *model.ItemStatus) CartSnapshot {
	session := mgr.Session()
	items := mgr.GetCartItems(status)
	if items == nil {
		items = []model.CartItem{}
	}
	types := mgr.GetDecorationTypesInCart()
	if types == nil {
		types = []model.DecorationType{}
	}
	return CartSnapshot{
		SessionID:       session.SessionID,
		IsLocal:         session.IsLocal(),
		Items:           items,
		Count:           mgr.GetCartCount(),
		Total:           mgr.GetCartTotal(),
		DecorationTypes: types,
		LastSyncedAt:    session.LastSyncedAt,
	}
}

// writeResult answers a cart operation. Validation failures are 400 and
// unknown items 404; every other outcome is 200 with the result inline.
func (h *CartHandler) writeResult(w http.ResponseWriter, mgr *service.CartManager, res service.Result) {
	switch res.Code {
	case service.CodeValidation:
		if !res.Success {
			response.Error(w, apierror.ValidationError(res.Error))
			return
		}
	case service.CodeNotFound:
		if !res.Success {
			response.Error(w, apierror.NotFound(res.Error))
			return
		}
	}
	response.OK(w, CartResponse{Result: res, Cart: snapshot(mgr, nil)})
}

func parseStatus(raw string) (*model.ItemStatus, error) {
	if raw == "" {
		return nil, nil
	}
	for _, s := range []model.ItemStatus{model.StatusActive, model.StatusSavedForLater} {
		if strings.EqualFold(raw, string(s)) {
			return &s, nil
		}
	}
	return nil, apierror.BadRequest("status must be Active or SavedForLater")
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		response.Error(w, err)
		return
	}
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}

	snap := snapshot(mgr, status)
	if dt := r.URL.Query().Get("decoration_type"); dt != "" {
		snap.MixedWarning = mgr.MixedDecorationWarning(model.DecorationType(strings.ToLower(dt)))
	}
	response.OK(w, snap)
}

// GetItem handles GET /api/v1/cart/items/{item_ref}
func (h *CartHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	item, err := mgr.Item(chi.URLParam(r, "item_ref"))
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			response.Error(w, apierror.NotFound(service.MsgItemNotFound))
			return
		}
		response.Error(w, err)
		return
	}
	response.OK(w, item)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, err)
		return
	}
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeResult(w, mgr, mgr.AddToCart(r.Context(), in))
}

// UpdateQuantity handles PUT /api/v1/cart/items/{item_ref}/sizes/{size}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Quantity == nil {
		response.Error(w, apierror.ValidationError("quantity is required",
			apierror.FieldError{Field: "quantity", Message: "required"}))
		return
	}
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	res := mgr.UpdateQuantity(r.Context(), chi.URLParam(r, "item_ref"), chi.URLParam(r, "size"), *req.Quantity)
	h.writeResult(w, mgr, res)
}

// RemoveItem handles DELETE /api/v1/cart/items/{item_ref}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeResult(w, mgr, mgr.RemoveItem(r.Context(), chi.URLParam(r, "item_ref")))
}

// SaveForLater handles POST /api/v1/cart/save-for-later
func (h *CartHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeResult(w, mgr, mgr.SaveForLater(r.Context()))
}

// MoveToCart handles POST /api/v1/cart/items/{item_ref}/move-to-cart
func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeResult(w, mgr, mgr.MoveToCart(r.Context(), chi.URLParam(r, "item_ref")))
}

// Sync handles POST /api/v1/cart/sync
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeResult(w, mgr, mgr.Sync(r.Context()))
}

// ClearCart handles DELETE /api/v1/cart. The cart is dropped from memory
// and the mirror; the next request starts a new session.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := mgr.Clear(r.Context()); err != nil {
		h.logger.WithError(err).WithField("client_id", clientID).Warn("failed to clear cart mirror")
	}
	h.carts.Evict(clientID)
	response.NoContent(w)
}
