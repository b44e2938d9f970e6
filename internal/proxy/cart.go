package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/pkg/uid"
)

// CreateSession registers a new cart session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	now := formatWireTime(time.Now())
	in := cartSessionWire{
		SessionID:    uid.Prefixed("sess_"),
		CreateDate:   now,
		LastActivity: now,
		IsActive:     true,
	}
	var out cartSessionWire
	if err := c.do(ctx, http.MethodPost, "/api/cart-sessions", nil, in, &out); err != nil {
		return "", err
	}
	if out.SessionID != "" {
		return out.SessionID, nil
	}
	return in.SessionID, nil
}

// SessionActive reports whether sessionID exists and is active.
func (c *Client) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	var sessions []cartSessionWire
	err := c.getList(ctx, "/api/cart-sessions", url.Values{"sessionID": {sessionID}}, &sessions)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, s := range sessions {
		if s.SessionID == sessionID && s.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// ListItems returns the session's items with their size lines.
func (c *Client) ListItems(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	var wires []cartItemWire
	if err := c.getList(ctx, "/api/cart-items", url.Values{"sessionID": {sessionID}}, &wires); err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(wires))
	for _, w := range wires {
		if w.SessionID != "" && w.SessionID != sessionID {
			continue
		}
		item := w.toModel()
		sizes, err := c.ListSizes(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("sizes of item %s: %w", item.ID, err)
		}
		item.Sizes = sizes
		items = append(items, item)
	}
	return items, nil
}

// CreateItem creates a cart item (without sizes) and returns its server id.
func (c *Client) CreateItem(ctx context.Context, sessionID string, item model.CartItem) (string, error) {
	in := toItemWire(sessionID, item)
	in.CartItemID = ""
	var out cartItemWire
	if err := c.do(ctx, http.MethodPost, "/api/cart-items", nil, in, &out); err != nil {
		return "", err
	}
	if out.CartItemID == "" {
		return "", fmt.Errorf("create cart item: response carried no CartItemID")
	}
	return string(out.CartItemID), nil
}

// UpdateItem replaces the item's server record.
func (c *Client) UpdateItem(ctx context.Context, sessionID string, item model.CartItem) error {
	return c.do(ctx, http.MethodPut, "/api/cart-items/"+url.PathEscape(item.ID), nil, toItemWire(sessionID, item), nil)
}

// DeleteItem removes a cart item record.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart-items/"+url.PathEscape(itemID), nil, nil, nil)
}

// ListSizes returns the size lines of a cart item.
func (c *Client) ListSizes(ctx context.Context, itemID string) ([]model.SizeLine, error) {
	var wires []cartItemSizeWire
	if err := c.getList(ctx, "/api/cart-item-sizes", url.Values{"cartItemID": {itemID}}, &wires); err != nil {
		return nil, err
	}
	lines := make([]model.SizeLine, 0, len(wires))
	for _, w := range wires {
		if w.CartItemID != "" && string(w.CartItemID) != itemID {
			continue
		}
		lines = append(lines, w.toModel())
	}
	return lines, nil
}

// CreateSize creates a size line and returns its server id.
func (c *Client) CreateSize(ctx context.Context, itemID string, line model.SizeLine) (string, error) {
	in := toSizeWire(itemID, line)
	in.SizeItemID = ""
	var out cartItemSizeWire
	if err := c.do(ctx, http.MethodPost, "/api/cart-item-sizes", nil, in, &out); err != nil {
		return "", err
	}
	if out.SizeItemID == "" {
		return "", fmt.Errorf("create cart item size: response carried no SizeItemID")
	}
	return string(out.SizeItemID), nil
}

// UpdateSize replaces a size line record.
func (c *Client) UpdateSize(ctx context.Context, itemID string, line model.SizeLine) error {
	return c.do(ctx, http.MethodPut, "/api/cart-item-sizes/"+url.PathEscape(line.ID), nil, toSizeWire(itemID, line), nil)
}

// DeleteSize removes a size line record.
func (c *Client) DeleteSize(ctx context.Context, sizeID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart-item-sizes/"+url.PathEscape(sizeID), nil, nil, nil)
}
