package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"decostore-rest-api/internal/model"
)

// GetInventory returns live stock for a style/color across warehouses.
func (c *Client) GetInventory(ctx context.Context, styleNumber, color string) (*model.Inventory, error) {
	var rows []inventoryRowWire
	params := url.Values{"styleNumber": {styleNumber}, "color": {color}}
	if err := c.getList(ctx, "/api/inventory", params, &rows); err != nil {
		return nil, err
	}

	inv := &model.Inventory{StyleNumber: styleNumber, Color: color}
	for _, r := range rows {
		inv.Sizes = append(inv.Sizes, model.SizeAvailability{
			Size:      r.Size,
			Warehouse: r.WarehouseName,
			Quantity:  r.Quantity,
		})
	}
	return inv, nil
}

// GetPricingTable fetches the pricing bundle of a decoration type.
func (c *Client) GetPricingTable(ctx context.Context, decorationType model.DecorationType) (*model.PricingTable, error) {
	var bundle pricingBundleWire
	params := url.Values{"method": {string(decorationType)}}
	if err := c.do(ctx, http.MethodGet, "/api/pricing-bundle", params, nil, &bundle); err != nil {
		return nil, err
	}

	table := &model.PricingTable{DecorationType: decorationType}
	for _, t := range bundle.Tiers {
		table.Tiers = append(table.Tiers, model.PricingTier{
			Label:       t.TierLabel,
			MinQuantity: t.MinQuantity,
			MaxQuantity: t.MaxQuantity,
			TierOrder:   t.TierOrder,
		})
	}
	for _, p := range bundle.Costs {
		table.Prices = append(table.Prices, model.PriceProfile{
			PricingKey: p.PricingKey,
			SizeGroup:  p.SizeGroup,
			TierLabel:  p.TierLabel,
			UnitPrice:  p.Price,
		})
	}
	if len(bundle.SizeGroups) > 0 {
		table.SizeGroups = make(map[string]string, len(bundle.SizeGroups))
		for _, g := range bundle.SizeGroups {
			table.SizeGroups[g.Size] = g.SizeGroup
		}
	}
	return table, nil
}

// GetStylePrice fetches the display price list of a style.
func (c *Client) GetStylePrice(ctx context.Context, styleNumber string) (*model.StylePrice, error) {
	var raw json.RawMessage
	params := url.Values{"styleNumber": {styleNumber}}
	if err := c.do(ctx, http.MethodGet, "/api/max-prices-by-style", params, nil, &raw); err != nil {
		return nil, err
	}

	var w stylePriceWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to decode style prices: %w", err)
	}

	sp := &model.StylePrice{StyleNumber: styleNumber}
	for i, s := range w.Sizes {
		sp.Sizes = append(sp.Sizes, model.SizePrice{Size: s.Size, Price: s.Price})
		if i == 0 || s.Price.LessThan(sp.MinPrice) {
			sp.MinPrice = s.Price
		}
		if i == 0 || s.Price.GreaterThan(sp.MaxPrice) {
			sp.MaxPrice = s.Price
		}
	}
	return sp, nil
}
