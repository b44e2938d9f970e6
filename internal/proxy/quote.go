package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"decostore-rest-api/internal/model"
)

// CreateQuoteSession writes the header record of a saved quote.
func (c *Client) CreateQuoteSession(ctx context.Context, q model.QuoteSession) error {
	in := quoteSessionWire{
		QuoteID:        q.QuoteID,
		SessionID:      q.SessionID,
		CustomerEmail:  q.Customer.Email,
		CustomerName:   q.Customer.Name,
		CompanyName:    q.Customer.Company,
		Phone:          q.Customer.Phone,
		SalesRepEmail:  q.SalesRepEmail,
		TotalQuantity:  q.TotalQuantity,
		SubtotalAmount: q.SubtotalAmount.InexactFloat64(),
		LTMFeeTotal:    q.LTMFeeTotal.InexactFloat64(),
		TotalAmount:    q.TotalAmount.InexactFloat64(),
		Status:         q.Status,
		ExpiresAt:      formatWireTime(q.ExpiresAt),
		Notes:          q.Notes,
	}
	return c.do(ctx, http.MethodPost, "/api/quote_sessions", nil, in, nil)
}

// CreateQuoteItem writes one line of a saved quote.
func (c *Client) CreateQuoteItem(ctx context.Context, quoteID string, lineNumber int, tier string, item model.QuoteLineItem) error {
	sizes, err := json.Marshal(item.Sizes)
	if err != nil {
		return err
	}
	hasLTM := "No"
	if item.LTMPerUnit.IsPositive() {
		hasLTM = "Yes"
	}
	in := quoteItemWire{
		QuoteID:           quoteID,
		LineNumber:        lineNumber,
		StyleNumber:       item.StyleNumber,
		ProductName:       item.Description,
		Color:             item.Color,
		EmbellishmentType: string(item.DecorationType),
		Quantity:          item.Quantity,
		HasLTM:            hasLTM,
		BaseUnitPrice:     item.BasePrice.InexactFloat64(),
		LTMPerUnit:        item.LTMPerUnit.Round(2).InexactFloat64(),
		FinalUnitPrice:    item.UnitPriceWithLTM.Round(2).InexactFloat64(),
		LineTotal:         item.LineTotal.InexactFloat64(),
		SizeBreakdown:     string(sizes),
		PricingTier:       tier,
		AddedAt:           formatWireTime(time.Now()),
	}
	return c.do(ctx, http.MethodPost, "/api/quote_items", nil, in, nil)
}
