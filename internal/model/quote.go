package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteLineItem is one priced row of a quote: the sizes of a product that
// share a price point.
type QuoteLineItem struct {
	StyleNumber      string          `json:"style_number"`
	Color            string          `json:"color"`
	DecorationType   DecorationType  `json:"decoration_type"`
	Description      string          `json:"description"`
	Sizes            map[string]int  `json:"sizes"`
	Quantity         int             `json:"quantity"`
	BasePrice        decimal.Decimal `json:"base_price"`
	LTMPerUnit       decimal.Decimal `json:"ltm_per_unit"`
	BackLogoPrice    decimal.Decimal `json:"back_logo_price"`
	UnitPriceWithLTM decimal.Decimal `json:"unit_price_with_ltm"`
	LineTotal        decimal.Decimal `json:"line_total"`
}

// QuoteTypeSummary aggregates a decoration type across the quote.
type QuoteTypeSummary struct {
	DecorationType DecorationType  `json:"decoration_type"`
	TotalQuantity  int             `json:"total_quantity"`
	Tier           string          `json:"tier"`
	LTMPerUnit     decimal.Decimal `json:"ltm_per_unit"`
	LTMTotal       decimal.Decimal `json:"ltm_total"`
}

// QuoteFee is a named one-time charge or additional service.
type QuoteFee struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// PricedQuote is the complete price breakdown of a quote request.
type PricedQuote struct {
	LineItems               []QuoteLineItem    `json:"line_items"`
	Types                   []QuoteTypeSummary `json:"types"`
	TotalQuantity           int                `json:"total_quantity"`
	Subtotal                decimal.Decimal    `json:"subtotal"`
	LTMFeeTotal             decimal.Decimal    `json:"ltm_fee_total"`
	SetupFees               decimal.Decimal    `json:"setup_fees"`
	AdditionalServicesTotal decimal.Decimal    `json:"additional_services_total"`
	Discount                decimal.Decimal    `json:"discount"`
	GrandTotal              decimal.Decimal    `json:"grand_total"`
}

// Customer identifies who a quote is for.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// QuoteSession is the persisted header of a saved quote.
type QuoteSession struct {
	QuoteID        string          `json:"quote_id"`
	SessionID      string          `json:"session_id"`
	Customer       Customer        `json:"customer"`
	SalesRepEmail  string          `json:"sales_rep_email"`
	Status         string          `json:"status"`
	TotalQuantity  int             `json:"total_quantity"`
	SubtotalAmount decimal.Decimal `json:"subtotal_amount"`
	LTMFeeTotal    decimal.Decimal `json:"ltm_fee_total"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}
