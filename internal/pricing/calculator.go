package pricing

import (
	"fmt"
	"strings"

	"decostore-rest-api/internal/model"

	"github.com/shopspring/decimal"
)

// ProductRequest is one product of a quote request.
// PricingKey is the stitch count band or location key the table is keyed by.
type ProductRequest struct {
	StyleNumber    string               `json:"style_number" validate:"required"`
	Color          string               `json:"color" validate:"required"`
	DecorationType model.DecorationType `json:"decoration_type" validate:"required"`
	PricingKey     string               `json:"pricing_key"`
	Description    string               `json:"description"`
	Sizes          map[string]int       `json:"sizes" validate:"required,min=1"`
}

// QuoteRequest is everything needed to price a quote.
type QuoteRequest struct {
	Products           []ProductRequest `json:"products" validate:"required,min=1,dive"`
	SetupFees          []model.QuoteFee `json:"setup_fees" validate:"dive"`
	AdditionalServices []model.QuoteFee `json:"additional_services" validate:"dive"`
	Discount           decimal.Decimal  `json:"discount"`
	BackLogo           *BackLogo        `json:"back_logo,omitempty"`
}

// DecorationTypes returns the distinct decoration types in the request.
func (r QuoteRequest) DecorationTypes() []model.DecorationType {
	seen := make(map[model.DecorationType]bool)
	var out []model.DecorationType
	for _, p := range r.Products {
		if !seen[p.DecorationType] {
			seen[p.DecorationType] = true
			out = append(out, p.DecorationType)
		}
	}
	return out
}

// Tables maps each decoration type to its pricing table.
type Tables map[model.DecorationType]*model.PricingTable

// Calculator prices quotes.
type Calculator struct {
	ltm LTMConfig
}

// NewCalculator creates a calculator with the given LTM settings.
func NewCalculator(ltm LTMConfig) *Calculator {
	return &Calculator{ltm: ltm}
}

// LTM returns the calculator's LTM settings.
func (c *Calculator) LTM() LTMConfig {
	return c.ltm
}

// Calculate prices req against tables. Quantity tiers and LTM are driven by
// the aggregate quantity of each decoration type across the whole quote.
func (c *Calculator) Calculate(req QuoteRequest, tables Tables) (*model.PricedQuote, error) {
	totals := make(map[model.DecorationType]int)
	for _, p := range req.Products {
		for _, qty := range p.Sizes {
			if qty > 0 {
				totals[p.DecorationType] += qty
			}
		}
	}

	tiers := make(map[model.DecorationType]model.PricingTier)
	for dt, total := range totals {
		table, ok := tables[dt]
		if !ok || table == nil {
			return nil, fmt.Errorf("%w: no pricing table for %s", ErrPricingUnavailable, dt)
		}
		tier, err := SelectTier(table.Tiers, total)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dt, err)
		}
		tiers[dt] = tier
	}

	backLogo := decimal.Zero
	if req.BackLogo != nil {
		backLogo = req.BackLogo.Price()
	}

	quote := &model.PricedQuote{
		LineItems:               []model.QuoteLineItem{},
		Subtotal:                decimal.Zero,
		LTMFeeTotal:             decimal.Zero,
		SetupFees:               sumFees(req.SetupFees),
		AdditionalServicesTotal: sumFees(req.AdditionalServices),
		Discount:                req.Discount,
	}

	for _, p := range req.Products {
		if totals[p.DecorationType] == 0 {
			continue
		}
		addon := decimal.Zero
		if takesBackLogo(p.DecorationType) {
			addon = backLogo
		}
		lines, err := c.priceProduct(p, tables[p.DecorationType], tiers[p.DecorationType], totals[p.DecorationType], addon)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			quote.LineItems = append(quote.LineItems, l)
			quote.Subtotal = quote.Subtotal.Add(l.LineTotal)
			quote.TotalQuantity += l.Quantity
		}
	}

	for _, dt := range req.DecorationTypes() {
		total := totals[dt]
		if total == 0 {
			continue
		}
		summary := model.QuoteTypeSummary{
			DecorationType: dt,
			TotalQuantity:  total,
			Tier:           tiers[dt].Label,
			LTMPerUnit:     LTMPerUnit(total, c.ltm),
			LTMTotal:       LTMTotal(total, c.ltm),
		}
		quote.Types = append(quote.Types, summary)
		quote.LTMFeeTotal = quote.LTMFeeTotal.Add(summary.LTMTotal)
	}

	quote.GrandTotal = quote.Subtotal.
		Add(quote.SetupFees).
		Add(quote.AdditionalServicesTotal).
		Sub(quote.Discount).
		Round(2)

	return quote, nil
}

// takesBackLogo reports whether the embroidered back logo applies to dt.
func takesBackLogo(dt model.DecorationType) bool {
	return dt == model.DecorationEmbroidery || dt == model.DecorationCapEmbroidery
}

// priceProduct groups the product's sizes by identical base price.
func (c *Calculator) priceProduct(p ProductRequest, table *model.PricingTable, tier model.PricingTier, typeTotal int, backLogo decimal.Decimal) ([]model.QuoteLineItem, error) {
	sizes := make([]string, 0, len(p.Sizes))
	for size, qty := range p.Sizes {
		if qty > 0 {
			sizes = append(sizes, size)
		}
	}
	SortSizes(sizes)

	ltm := LTMPerUnit(typeTotal, c.ltm)

	type group struct {
		base  decimal.Decimal
		sizes []string
	}
	var groups []*group
	for _, size := range sizes {
		base, err := BasePrice(table, p.PricingKey, size, tier)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", p.StyleNumber, size, err)
		}
		var g *group
		for _, existing := range groups {
			if existing.base.Equal(base) {
				g = existing
				break
			}
		}
		if g == nil {
			g = &group{base: base}
			groups = append(groups, g)
		}
		g.sizes = append(g.sizes, size)
	}

	lines := make([]model.QuoteLineItem, 0, len(groups))
	for _, g := range groups {
		qty := 0
		sizeQty := make(map[string]int, len(g.sizes))
		for _, s := range g.sizes {
			sizeQty[s] = p.Sizes[s]
			qty += p.Sizes[s]
		}
		unit := g.base.Add(ltm).Add(backLogo)
		lines = append(lines, model.QuoteLineItem{
			StyleNumber:      p.StyleNumber,
			Color:            p.Color,
			DecorationType:   p.DecorationType,
			Description:      describe(p, g.sizes),
			Sizes:            sizeQty,
			Quantity:         qty,
			BasePrice:        g.base,
			LTMPerUnit:       ltm,
			BackLogoPrice:    backLogo,
			UnitPriceWithLTM: unit,
			LineTotal:        unit.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		})
	}
	return lines, nil
}

// BasePrice looks up the tier price of size for pricingKey.
func BasePrice(table *model.PricingTable, pricingKey, size string, tier model.PricingTier) (decimal.Decimal, error) {
	if table == nil {
		return decimal.Zero, fmt.Errorf("%w: no pricing table", ErrPricingUnavailable)
	}
	group := sizeGroup(table, size)
	for _, pp := range table.Prices {
		if strings.EqualFold(pp.PricingKey, pricingKey) &&
			strings.EqualFold(pp.SizeGroup, group) &&
			pp.TierLabel == tier.Label {
			return pp.UnitPrice, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no price for key %q size group %q tier %q",
		ErrPricingUnavailable, pricingKey, group, tier.Label)
}

func sizeGroup(table *model.PricingTable, size string) string {
	if g, ok := table.SizeGroups[size]; ok {
		return g
	}
	if g, ok := table.SizeGroups[strings.ToUpper(size)]; ok {
		return g
	}
	return size
}

func describe(p ProductRequest, sizes []string) string {
	name := p.Description
	if name == "" {
		name = fmt.Sprintf("%s %s", p.StyleNumber, p.Color)
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(sizes, ", "))
}

func sumFees(fees []model.QuoteFee) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.Amount)
	}
	return total
}
