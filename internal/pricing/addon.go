package pricing

import "github.com/shopspring/decimal"

// BackLogo is the optional embroidered back logo added per piece.
type BackLogo struct {
	Enabled     bool            `json:"enabled"`
	StitchCount int             `json:"stitch_count"`
	Min         int             `json:"min"`
	Max         int             `json:"max"`
	Increment   int             `json:"increment"`
	BasePrice   decimal.Decimal `json:"base_price"`
	PerThousand decimal.Decimal `json:"per_thousand"`
}

// DefaultBackLogo returns the standard back logo rates with the given stitches.
func DefaultBackLogo(stitches int) BackLogo {
	return BackLogo{
		Enabled:     true,
		StitchCount: stitches,
		Min:         5000,
		Max:         25000,
		Increment:   1000,
		BasePrice:   decimal.NewFromFloat(5.00),
		PerThousand: decimal.NewFromFloat(1.00),
	}
}

// Stitches returns the stitch count clamped to [Min, Max] and snapped down to
// Increment.
func (b BackLogo) Stitches() int {
	s := b.StitchCount
	if b.Max > 0 && s > b.Max {
		s = b.Max
	}
	if s < b.Min {
		s = b.Min
	}
	if b.Increment > 0 {
		s = (s / b.Increment) * b.Increment
		if s < b.Min {
			s = b.Min
		}
	}
	return s
}

// Price returns the per-piece back logo charge.
func (b BackLogo) Price() decimal.Decimal {
	if !b.Enabled {
		return decimal.Zero
	}
	extra := b.Stitches() - b.Min
	if extra < 0 {
		extra = 0
	}
	thousands := decimal.NewFromInt(int64(extra)).Div(decimal.NewFromInt(1000))
	return b.BasePrice.Add(thousands.Mul(b.PerThousand))
}
