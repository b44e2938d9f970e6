package pricing

import "github.com/shopspring/decimal"

// LTMConfig describes the less-than-minimum fee charged on small orders.
type LTMConfig struct {
	Threshold int
	Fee       decimal.Decimal
}

// DefaultLTM is a 50.00 fee on orders below 24 pieces.
func DefaultLTM() LTMConfig {
	return LTMConfig{Threshold: 24, Fee: decimal.NewFromFloat(50.00)}
}

// LTMPerUnit amortizes the fee over total pieces of a decoration type.
// The result keeps full precision; round only at line totals.
func LTMPerUnit(total int, cfg LTMConfig) decimal.Decimal {
	if total <= 0 || total >= cfg.Threshold {
		return decimal.Zero
	}
	return cfg.Fee.Div(decimal.NewFromInt(int64(total)))
}

// LTMTotal is the fee actually charged for total pieces.
func LTMTotal(total int, cfg LTMConfig) decimal.Decimal {
	if total <= 0 || total >= cfg.Threshold {
		return decimal.Zero
	}
	return cfg.Fee
}
