package model

import "github.com/shopspring/decimal"

// PricingTier is a quantity band of a decoration type's pricing table.
// MaxQuantity of 0 means the band is open ended ("72+").
type PricingTier struct {
	Label       string `json:"label"`
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity int    `json:"max_quantity"`
	TierOrder   *int   `json:"tier_order,omitempty"`
}

// PriceProfile is one priced cell of a pricing table: the base unit price for
// a pricing key (stitch count or location code), a size group and a tier.
type PriceProfile struct {
	PricingKey string          `json:"pricing_key"`
	SizeGroup  string          `json:"size_group"`
	TierLabel  string          `json:"tier_label"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// PricingTable is the reference pricing data for one decoration type.
type PricingTable struct {
	DecorationType DecorationType    `json:"decoration_type"`
	Tiers          []PricingTier     `json:"tiers"`
	Prices         []PriceProfile    `json:"prices"`
	SizeGroups     map[string]string `json:"size_groups,omitempty"`
}

// StylePrice is the display price list of one garment style.
type StylePrice struct {
	StyleNumber string          `json:"style_number"`
	Sizes       []SizePrice     `json:"sizes"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
}

// SizePrice is the display price of one size.
type SizePrice struct {
	Size  string          `json:"size"`
	Price decimal.Decimal `json:"price"`
}
