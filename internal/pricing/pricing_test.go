package pricing

import (
	"errors"
	"testing"

	"decostore-rest-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func embroideryTable() *model.PricingTable {
	prices := []model.PriceProfile{}
	for tier, base := range map[string]string{"1-23": "15.00", "24-47": "12.00", "48-71": "11.00", "72+": "10.00"} {
		prices = append(prices,
			model.PriceProfile{PricingKey: "8000", SizeGroup: "S-XL", TierLabel: tier, UnitPrice: dec(base)},
			model.PriceProfile{PricingKey: "8000", SizeGroup: "2XL", TierLabel: tier, UnitPrice: dec(base).Add(dec("2.00"))},
		)
	}
	return &model.PricingTable{
		DecorationType: model.DecorationEmbroidery,
		Tiers:          DefaultTiers(),
		Prices:         prices,
		SizeGroups: map[string]string{
			"S": "S-XL", "M": "S-XL", "L": "S-XL", "XL": "S-XL", "2XL": "2XL",
		},
	}
}

func TestSelectTier(t *testing.T) {
	tiers := DefaultTiers()

	tests := []struct {
		name  string
		total int
		want  string
	}{
		{"below every tier uses lowest", 0, "1-23"},
		{"lower bound inclusive", 1, "1-23"},
		{"upper bound inclusive", 23, "1-23"},
		{"next band", 24, "24-47"},
		{"middle band", 50, "48-71"},
		{"open ended", 72, "72+"},
		{"large order", 5000, "72+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := SelectTier(tiers, tt.total)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tier.Label)
		})
	}
}

func TestSelectTier_NoTiers(t *testing.T) {
	_, err := SelectTier(nil, 10)
	assert.True(t, errors.Is(err, ErrPricingUnavailable))
}

func TestSelectTier_LabelOnlyAndUnsorted(t *testing.T) {
	tiers := []model.PricingTier{
		{Label: "72+"},
		{Label: "24-47"},
		{Label: "1-23"},
		{Label: "48-71"},
	}

	tier, err := SelectTier(tiers, 30)
	require.NoError(t, err)
	assert.Equal(t, "24-47", tier.Label)

	tier, err = SelectTier(tiers, 100)
	require.NoError(t, err)
	assert.Equal(t, "72+", tier.Label)
}

func TestSortTiers_TierOrderWins(t *testing.T) {
	one, two := 1, 2
	tiers := []model.PricingTier{
		{Label: "B", MinQuantity: 1, TierOrder: &two},
		{Label: "A", MinQuantity: 50, TierOrder: &one},
		{Label: "C", MinQuantity: 10},
	}

	sorted := SortTiers(tiers)
	assert.Equal(t, []string{"A", "B", "C"}, []string{sorted[0].Label, sorted[1].Label, sorted[2].Label})
	assert.Equal(t, "B", tiers[0].Label, "input must not be reordered")
}

func TestSelectTier_Monotonic(t *testing.T) {
	tiers := DefaultTiers()
	prevMin := 0
	for q := 1; q <= 200; q++ {
		tier, err := SelectTier(tiers, q)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tier.MinQuantity, prevMin, "quantity %d", q)
		prevMin = tier.MinQuantity
	}
}

func TestLTMPerUnit(t *testing.T) {
	cfg := DefaultLTM()

	assert.True(t, LTMPerUnit(0, cfg).IsZero())
	assert.True(t, LTMPerUnit(24, cfg).IsZero())
	assert.True(t, LTMPerUnit(100, cfg).IsZero())
	assert.True(t, LTMPerUnit(10, cfg).Equal(dec("5")))
	assert.True(t, LTMPerUnit(1, cfg).Equal(dec("50")))

	for q := 1; q < cfg.Threshold; q++ {
		total := LTMPerUnit(q, cfg).Mul(decimal.NewFromInt(int64(q))).Round(2)
		assert.True(t, total.Equal(dec("50.00")), "quantity %d amortizes to %s", q, total)
	}
}

func TestLocationSelection(t *testing.T) {
	t.Run("front and back combine front first", func(t *testing.T) {
		s, err := NewLocationSelection("FB", "LC")
		require.NoError(t, err)
		assert.Equal(t, "LC_FB", s.Key())
	})

	t.Run("same side replaces", func(t *testing.T) {
		s, err := NewLocationSelection("LC", "JF")
		require.NoError(t, err)
		assert.Equal(t, "JF", s.Key())
		require.Len(t, s.Selected(), 1)
		assert.Equal(t, "JF", s.Selected()[0].Code)
	})

	t.Run("reselect deselects", func(t *testing.T) {
		s, err := NewLocationSelection("LC", "LC")
		require.NoError(t, err)
		assert.Empty(t, s.Key())
	})

	t.Run("back of neck priced as left chest", func(t *testing.T) {
		s, err := NewLocationSelection("FF", "BN")
		require.NoError(t, err)
		assert.Equal(t, "FF_LC", s.Key())
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := NewLocationSelection("ZZ")
		assert.Error(t, err)
	})
}

func TestBackLogoPrice(t *testing.T) {
	tests := []struct {
		stitches int
		want     string
	}{
		{3000, "5"},
		{5000, "5"},
		{8500, "8"},
		{25000, "25"},
		{40000, "25"},
	}
	for _, tt := range tests {
		got := DefaultBackLogo(tt.stitches).Price()
		assert.True(t, got.Equal(dec(tt.want)), "stitches %d: got %s", tt.stitches, got)
	}

	assert.True(t, BackLogo{}.Price().IsZero())
}

func TestCalculate_TenPieceEmbroidery(t *testing.T) {
	calc := NewCalculator(DefaultLTM())
	req := QuoteRequest{Products: []ProductRequest{{
		StyleNumber:    "PC54",
		Color:          "Navy",
		DecorationType: model.DecorationEmbroidery,
		PricingKey:     "8000",
		Sizes:          map[string]int{"S": 2, "M": 4, "L": 4},
	}}}

	quote, err := calc.Calculate(req, Tables{model.DecorationEmbroidery: embroideryTable()})
	require.NoError(t, err)

	require.Len(t, quote.LineItems, 1)
	line := quote.LineItems[0]
	assert.Equal(t, 10, line.Quantity)
	assert.True(t, line.LTMPerUnit.Equal(dec("5.00")))
	assert.True(t, line.UnitPriceWithLTM.Equal(dec("20.00")))
	assert.True(t, quote.Subtotal.Equal(dec("200.00")))
	assert.True(t, quote.LTMFeeTotal.Equal(dec("50.00")))
	assert.True(t, quote.GrandTotal.Equal(dec("200.00")))

	require.Len(t, quote.Types, 1)
	assert.Equal(t, "1-23", quote.Types[0].Tier)
}

func TestCalculate_GroupsByPriceAndAggregatesAcrossProducts(t *testing.T) {
	calc := NewCalculator(DefaultLTM())
	req := QuoteRequest{
		Products: []ProductRequest{
			{StyleNumber: "PC54", Color: "Navy", DecorationType: model.DecorationEmbroidery, PricingKey: "8000",
				Sizes: map[string]int{"M": 10, "2XL": 4, "XS": 0}},
			{StyleNumber: "PC61", Color: "Red", DecorationType: model.DecorationEmbroidery, PricingKey: "8000",
				Sizes: map[string]int{"L": 12}},
		},
		SetupFees:          []model.QuoteFee{{Description: "Digitizing", Amount: dec("100.00")}},
		AdditionalServices: []model.QuoteFee{{Description: "Names", Amount: dec("20.00")}},
		Discount:           dec("10.00"),
	}

	quote, err := calc.Calculate(req, Tables{model.DecorationEmbroidery: embroideryTable()})
	require.NoError(t, err)

	// 26 pieces puts both products in the 24-47 tier with no LTM.
	require.Len(t, quote.LineItems, 3)
	assert.Equal(t, 26, quote.TotalQuantity)
	assert.True(t, quote.LTMFeeTotal.IsZero())

	assert.True(t, quote.LineItems[0].BasePrice.Equal(dec("12.00")))
	assert.Equal(t, map[string]int{"M": 10}, quote.LineItems[0].Sizes)
	assert.True(t, quote.LineItems[1].BasePrice.Equal(dec("14.00")))
	assert.Equal(t, map[string]int{"2XL": 4}, quote.LineItems[1].Sizes)

	// 120 + 56 + 144
	assert.True(t, quote.Subtotal.Equal(dec("320.00")))
	assert.True(t, quote.GrandTotal.Equal(dec("430.00")))
}

func TestCalculate_BackLogoAddedPerPiece(t *testing.T) {
	calc := NewCalculator(DefaultLTM())
	bl := DefaultBackLogo(7000)
	req := QuoteRequest{
		Products: []ProductRequest{{StyleNumber: "PC54", Color: "Navy", DecorationType: model.DecorationEmbroidery,
			PricingKey: "8000", Sizes: map[string]int{"L": 24}}},
		BackLogo: &bl,
	}

	quote, err := calc.Calculate(req, Tables{model.DecorationEmbroidery: embroideryTable()})
	require.NoError(t, err)
	assert.True(t, quote.LineItems[0].UnitPriceWithLTM.Equal(dec("19.00")))
	assert.True(t, quote.Subtotal.Equal(dec("456.00")))

	t.Run("only embroidered products", func(t *testing.T) {
		dtg := embroideryTable()
		dtg.DecorationType = model.DecorationDTG
		mixed := QuoteRequest{
			Products: []ProductRequest{
				{StyleNumber: "PC54", Color: "Navy", DecorationType: model.DecorationEmbroidery,
					PricingKey: "8000", Sizes: map[string]int{"L": 24}},
				{StyleNumber: "PC61", Color: "Red", DecorationType: model.DecorationDTG,
					PricingKey: "8000", Sizes: map[string]int{"L": 24}},
			},
			BackLogo: &bl,
		}

		quote, err := calc.Calculate(mixed, Tables{
			model.DecorationEmbroidery: embroideryTable(),
			model.DecorationDTG:        dtg,
		})
		require.NoError(t, err)
		require.Len(t, quote.LineItems, 2)

		emb, dtgLine := quote.LineItems[0], quote.LineItems[1]
		assert.Equal(t, model.DecorationEmbroidery, emb.DecorationType)
		assert.True(t, emb.BackLogoPrice.Equal(dec("7.00")))
		assert.True(t, emb.UnitPriceWithLTM.Equal(dec("19.00")))

		assert.Equal(t, model.DecorationDTG, dtgLine.DecorationType)
		assert.True(t, dtgLine.BackLogoPrice.IsZero())
		assert.True(t, dtgLine.UnitPriceWithLTM.Equal(dec("12.00")))
		assert.True(t, quote.Subtotal.Equal(dec("744.00")))
	})
}

func TestCalculate_MissingPricing(t *testing.T) {
	calc := NewCalculator(DefaultLTM())

	t.Run("missing table", func(t *testing.T) {
		req := QuoteRequest{Products: []ProductRequest{{StyleNumber: "PC54", Color: "Navy",
			DecorationType: model.DecorationDTG, Sizes: map[string]int{"L": 1}}}}
		_, err := calc.Calculate(req, Tables{})
		assert.ErrorIs(t, err, ErrPricingUnavailable)
	})

	t.Run("missing size group price", func(t *testing.T) {
		req := QuoteRequest{Products: []ProductRequest{{StyleNumber: "PC54", Color: "Navy",
			DecorationType: model.DecorationEmbroidery, PricingKey: "8000", Sizes: map[string]int{"6XL": 1}}}}
		_, err := calc.Calculate(req, Tables{model.DecorationEmbroidery: embroideryTable()})
		assert.ErrorIs(t, err, ErrPricingUnavailable)
	})

	t.Run("missing pricing key", func(t *testing.T) {
		req := QuoteRequest{Products: []ProductRequest{{StyleNumber: "PC54", Color: "Navy",
			DecorationType: model.DecorationEmbroidery, PricingKey: "12000", Sizes: map[string]int{"L": 1}}}}
		_, err := calc.Calculate(req, Tables{model.DecorationEmbroidery: embroideryTable()})
		assert.ErrorIs(t, err, ErrPricingUnavailable)
	})
}

func TestSortSizes(t *testing.T) {
	sizes := []string{"2XL", "Youth", "S", "XL", "M", "OSFA", "L"}
	SortSizes(sizes)
	assert.Equal(t, []string{"S", "M", "L", "XL", "2XL", "OSFA", "Youth"}, sizes)
}
