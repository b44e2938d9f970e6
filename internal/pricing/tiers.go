// Package pricing implements quote pricing over external pricing tables.
// Every function is pure: tables are inputs, never mutated or cached here.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"decostore-rest-api/internal/model"
)

// ErrPricingUnavailable is returned when a price cannot be derived from the
// supplied tables. Callers must not fall back to a guessed price.
var ErrPricingUnavailable = errors.New("pricing unavailable")

// DefaultTiers returns the standard quantity bands.
func DefaultTiers() []model.PricingTier {
	return []model.PricingTier{
		{Label: "1-23", MinQuantity: 1, MaxQuantity: 23},
		{Label: "24-47", MinQuantity: 24, MaxQuantity: 47},
		{Label: "48-71", MinQuantity: 48, MaxQuantity: 71},
		{Label: "72+", MinQuantity: 72},
	}
}

// SortTiers returns a copy of tiers ordered by TierOrder when present, then by
// numeric lower bound, then by label.
func SortTiers(tiers []model.PricingTier) []model.PricingTier {
	out := append([]model.PricingTier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.TierOrder != nil && b.TierOrder != nil:
			if *a.TierOrder != *b.TierOrder {
				return *a.TierOrder < *b.TierOrder
			}
		case a.TierOrder != nil:
			return true
		case b.TierOrder != nil:
			return false
		}
		if ma, mb := tierMin(a), tierMin(b); ma != mb {
			return ma < mb
		}
		return a.Label < b.Label
	})
	return out
}

// SelectTier returns the tier whose band contains total. Both bounds are
// inclusive, so a "1-23" band covers 23 and a MaxQuantity of 0 is open ended.
// A total below every band uses the lowest tier; a total beyond every closed
// band uses the highest tier it has reached.
func SelectTier(tiers []model.PricingTier, total int) (model.PricingTier, error) {
	if len(tiers) == 0 {
		return model.PricingTier{}, fmt.Errorf("%w: no pricing tiers", ErrPricingUnavailable)
	}

	sorted := SortTiers(tiers)
	for _, t := range sorted {
		if total >= tierMin(t) && (tierMax(t) == 0 || total <= tierMax(t)) {
			return t, nil
		}
	}

	reached := sorted[0]
	for _, t := range sorted {
		if tierMin(t) <= total {
			reached = t
		}
	}
	return reached, nil
}

func tierMin(t model.PricingTier) int {
	if t.MinQuantity > 0 {
		return t.MinQuantity
	}
	min, _ := parseLabel(t.Label)
	return min
}

func tierMax(t model.PricingTier) int {
	if t.MaxQuantity > 0 || t.MinQuantity > 0 {
		return t.MaxQuantity
	}
	_, max := parseLabel(t.Label)
	return max
}

// parseLabel reads bands written as "24-47" or "72+".
func parseLabel(label string) (min, max int) {
	label = strings.TrimSpace(label)
	if strings.HasSuffix(label, "+") {
		min, _ = strconv.Atoi(leadingDigits(label))
		return min, 0
	}
	parts := strings.SplitN(label, "-", 2)
	min, _ = strconv.Atoi(leadingDigits(parts[0]))
	if len(parts) == 2 {
		max, _ = strconv.Atoi(leadingDigits(strings.TrimSpace(parts[1])))
	}
	return min, max
}

func leadingDigits(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}
