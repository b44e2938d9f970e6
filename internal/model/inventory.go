package model

import "strings"

// Inventory is the live stock of one style/color, itemized by size and warehouse.
type Inventory struct {
	StyleNumber string             `json:"style_number"`
	Color       string             `json:"color"`
	Sizes       []SizeAvailability `json:"sizes"`
}

// SizeAvailability is the stock of one size in one warehouse.
type SizeAvailability struct {
	Size      string `json:"size"`
	Warehouse string `json:"warehouse,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Available returns the stock for size summed across warehouses.
// Sizes the inventory does not list have no stock.
func (inv *Inventory) Available(size string) int {
	if inv == nil {
		return 0
	}
	total := 0
	for _, s := range inv.Sizes {
		if strings.EqualFold(s.Size, size) && s.Quantity > 0 {
			total += s.Quantity
		}
	}
	return total
}

// Shortfall describes a size whose requested quantity exceeds stock.
type Shortfall struct {
	Size      string `json:"size"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
