package pricing

import (
	"sort"
	"strings"
)

var sizeRank = map[string]int{
	"XS": 1, "S": 2, "M": 3, "L": 4, "XL": 5,
	"2XL": 6, "XXL": 6, "3XL": 7, "XXXL": 7, "4XL": 8, "5XL": 9, "6XL": 10,
	"OSFA": 20,
}

// SortSizes orders garment sizes smallest first. Unknown sizes sort last,
// alphabetically.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		ri, iok := sizeRank[strings.ToUpper(sizes[i])]
		rj, jok := sizeRank[strings.ToUpper(sizes[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return sizes[i] < sizes[j]
	})
}
