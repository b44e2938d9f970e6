package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Side is the garment side a print location sits on.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Location is a decoration placement. PricingCode is the code used to look
// prices up; aliases share the code of the location they are priced as.
type Location struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Side        Side   `json:"side"`
	PricingCode string `json:"pricing_code"`
}

var locations = []Location{
	{Code: "LC", Name: "Left Chest", Side: SideFront, PricingCode: "LC"},
	{Code: "RC", Name: "Right Chest", Side: SideFront, PricingCode: "LC"},
	{Code: "FF", Name: "Full Front", Side: SideFront, PricingCode: "FF"},
	{Code: "JF", Name: "Jumbo Front", Side: SideFront, PricingCode: "JF"},
	{Code: "FB", Name: "Full Back", Side: SideBack, PricingCode: "FB"},
	{Code: "JB", Name: "Jumbo Back", Side: SideBack, PricingCode: "JB"},
	{Code: "BN", Name: "Back of Neck", Side: SideBack, PricingCode: "LC"},
}

// Locations returns the location catalog.
func Locations() []Location {
	return append([]Location(nil), locations...)
}

// LookupLocation finds a location by code, case-insensitively.
func LookupLocation(code string) (Location, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, l := range locations {
		if l.Code == code {
			return l, true
		}
	}
	return Location{}, false
}

// LocationSelection holds at most one location per garment side.
type LocationSelection struct {
	selected map[Side]Location
}

// NewLocationSelection selects codes in order, as if toggled one by one.
func NewLocationSelection(codes ...string) (*LocationSelection, error) {
	s := &LocationSelection{selected: make(map[Side]Location)}
	for _, c := range codes {
		if err := s.Toggle(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Toggle selects code, replacing any selection on the same side.
// Toggling the currently selected location deselects it.
func (s *LocationSelection) Toggle(code string) error {
	loc, ok := LookupLocation(code)
	if !ok {
		return fmt.Errorf("unknown print location %q", code)
	}
	if s.selected == nil {
		s.selected = make(map[Side]Location)
	}
	if cur, ok := s.selected[loc.Side]; ok && cur.Code == loc.Code {
		delete(s.selected, loc.Side)
		return nil
	}
	s.selected[loc.Side] = loc
	return nil
}

// Selected returns the selected locations, front first.
func (s *LocationSelection) Selected() []Location {
	out := make([]Location, 0, len(s.selected))
	for _, l := range s.selected {
		out = append(out, l)
	}
	sortLocations(out)
	return out
}

// Key returns the combined pricing key, e.g. "LC_FB".
func (s *LocationSelection) Key() string {
	selected := s.Selected()
	codes := make([]string, len(selected))
	for i, l := range selected {
		codes[i] = l.PricingCode
	}
	return strings.Join(codes, "_")
}

func sortLocations(ls []Location) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Side != ls[j].Side {
			return ls[i].Side == SideFront
		}
		return ls[i].PricingCode < ls[j].PricingCode
	})
}
