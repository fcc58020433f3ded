package marketpack

import (
	"strings"

	id "marketgate/pkg/domain"
)

const (
	MarketNYC          id.MarketID = "nyc"
	MarketSanFrancisco id.MarketID = "us_ca_sf"
)

var nycLocalities = map[string]struct{}{
	"new york":      {},
	"new york city": {},
	"nyc":           {},
	"manhattan":     {},
	"brooklyn":      {},
	"queens":        {},
	"bronx":         {},
	"the bronx":     {},
	"staten island": {},
}

// ResolveJurisdiction maps a free-form city/state pair to a market ID.
// Addresses that match no known jurisdiction map to DefaultMarketID.
func ResolveJurisdiction(city, state string) id.MarketID {
	c := normalizePlace(city)
	s := normalizePlace(state)

	switch s {
	case "ny", "new york":
		if _, ok := nycLocalities[c]; ok {
			return MarketNYC
		}
	case "ca", "california":
		if c == "san francisco" || c == "sf" {
			return MarketSanFrancisco
		}
	}
	return DefaultMarketID
}

func normalizePlace(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimSuffix(v, ".")
	return strings.Join(strings.Fields(v), " ")
}
