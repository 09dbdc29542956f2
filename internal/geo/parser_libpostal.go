//go:build libpostal

package geo

import (
	postal "github.com/openvenues/gopostal/parser"

	"github.com/rate-estimator/internal/normalize"
)

// libpostalParser labels address components with libpostal and falls back
// to comma splitting when no country component is recognised.
type libpostalParser struct {
	fallback commaParser
}

// NewAddressParser returns a libpostal-backed parser.
func NewAddressParser() AddressParser {
	return libpostalParser{}
}

func (p libpostalParser) Country(address string) string {
	for _, component := range postal.ParseAddress(address) {
		if component.Label != "country" {
			continue
		}
		if code, ok := normalize.CountryCode(component.Value); ok {
			return code
		}
	}
	return p.fallback.Country(address)
}
