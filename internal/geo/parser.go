package geo

import (
	"strings"
	"unicode"

	"github.com/rate-estimator/internal/normalize"
)

// AddressParser extracts the country component of a free-text address.
type AddressParser interface {
	// Country returns an upper-case ISO-2 code, or "" when none is found.
	Country(address string) string
}

// commaParser reads the last comma-separated component that names a
// country, which is how rate sheets and web forms write addresses
// ("Maasvlakte, Rotterdam, NL"). A bare two-letter code only counts as the
// final component, ignoring postcodes, and never when it is also a US state
// or Canadian province abbreviation ("Cupertino, CA").
type commaParser struct{}

func (commaParser) Country(address string) string {
	parts := strings.Split(address, ",")
	last := true
	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.TrimSpace(parts[i])
		if part == "" || hasDigit(part) {
			continue
		}

		if normalize.IsCode(part) {
			if last && !subdivisionCodes[strings.ToUpper(part)] {
				if code, ok := normalize.CountryCode(part); ok {
					return code
				}
			}
		} else if code, ok := normalize.CountryCode(part); ok {
			return code
		}
		last = false
	}
	return ""
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// subdivisionCodes are US state and Canadian province abbreviations that are
// also ISO country codes. DE and NL are left out: rate sheets use them for
// Germany and the Netherlands.
var subdivisionCodes = map[string]bool{
	"AL": true, "AR": true, "AS": true, "AZ": true, "CA": true, "CO": true,
	"CT": true, "GA": true, "GU": true, "ID": true, "IL": true, "IN": true,
	"KY": true, "LA": true, "MA": true, "MD": true, "ME": true, "MN": true,
	"MO": true, "MP": true, "MS": true, "MT": true, "NC": true, "NE": true,
	"PA": true, "PE": true, "PR": true, "SC": true, "SD": true, "TN": true,
	"UM": true, "VA": true, "VI": true,
}
