//go:build !libpostal

package geo

// NewAddressParser returns the comma-splitting parser. Build with the
// libpostal tag to parse with libpostal instead.
func NewAddressParser() AddressParser {
	return commaParser{}
}
