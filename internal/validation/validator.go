// Package validation checks quote inputs before any pricing work starts and
// converts volumes to cubic metres.
package validation

import (
	"math"
	"strings"
)

// Address roles.
const (
	Origin      = "Origin"
	Destination = "Destination"
)

// ValidateAddress rejects a blank address. role is Origin or Destination.
func ValidateAddress(role, address string) error {
	if strings.TrimSpace(address) == "" {
		return invalid(roleField(role), role+" address is required")
	}
	return nil
}

// ValidateAddresses checks both ends of a transport move.
func ValidateAddresses(origin, destination string) error {
	if strings.TrimSpace(origin) == "" && strings.TrimSpace(destination) == "" {
		return invalid(FieldAddresses, "Origin and Destination addresses are required")
	}
	if err := ValidateAddress(Origin, origin); err != nil {
		return err
	}
	return ValidateAddress(Destination, destination)
}

// UnresolvedAddress reports an address the geocoder could not place.
func UnresolvedAddress(role string) error {
	return invalid(roleField(role), role+" address is invalid")
}

// UnresolvedAddresses reports a move where neither address could be placed.
func UnresolvedAddresses() error {
	return invalid(FieldAddresses, "Origin and Destination addresses are invalid")
}

// ValidateDistance rejects zero, negative and non-finite distances. Two
// addresses geocoding to the same point cannot be priced by distance.
func ValidateDistance(km float64) error {
	if !(km > 0) || math.IsInf(km, 0) {
		return invalid(FieldDistance, "Calculated distance is invalid")
	}
	return nil
}

func roleField(role string) string {
	if role == Destination {
		return FieldDestination
	}
	return FieldOrigin
}
