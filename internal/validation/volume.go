package validation

import (
	"math"
	"strconv"
	"strings"
)

// validUnits are the units a quote may state its volume in. Weight units are
// accepted but have no conversion, so their value passes through unchanged.
var validUnits = map[string]bool{
	"kg": true, "lb": true, "lbs": true,
	"m3": true, "m³": true,
	"ft3": true, "ft³": true,
	"l": true, "liter": true, "litre": true, "ml": true,
	"in3": true, "in³": true,
	"yd3": true, "yd³": true,
	"gal": true,
}

// cubicMetres holds the factor from each unit to m³.
var cubicMetres = map[string]float64{
	"m3": 1, "m³": 1,
	"cm3": 1e-6, "cm³": 1e-6,
	"mm3": 1e-9, "mm³": 1e-9,
	"l": 0.001, "liter": 0.001, "litre": 0.001,
	"ml": 1e-6,
	"ft3": 0.0283168, "ft³": 0.0283168,
	"in3": 0.0000163871, "in³": 0.0000163871,
	"yd3": 0.764555, "yd³": 0.764555,
	"gal": 0.00378541, "us gal": 0.00378541,
	"imp gal": 0.00454609,
}

// ToCubicMeters converts volume to m³. Units without a factor, including
// weights, return volume unchanged.
func ToCubicMeters(volume float64, unit string) float64 {
	factor, ok := cubicMetres[canonicalUnit(unit)]
	if !ok {
		return volume
	}
	return volume * factor
}

// ValidateVolume parses a stated volume and returns it in m³. A value that
// does not parse, or parses to zero, counts as missing.
func ValidateVolume(value, unit string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	missing := err != nil || v == 0 || math.IsNaN(v)
	unit = canonicalUnit(unit)

	switch {
	case missing && unit == "":
		return 0, invalid(FieldVolume, "Volume and Unit is required")
	case missing:
		return 0, invalid(FieldVolume, "Volume is required")
	case unit == "":
		return 0, invalid(FieldUnit, "Unit is required")
	case v < 0 || math.IsInf(v, 0):
		return 0, invalid(FieldVolume, "Volume must be a positive number")
	case !validUnits[unit]:
		return 0, invalid(FieldUnit, "Invalid unit")
	}

	m3 := ToCubicMeters(v, unit)
	if !(m3 > 0) {
		return 0, invalid(FieldVolume, "Converted volume must be a positive number")
	}
	return m3, nil
}

func canonicalUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
