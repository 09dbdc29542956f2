package validation

import (
	"errors"
	"math"
	"testing"
)

func TestValidateAddresses(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		destination string
		wantField   string
		wantMessage string
	}{
		{"both present", "Keizersgracht 1, Amsterdam", "Hauptstrasse 5, Berlin", "", ""},
		{"both missing", "", "  ", FieldAddresses, "Origin and Destination addresses are required"},
		{"origin missing", " ", "Hauptstrasse 5, Berlin", FieldOrigin, "Origin address is required"},
		{"destination missing", "Keizersgracht 1, Amsterdam", "", FieldDestination, "Destination address is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddresses(tt.origin, tt.destination)
			if tt.wantMessage == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if verr.Field != tt.wantField || verr.Message != tt.wantMessage {
				t.Errorf("got %s, want %s: %s", verr, tt.wantField, tt.wantMessage)
			}
		})
	}
}

func TestUnresolvedAddress(t *testing.T) {
	if got := UnresolvedAddress(Destination).Error(); got != "Destination address is invalid" {
		t.Errorf("got %q", got)
	}
	if got := UnresolvedAddresses().Error(); got != "Origin and Destination addresses are invalid" {
		t.Errorf("got %q", got)
	}
}

func TestValidateDistance(t *testing.T) {
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if ValidateDistance(d) == nil {
			t.Errorf("ValidateDistance(%v) accepted", d)
		}
	}
	if err := ValidateDistance(12.5); err != nil {
		t.Errorf("ValidateDistance(12.5) = %v", err)
	}
}

func TestValidateVolume(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		unit        string
		want        float64
		wantMessage string
	}{
		{"cubic metres", "12", "m3", 12, ""},
		{"superscript unit", "2", "m³", 2, ""},
		{"unit case and space", "1000", " L ", 1, ""},
		{"cubic feet", "100", "ft3", 2.83168, ""},
		{"weight passes through", "500", "kg", 500, ""},
		{"nothing", "", "", 0, "Volume and Unit is required"},
		{"zero counts as missing", "0", "m3", 0, "Volume is required"},
		{"not a number", "lots", "m3", 0, "Volume is required"},
		{"no unit", "3", "", 0, "Unit is required"},
		{"negative", "-3", "m3", 0, "Volume must be a positive number"},
		{"unknown unit", "3", "pallets", 0, "Invalid unit"},
		{"convertible but not accepted", "3", "cm3", 0, "Invalid unit"},
		{"underflows", "1e-320", "ml", 0, "Converted volume must be a positive number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateVolume(tt.value, tt.unit)
			if tt.wantMessage != "" {
				if err == nil || err.Error() != tt.wantMessage {
					t.Fatalf("error = %v, want %q", err, tt.wantMessage)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ValidateVolume(%q, %q) = %v, want %v", tt.value, tt.unit, got, tt.want)
			}
		})
	}
}

func TestToCubicMeters(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{"m3", 10},
		{"cm3", 10e-6},
		{"yd3", 7.64555},
		{"gal", 0.0378541},
		{"imp gal", 0.0454609},
		{"us gal", 0.0378541},
		{"crates", 10},
	}

	for _, tt := range tests {
		if got := ToCubicMeters(10, tt.unit); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ToCubicMeters(10, %q) = %v, want %v", tt.unit, got, tt.want)
		}
	}
}
