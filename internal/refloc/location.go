// Package refloc stores the geocoded reference locations that addresses are
// snapped to before a rate lookup.
package refloc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rate-estimator/internal/geo"
)

// Category separates domestic operation towns from freight ports.
type Category string

const (
	Domestic Category = "domestic"
	Freight  Category = "freight"
)

// UnknownCountry is stored for names without a trailing country code.
const UnknownCountry = "UNK"

// Location is a named point.
type Location struct {
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Category  Category `json:"category"`
}

func (l Location) Coordinates() geo.Point {
	return geo.Point{Lat: l.Latitude, Lng: l.Longitude}
}

// Repository persists reference locations. Save replaces an existing entry
// with the same name and category.
type Repository interface {
	Exists(ctx context.Context, name string, cat Category) (bool, error)
	Save(ctx context.Context, loc Location) error
	ByCountry(ctx context.Context, country string, cat Category) ([]Location, error)
	All(ctx context.Context, cat Category) ([]Location, error)
}

// CountryISO returns the trailing comma-separated component when it is two
// characters long ("Rotterdam, ZH, NL" -> "NL"), else UnknownCountry.
func CountryISO(location string) string {
	parts := strings.Split(location, ",")
	iso := strings.TrimSpace(parts[len(parts)-1])
	if len(iso) == 2 {
		return strings.ToUpper(iso)
	}
	return UnknownCountry
}

func (l Location) validate() error {
	switch {
	case l.Name == "":
		return errors.New("refloc: location name is empty")
	case l.Category != Domestic && l.Category != Freight:
		return fmt.Errorf("refloc: unknown category %q", l.Category)
	}
	return nil
}
