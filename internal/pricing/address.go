package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/normalize"
	"github.com/rate-estimator/internal/refloc"
)

// Address is a location as people submit it: either one raw line or a
// street address plus country.
type Address struct {
	RawInput   string `json:"raw_input,omitempty"`
	Address    string `json:"address,omitempty"`
	Country    string `json:"country,omitempty"`
	CountryISO string `json:"country_iso,omitempty"`
}

// Text is the line sent to the geocoder.
func (a Address) Text() string {
	if raw := strings.TrimSpace(a.RawInput); raw != "" {
		return raw
	}
	addr := strings.TrimSpace(a.Address)
	if addr == "" {
		return ""
	}
	if country := strings.TrimSpace(a.Country); country != "" {
		return addr + ", " + country
	}
	return addr
}

// Volume is a stated shipment volume. Value accepts a JSON number or a
// numeric string.
type Volume struct {
	Value json.Number `json:"value"`
	Unit  string      `json:"unit"`
}

// Region types.
const (
	RegionDomestic      = "domestic"
	RegionInternational = "international"
)

// isDomestic treats an unset region as domestic.
func isDomestic(region string) bool {
	region = strings.TrimSpace(region)
	return region == "" || strings.EqualFold(region, RegionDomestic)
}

// countryISO prefers the explicit code, then the country name, then the
// country found in the address text.
func (s *Service) countryISO(a Address) string {
	if iso := strings.TrimSpace(a.CountryISO); iso != "" {
		return strings.ToUpper(iso)
	}
	if code, ok := normalize.CountryCode(a.Country); ok {
		return code
	}
	return s.parser.Country(a.Text())
}

// locator geocodes each distinct address once per request.
type locator struct {
	s      *Service
	points map[string]*geo.Point
}

func (s *Service) newLocator() *locator {
	return &locator{s: s, points: make(map[string]*geo.Point)}
}

// point returns the coordinates of text. Any geocoder failure counts as
// unresolved; a missing position is never treated as distance 0.
func (l *locator) point(ctx context.Context, text string) (geo.Point, bool) {
	if p, seen := l.points[text]; seen {
		if p == nil {
			return geo.Point{}, false
		}
		return *p, true
	}
	if l.s.geocoder == nil {
		l.points[text] = nil
		return geo.Point{}, false
	}

	p, err := l.s.geocoder.Geocode(ctx, text)
	if err != nil {
		if !errors.Is(err, geo.ErrNoResult) {
			l.s.log.Warn("geocoding failed", zap.String("address", text), zap.Error(err))
		}
		l.points[text] = nil
		return geo.Point{}, false
	}
	l.points[text] = &p
	return p, true
}

// nearestTown returns the domestic operation closest to p.
func (s *Service) nearestTown(ctx context.Context, p geo.Point) (refloc.Location, float64, error) {
	towns, err := s.locations.All(ctx, refloc.Domestic)
	if err != nil {
		return refloc.Location{}, 0, err
	}
	town, distance, ok := geo.Nearest(towns, p)
	if !ok {
		return refloc.Location{}, 0, errors.New("no domestic reference locations available")
	}
	return town, distance, nil
}

// nearestPort returns the freight location in country closest to p.
func (s *Service) nearestPort(ctx context.Context, country string, p geo.Point) (refloc.Location, error) {
	if country == "" {
		return refloc.Location{}, errors.New("country could not be determined")
	}
	ports, err := s.locations.ByCountry(ctx, country, refloc.Freight)
	if err != nil {
		return refloc.Location{}, err
	}
	port, _, ok := geo.Nearest(ports, p)
	if !ok {
		return refloc.Location{}, fmt.Errorf("no freight locations for country %s", country)
	}
	return port, nil
}
