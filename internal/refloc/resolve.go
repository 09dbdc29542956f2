package refloc

import (
	"context"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/geo"
)

// Stats summarises a Resolve pass.
type Stats struct {
	Existing   int `json:"existing"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// Resolve geocodes the names not yet stored for cat and returns them as
// locations without saving them. Names that fail to geocode are skipped.
func Resolve(ctx context.Context, repo Repository, g geo.Geocoder, names []string, cat Category, log *zap.Logger) ([]Location, Stats, error) {
	var (
		stats   Stats
		pending []string
	)
	for _, name := range names {
		if name == "" || name == "UNKNOWN" {
			continue
		}
		ok, err := repo.Exists(ctx, name, cat)
		if err != nil {
			return nil, stats, err
		}
		if ok {
			stats.Existing++
			continue
		}
		pending = append(pending, name)
	}

	resolved, skipped, err := geo.ResolveAll(ctx, g, pending, log)
	if err != nil {
		return nil, stats, err
	}
	stats.Resolved = len(resolved)
	stats.Unresolved = len(skipped)

	locs := make([]Location, 0, len(resolved))
	for _, r := range resolved {
		locs = append(locs, Location{
			Name:      r.Name,
			Country:   CountryISO(r.Name),
			Latitude:  r.Point.Lat,
			Longitude: r.Point.Lng,
			Category:  cat,
		})
	}
	return locs, stats, nil
}

// SaveAll writes locs in order and stops at the first error.
func SaveAll(ctx context.Context, repo Repository, locs []Location) error {
	for _, loc := range locs {
		if err := repo.Save(ctx, loc); err != nil {
			return err
		}
	}
	return nil
}
