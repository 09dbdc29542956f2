package geo

import (
	"context"

	"go.uber.org/zap"
)

// Resolution is a geocoded name.
type Resolution struct {
	Name  string
	Point Point
}

// ResolveAll geocodes names one at a time. Names that fail to resolve are
// logged and returned in skipped; only context cancellation stops the batch.
func ResolveAll(ctx context.Context, g Geocoder, names []string, log *zap.Logger) (resolved []Resolution, skipped []string, err error) {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return resolved, skipped, err
		}

		p, gerr := g.Geocode(ctx, name)
		if gerr != nil {
			if ctx.Err() != nil {
				return resolved, skipped, ctx.Err()
			}
			log.Warn("skipping location without coordinates", zap.String("name", name), zap.Error(gerr))
			skipped = append(skipped, name)
			continue
		}
		resolved = append(resolved, Resolution{Name: name, Point: p})
	}

	log.Info("resolved locations", zap.Int("resolved", len(resolved)), zap.Int("skipped", len(skipped)))
	return resolved, skipped, nil
}
