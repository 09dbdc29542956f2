package geo

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the minimum spacing between external geocoding calls.
const DefaultDelay = 300 * time.Millisecond

// Throttled spaces calls to the wrapped geocoder at least delay apart.
type Throttled struct {
	next    Geocoder
	limiter *rate.Limiter
}

// Throttle wraps g. A non-positive delay selects DefaultDelay.
func Throttle(g Geocoder, delay time.Duration) *Throttled {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Throttled{
		next:    g,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

func (t *Throttled) Geocode(ctx context.Context, address string) (Point, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Point{}, fmt.Errorf("rate limit wait failed: %w", err)
	}
	return t.next.Geocode(ctx, address)
}
