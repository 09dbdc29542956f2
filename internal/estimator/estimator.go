// Package estimator predicts freight costs from categorical route data. Two
// strategies share the Estimator interface: Linear resolves inputs with the
// fuzzy matcher and feeds a linear model; Ensemble encodes with frequency
// maps and averages chunk-trained forests.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNoModel is returned when no trained artifact is available.
var ErrNoModel = errors.New("no trained model available")

// UnresolvableError reports a mandatory categorical value that matched
// nothing in the training vocabulary.
type UnresolvableError struct {
	Column      string
	Value       string
	Suggestions []string
}

func (e *UnresolvableError) Error() string {
	msg := fmt.Sprintf("unknown value %q for %s: no good match found", e.Value, e.Column)
	if len(e.Suggestions) > 0 {
		msg += ", top suggestions: " + strings.Join(e.Suggestions, " | ")
	}
	return msg
}

// Training sheet columns.
const (
	ColOrigin      = "origin_location"
	ColDestination = "destination_location"
	ColEquipment   = "equipment_type"
	ColTradeLane   = "trade_lane"
	ColMode        = "mode"
	ColCost        = "cost_base_rate_amount"
	ColTransit     = "time_transit_duration"
	ColSailings    = "number_of_sailings"
)

// Request is one freight cost query. TradeLane, Mode, TransitDays and
// Sailings are optional.
type Request struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Equipment   string  `json:"equipment"`
	TradeLane   string  `json:"tradeLane,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	TransitDays float64 `json:"transitDays,omitempty"`
	Sailings    float64 `json:"sailings,omitempty"`
}

// Estimator predicts a cost for a request.
type Estimator interface {
	Name() string
	Predict(ctx context.Context, req Request) (float64, error)
}

// Loader returns the current artifact. cache.Cache.Get satisfies it.
type Loader[T any] func(ctx context.Context) (T, error)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
