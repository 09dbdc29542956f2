// Package pricing is the estimation boundary: it turns requests into priced
// or unpriceable results and never lets a lookup failure escape as a panic.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/metrics"
	"github.com/rate-estimator/internal/ratecache"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/refloc"
)

// Strategy selects a regression estimator.
type Strategy string

const (
	Linear   Strategy = "linear"
	Ensemble Strategy = "ensemble"
)

// ParseStrategy maps a name to a strategy. An empty name selects Linear.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case "":
		return Linear, nil
	case Linear, Ensemble:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want %s or %s)", s, Linear, Ensemble)
}

const (
	DefaultCurrency             = "EUR"
	DefaultLargeContainerVolume = 33.0

	// Equipment assumed for international moves, by volume.
	SmallContainer = "20ft dry"
	LargeContainer = "40ft dry"
)

// Messages returned to callers for unpriceable requests.
const (
	msgNoCost         = "Could not calculate cost with the provided details"
	msgNoService      = "Please select any one service"
	msgNoCoordinates  = "Failed to fetch coordinates for source or destination."
	msgDomesticFailed = "Rate prediction failed for domestic region."
	msgFreightMissing = "Sea rates prediction failed, as they are not present in rates document"
)

// Config holds pricing policy.
type Config struct {
	Currency string
	// LargeContainerVolume is the volume in m³ above which an international
	// move needs a 40ft container.
	LargeContainerVolume float64
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.LargeContainerVolume <= 0 {
		c.LargeContainerVolume = DefaultLargeContainerVolume
	}
	return c
}

// Equipment returns the container type for an international move.
func (c Config) Equipment(volume float64) string {
	if volume > c.LargeContainerVolume {
		return LargeContainer
	}
	return SmallContainer
}

// Service prices requests against the current artifacts.
type Service struct {
	registry   *artifacts.Registry
	estimators map[Strategy]estimator.Estimator
	locations  refloc.Repository
	geocoder   geo.Geocoder
	parser     geo.AddressParser
	cfg        Config
	log        *zap.Logger
}

// NewService wires the service. A nil matcher uses the default threshold and
// a nil parser the default address parser.
func NewService(reg *artifacts.Registry, locations refloc.Repository, g geo.Geocoder, parser geo.AddressParser, m *matcher.Matcher, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if parser == nil {
		parser = geo.NewAddressParser()
	}
	return &Service{
		registry: reg,
		estimators: map[Strategy]estimator.Estimator{
			Linear:   estimator.NewLinear(reg.Linear.Get, m),
			Ensemble: estimator.NewEnsemble(reg.Ensemble.Get),
		},
		locations: locations,
		geocoder:  g,
		parser:    parser,
		cfg:       cfg.withDefaults(),
		log:       log.Named("pricing"),
	}
}

// CostResult is a priced or unpriceable regression estimate. Exactly one of
// Cost and Error is set.
type CostResult struct {
	Cost        *float64 `json:"cost"`
	Currency    string   `json:"currency,omitempty"`
	Error       string   `json:"error,omitempty"`
	Field       string   `json:"field,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Priced reports whether the result carries a cost.
func (r CostResult) Priced() bool {
	return r.Cost != nil
}

func (s *Service) priced(cost float64) CostResult {
	return CostResult{Cost: &cost, Currency: s.cfg.Currency}
}

func unpriced(err error) CostResult {
	res := CostResult{Error: err.Error()}
	var unresolved *estimator.UnresolvableError
	if errors.As(err, &unresolved) {
		res.Field = unresolved.Column
		res.Suggestions = unresolved.Suggestions
	}
	return res
}

// Price is a cost in the configured currency.
type Price struct {
	Cost     float64 `json:"cost"`
	Currency string  `json:"currency"`
}

// EstimateTieredRate looks the move up in the tiered table. An unmatched
// move returns an Unknown quote; the error is only set when no table is
// available.
func (s *Service) EstimateTieredRate(ctx context.Context, distance, volume float64, role, operation string) (rates.Quote, error) {
	table, err := s.registry.Tiered.Get(ctx)
	if err != nil {
		metrics.EstimatesTotal.WithLabelValues("tiered", metrics.OutcomeError).Inc()
		return rates.Quote{RateType: rates.Unknown}, err
	}

	q := table.Lookup(distance, volume, role, operation)
	outcome := metrics.OutcomePriced
	if !q.Available() {
		outcome = metrics.OutcomeUnavailable
	}
	metrics.EstimatesTotal.WithLabelValues("tiered", outcome).Inc()
	return q, nil
}

// EstimateRegressionCost predicts a freight cost with the chosen strategy.
// Failures, including unresolvable inputs and missing models, are returned
// in the result.
func (s *Service) EstimateRegressionCost(ctx context.Context, strategy Strategy, req estimator.Request) CostResult {
	est, ok := s.estimators[strategy]
	if !ok {
		metrics.EstimatesTotal.WithLabelValues(string(strategy), metrics.OutcomeError).Inc()
		return CostResult{Error: fmt.Sprintf("unknown strategy %q", strategy)}
	}

	cost, err := est.Predict(ctx, req)
	switch {
	case err != nil:
		s.log.Debug("regression estimate failed", zap.String("strategy", string(strategy)), zap.Error(err))
		metrics.EstimatesTotal.WithLabelValues(est.Name(), metrics.OutcomeError).Inc()
		return unpriced(err)
	case cost <= 0:
		metrics.EstimatesTotal.WithLabelValues(est.Name(), metrics.OutcomeUnavailable).Inc()
		return CostResult{Error: msgNoCost}
	}
	metrics.EstimatesTotal.WithLabelValues(est.Name(), metrics.OutcomePriced).Inc()
	return s.priced(cost)
}

// LookupCachedRate returns the observed rate for the exact route and
// equipment. ok is false when the rate sheets never priced it.
func (s *Service) LookupCachedRate(ctx context.Context, origin, destination, equipment string) (p Price, ok bool, err error) {
	records, err := s.registry.Records.Get(ctx)
	if err != nil {
		metrics.EstimatesTotal.WithLabelValues("cached", metrics.OutcomeError).Inc()
		return Price{}, false, err
	}
	p, ok = s.cachedRate(records, origin, destination, equipment)
	return p, ok, nil
}

func (s *Service) cachedRate(records *ratecache.Records, origin, destination, equipment string) (Price, bool) {
	cost, ok := records.Lookup(origin, destination, equipment)
	if !ok {
		metrics.EstimatesTotal.WithLabelValues("cached", metrics.OutcomeUnavailable).Inc()
		return Price{}, false
	}
	metrics.EstimatesTotal.WithLabelValues("cached", metrics.OutcomePriced).Inc()
	return Price{Cost: cost, Currency: s.cfg.Currency}, true
}
