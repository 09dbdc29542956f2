package pricing

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/metrics"
	"github.com/rate-estimator/internal/ratecache"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/validation"
)

// ServiceKind names a priced part of a move.
type ServiceKind string

const (
	ServiceTransport   ServiceKind = "transport"
	ServiceOrigin      ServiceKind = "origin"
	ServiceDestination ServiceKind = "destination"
)

// serviceOrder is the order services are priced and reported in.
var serviceOrder = []ServiceKind{ServiceTransport, ServiceOrigin, ServiceDestination}

// QuoteRequest asks for a price of one or more services of a move.
type QuoteRequest struct {
	Origin      Address       `json:"origin"`
	Destination Address       `json:"destination"`
	Volume      Volume        `json:"volume"`
	RegionType  string        `json:"region_type"`
	Services    []ServiceKind `json:"services"`
}

// ServiceQuote is the price of one service, or why it has none.
type ServiceQuote struct {
	Service  ServiceKind `json:"service"`
	Price    float64     `json:"price,omitempty"`
	RateType string      `json:"rate_type,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// QuoteResult totals the requested services. When any service cannot be
// priced the total stays 0 and Error lists every failure.
type QuoteResult struct {
	Success  bool           `json:"success"`
	Total    float64        `json:"total"`
	Currency string         `json:"currency"`
	Services []ServiceQuote `json:"services,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Quote prices the requested services of a move: transport between the two
// addresses, and the origin and destination agents at each end.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) QuoteResult {
	res := QuoteResult{Currency: s.cfg.Currency}

	requested := make(map[ServiceKind]bool, len(req.Services))
	for _, k := range req.Services {
		requested[ServiceKind(strings.ToLower(strings.TrimSpace(string(k))))] = true
	}

	loc := s.newLocator()
	var (
		total  float64
		errMsg []string
	)
	for _, kind := range serviceOrder {
		if !requested[kind] {
			continue
		}
		var q ServiceQuote
		switch kind {
		case ServiceTransport:
			q = s.priceTransport(ctx, loc, req)
		case ServiceOrigin:
			q = s.priceAgent(ctx, loc, kind, req.Origin, req.Volume)
		case ServiceDestination:
			q = s.priceAgent(ctx, loc, kind, req.Destination, req.Volume)
		}
		res.Services = append(res.Services, q)
		if q.Error != "" {
			errMsg = append(errMsg, q.Error)
			continue
		}
		total += q.Price
	}

	switch {
	case len(res.Services) == 0:
		res.Error = msgNoService
	case len(errMsg) > 0:
		res.Error = strings.Join(errMsg, ", ")
		metrics.EstimatesTotal.WithLabelValues("quote", metrics.OutcomeUnavailable).Inc()
	default:
		res.Success = true
		res.Total = ratecache.Round2(total)
		metrics.EstimatesTotal.WithLabelValues("quote", metrics.OutcomePriced).Inc()
	}
	return res
}

func failed(kind ServiceKind, err error) ServiceQuote {
	return ServiceQuote{Service: kind, Error: err.Error()}
}

// priceAgent prices handling at one end of the move: the tiered rate of the
// nearest domestic operation, by the distance to it.
func (s *Service) priceAgent(ctx context.Context, loc *locator, kind ServiceKind, addr Address, vol Volume) ServiceQuote {
	label, role := validation.Origin, rates.RoleOrigin
	if kind == ServiceDestination {
		label, role = validation.Destination, rates.RoleDestination
	}

	text := addr.Text()
	if err := validation.ValidateAddress(label, text); err != nil {
		return failed(kind, err)
	}
	p, ok := loc.point(ctx, text)
	if !ok {
		return failed(kind, validation.UnresolvedAddress(label))
	}
	volume, err := validation.ValidateVolume(string(vol.Value), vol.Unit)
	if err != nil {
		return failed(kind, err)
	}

	town, distance, err := s.nearestTown(ctx, p)
	if err != nil {
		s.log.Warn("no operation for address", zap.String("service", string(kind)), zap.Error(err))
		return failed(kind, errors.New(msgNoCost))
	}

	q, err := s.EstimateTieredRate(ctx, distance, volume, role, town.Name)
	if err != nil || !q.Available() {
		return failed(kind, errors.New(msgNoCost))
	}
	return ServiceQuote{Service: kind, Price: ratecache.Round2(q.Rate), RateType: q.RateType}
}

// priceTransport prices the move itself: by distance from the tiered table
// for domestic moves, and from the observed freight rates between the
// nearest ports for international ones.
func (s *Service) priceTransport(ctx context.Context, loc *locator, req QuoteRequest) ServiceQuote {
	origin, destination := req.Origin.Text(), req.Destination.Text()
	if err := validation.ValidateAddresses(origin, destination); err != nil {
		return failed(ServiceTransport, err)
	}

	po, okOrigin := loc.point(ctx, origin)
	pd, okDest := loc.point(ctx, destination)
	switch {
	case !okOrigin && !okDest:
		return failed(ServiceTransport, validation.UnresolvedAddresses())
	case !okOrigin:
		return failed(ServiceTransport, validation.UnresolvedAddress(validation.Origin))
	case !okDest:
		return failed(ServiceTransport, validation.UnresolvedAddress(validation.Destination))
	}

	distance := geo.Haversine(po, pd)
	if err := validation.ValidateDistance(distance); err != nil {
		return failed(ServiceTransport, err)
	}
	volume, err := validation.ValidateVolume(string(req.Volume.Value), req.Volume.Unit)
	if err != nil {
		return failed(ServiceTransport, err)
	}

	if isDomestic(req.RegionType) {
		town, _, err := s.nearestTown(ctx, po)
		if err != nil {
			s.log.Warn("no operation for origin", zap.Error(err))
			return failed(ServiceTransport, errors.New(msgNoCost))
		}
		q, err := s.EstimateTieredRate(ctx, distance, volume, rates.RoleOrigin, town.Name)
		if err != nil || !q.Available() {
			return failed(ServiceTransport, errors.New(msgNoCost))
		}
		return ServiceQuote{Service: ServiceTransport, Price: ratecache.Round2(q.Rate), RateType: q.RateType}
	}

	price, err := s.freightPrice(ctx, req, po, pd, volume)
	if err != nil {
		s.log.Warn("freight price unavailable", zap.Error(err))
		return failed(ServiceTransport, errors.New(msgNoCost))
	}
	return ServiceQuote{Service: ServiceTransport, Price: price, RateType: "freight"}
}

// freightPrice snaps both ends to the nearest freight location of their
// country and charges the observed rate per m³.
func (s *Service) freightPrice(ctx context.Context, req QuoteRequest, po, pd geo.Point, volume float64) (float64, error) {
	from, err := s.nearestPort(ctx, s.countryISO(req.Origin), po)
	if err != nil {
		return 0, err
	}
	to, err := s.nearestPort(ctx, s.countryISO(req.Destination), pd)
	if err != nil {
		return 0, err
	}

	records, err := s.registry.Records.Get(ctx)
	if err != nil {
		return 0, err
	}
	rate, ok := s.cachedRate(records, from.Name, to.Name, s.cfg.Equipment(volume))
	if !ok {
		return 0, errors.New(msgFreightMissing)
	}
	return ratecache.Round2(rate.Cost * volume), nil
}

// LocationRequest prices a move between two addresses without naming
// services.
type LocationRequest struct {
	Origin      Address  `json:"origin"`
	Destination Address  `json:"destination"`
	Volume      Volume   `json:"volume"`
	RegionType  string   `json:"region_type"`
	Strategy    Strategy `json:"strategy,omitempty"`
}

// EstimateByLocation prices a domestic move from the tiered table and an
// international one with a regression estimate for the container the volume
// needs.
func (s *Service) EstimateByLocation(ctx context.Context, req LocationRequest) CostResult {
	origin, destination := req.Origin.Text(), req.Destination.Text()
	if err := validation.ValidateAddresses(origin, destination); err != nil {
		return unpriced(err)
	}
	volume, err := validation.ValidateVolume(string(req.Volume.Value), req.Volume.Unit)
	if err != nil {
		return unpriced(err)
	}

	loc := s.newLocator()
	po, okOrigin := loc.point(ctx, origin)
	pd, okDest := loc.point(ctx, destination)
	if !okOrigin || !okDest {
		return CostResult{Error: msgNoCoordinates}
	}
	distance := geo.Haversine(po, pd)
	if err := validation.ValidateDistance(distance); err != nil {
		return unpriced(err)
	}

	if !isDomestic(req.RegionType) {
		strategy := req.Strategy
		if strategy == "" {
			strategy = Linear
		}
		return s.EstimateRegressionCost(ctx, strategy, estimator.Request{
			Origin:      origin,
			Destination: destination,
			Equipment:   s.cfg.Equipment(volume),
		})
	}

	town, _, err := s.nearestTown(ctx, po)
	if err != nil {
		return CostResult{Error: msgDomesticFailed}
	}
	q, err := s.EstimateTieredRate(ctx, distance, volume, rates.RoleOrigin, town.Name)
	if err != nil || !q.Available() {
		return CostResult{Error: msgDomesticFailed}
	}
	return s.priced(ratecache.Round2(q.Rate))
}
