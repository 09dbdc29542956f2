// Package artifacts names the persisted training outputs of each dataset
// kind and keeps them cached for the serving path.
package artifacts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/cache"
	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/ratecache"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/store"
)

// Kind identifies a source dataset.
type Kind string

const (
	GeneralRates Kind = "general-rates"
	FreightRates Kind = "freight-rates"
)

// ParseKind validates a dataset kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case GeneralRates, FreightRates:
		return k, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q (want %s or %s)", s, GeneralRates, FreightRates)
}

// Fixed artifact keys.
const (
	KeyTiered   = "general-rates/tiered.json"
	KeyRecords  = "freight-rates/records.json"
	KeyLinear   = "freight-rates/linear.json"
	KeyEnsemble = "freight-rates/ensemble.json"
)

// Freight is everything a freight-rates training run produces, apart from
// reference locations.
type Freight struct {
	Records  *ratecache.Records
	Linear   *estimator.LinearArtifact
	Ensemble *estimator.EnsembleArtifact
}

// Registry reads and writes artifacts and owns their caches.
type Registry struct {
	store store.Store
	log   *zap.Logger

	Tiered   *cache.Cache[*rates.Table]
	Records  *cache.Cache[*ratecache.Records]
	Linear   *cache.Cache[*estimator.LinearArtifact]
	Ensemble *cache.Cache[*estimator.EnsembleArtifact]
}

func NewRegistry(s store.Store, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		store:    s,
		log:      log.Named("artifacts"),
		Tiered:   cache.New("tiered", loader[rates.Table](s, KeyTiered), log),
		Records:  cache.New("records", loader[ratecache.Records](s, KeyRecords), log),
		Linear:   cache.New("linear", loader[estimator.LinearArtifact](s, KeyLinear), log),
		Ensemble: cache.New("ensemble", loader[estimator.EnsembleArtifact](s, KeyEnsemble), log),
	}
}

// loader reads one artifact. A missing document reports estimator.ErrNoModel.
func loader[T any](s store.Store, key string) cache.Loader[*T] {
	return func(ctx context.Context) (*T, error) {
		v := new(T)
		err := store.GetJSON(ctx, s, key, v)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, estimator.ErrNoModel)
		}
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// SaveGeneral writes the tiered table and drops the cached copy.
func (r *Registry) SaveGeneral(ctx context.Context, table *rates.Table) error {
	if err := store.PutJSON(ctx, r.store, KeyTiered, table); err != nil {
		return err
	}
	r.Invalidate(GeneralRates)
	return nil
}

// SaveFreight writes the freight artifacts one after another and drops the
// cached copies. Each document is replaced atomically but the set is not:
// a reader between two writes can see a new record list beside an old model.
func (r *Registry) SaveFreight(ctx context.Context, f Freight) error {
	docs := []struct {
		key string
		v   any
	}{
		{KeyRecords, f.Records},
		{KeyLinear, f.Linear},
		{KeyEnsemble, f.Ensemble},
	}
	for _, d := range docs {
		if err := store.PutJSON(ctx, r.store, d.key, d.v); err != nil {
			r.Invalidate(FreightRates)
			return err
		}
	}
	r.Invalidate(FreightRates)
	return nil
}

// Invalidate drops the caches fed by a dataset kind.
func (r *Registry) Invalidate(kind Kind) {
	switch kind {
	case GeneralRates:
		r.Tiered.Invalidate()
	case FreightRates:
		r.Records.Invalidate()
		r.Linear.Invalidate()
		r.Ensemble.Invalidate()
	}
	r.log.Info("caches invalidated", zap.String("kind", string(kind)))
}
