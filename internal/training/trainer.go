// Package training turns rate sheets into persisted artifacts in the
// background. Jobs build every artifact in memory and write nothing until the
// whole job has succeeded, so a failed run leaves the last good artifacts in
// place.
package training

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/ratecache"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/refloc"
	"github.com/rate-estimator/internal/source"
)

// ErrMissingColumns is returned before any training starts when a sheet
// lacks a required column.
var ErrMissingColumns = source.ErrMissingColumns

// Job is one training request.
type Job struct {
	Kind  artifacts.Kind
	Table source.Table
}

// Options tune the freight models.
type Options struct {
	Ridge    float64
	Ensemble estimator.EnsembleOptions
}

// Trainer builds and commits the artifacts of one job.
type Trainer struct {
	registry  *artifacts.Registry
	locations refloc.Repository
	geocoder  geo.Geocoder
	opts      Options
	log       *zap.Logger
}

// NewTrainer creates a trainer. With a nil geocoder reference locations are
// not refreshed.
func NewTrainer(reg *artifacts.Registry, locations refloc.Repository, g geo.Geocoder, opts Options, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{registry: reg, locations: locations, geocoder: g, opts: opts, log: log.Named("trainer")}
}

// Check fails when the job cannot be trained, without doing any work.
func Check(job Job) error {
	if _, err := artifacts.ParseKind(string(job.Kind)); err != nil {
		return err
	}
	if len(job.Table.Rows) == 0 {
		return fmt.Errorf("%s: dataset is empty", job.Kind)
	}

	h := job.Table.Headers
	switch job.Kind {
	case artifacts.GeneralRates:
		return source.Require(h, rates.ColOperation, rates.ColType, rates.ColRateType)
	default:
		if err := estimator.CheckLinearColumns(h); err != nil {
			return err
		}
		return estimator.CheckEnsembleColumns(h)
	}
}

// Train builds the job's artifacts and, when every step succeeded, writes
// them and refreshes the caches.
func (t *Trainer) Train(ctx context.Context, job Job) (map[string]model.Metrics, error) {
	if err := Check(job); err != nil {
		return nil, err
	}

	var (
		commit  func(context.Context) error
		metrics map[string]model.Metrics
		err     error
	)
	switch job.Kind {
	case artifacts.GeneralRates:
		commit, err = t.general(ctx, job.Table)
	default:
		commit, metrics, err = t.freight(ctx, job.Table)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Once writing starts the whole set is written.
	if err := commit(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("failed to save %s artifacts: %w", job.Kind, err)
	}
	return metrics, nil
}

func (t *Trainer) general(ctx context.Context, tbl source.Table) (func(context.Context) error, error) {
	table, err := rates.ParseTable(tbl.Headers, tbl.Rows)
	if err != nil {
		return nil, err
	}
	t.log.Info("parsed tiered table", zap.Int("rules", len(table.Rules)))

	locs, err := t.resolve(ctx, table.Operations(), refloc.Domestic)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := refloc.SaveAll(ctx, t.locations, locs); err != nil {
			return err
		}
		return t.registry.SaveGeneral(ctx, table)
	}, nil
}

func (t *Trainer) freight(ctx context.Context, tbl source.Table) (func(context.Context) error, map[string]model.Metrics, error) {
	records, err := ratecache.Build(tbl.Headers, tbl.Rows)
	if err != nil {
		return nil, nil, err
	}
	t.log.Info("built rate records", zap.Int("records", len(records.Rates)))

	locs, err := t.resolve(ctx, records.Locations(), refloc.Freight)
	if err != nil {
		return nil, nil, err
	}

	linear, err := estimator.TrainLinear(ctx, tbl.Headers, tbl.Rows, t.opts.Ridge)
	if err != nil {
		return nil, nil, err
	}
	t.log.Info("trained linear model", zap.Float64("rmse", linear.Metrics.RMSE), zap.Float64("r2", linear.Metrics.R2))

	ensemble, err := estimator.TrainEnsemble(ctx, tbl.Headers, tbl.Rows, t.opts.Ensemble)
	if err != nil {
		return nil, nil, err
	}
	t.log.Info("trained ensemble",
		zap.Int("sub_models", len(ensemble.Model.SubModels)),
		zap.Float64("rmse", ensemble.Metrics.RMSE),
		zap.Float64("r2", ensemble.Metrics.R2))

	commit := func(ctx context.Context) error {
		if err := refloc.SaveAll(ctx, t.locations, locs); err != nil {
			return err
		}
		return t.registry.SaveFreight(ctx, artifacts.Freight{Records: records, Linear: linear, Ensemble: ensemble})
	}
	metrics := map[string]model.Metrics{
		"linear":   linear.Metrics,
		"ensemble": ensemble.Metrics,
	}
	return commit, metrics, nil
}

func (t *Trainer) resolve(ctx context.Context, names []string, cat refloc.Category) ([]refloc.Location, error) {
	if t.geocoder == nil || t.locations == nil {
		t.log.Warn("no geocoder configured, reference locations not refreshed", zap.String("category", string(cat)))
		return nil, nil
	}
	locs, stats, err := refloc.Resolve(ctx, t.locations, t.geocoder, names, cat, t.log)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s locations: %w", cat, err)
	}
	t.log.Info("resolved reference locations",
		zap.String("category", string(cat)),
		zap.Int("existing", stats.Existing),
		zap.Int("resolved", stats.Resolved),
		zap.Int("unresolved", stats.Unresolved))
	return locs, nil
}
