package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/config"
	"github.com/rate-estimator/internal/db"
	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/pricing"
	"github.com/rate-estimator/internal/refloc"
	"github.com/rate-estimator/internal/store"
	"github.com/rate-estimator/internal/training"
)

// services holds the long-lived collaborators shared by the commands.
type services struct {
	store     store.Store
	registry  *artifacts.Registry
	locations refloc.Repository
	geocoder  geo.Geocoder
	closers   []func() error
}

func openServices(ctx context.Context, c *config.Config, log *zap.Logger) (*services, error) {
	s := &services{}

	st, err := openStore(ctx, c, s)
	if err != nil {
		return nil, err
	}
	s.store = st
	s.registry = artifacts.NewRegistry(st, log)

	if c.Database.URL != "" {
		conn, err := db.NewConnection(ctx, c.Database.Driver, c.Database.URL, c.Database.MaxConnections)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, conn.Close)

		repo := refloc.NewSQLRepository(conn.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("reference location schema: %w", err)
		}
		s.locations = repo
		log.Info("reference locations in database", zap.String("driver", c.Database.Driver))
	} else {
		s.locations = refloc.NewStoreRepository(st)
		log.Info("reference locations in artifact store")
	}

	if c.Geocoder.APIKey == "" {
		log.Warn("geocoder api key not set; addresses will not resolve and reference locations will not refresh")
	} else {
		google := geo.NewGoogleGeocoder(c.Geocoder.APIKey, c.Geocoder.BaseURL, c.Geocoder.Timeout)
		s.geocoder = geo.Throttle(google, c.Geocoder.Delay)
	}
	return s, nil
}

func openStore(ctx context.Context, c *config.Config, s *services) (store.Store, error) {
	switch c.Artifacts.Backend {
	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, c.Redis.Addr, c.Redis.DB, c.Redis.Prefix)
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", c.Redis.Addr, err)
		}
		s.closers = append(s.closers, rs.Close)
		return rs, nil
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		fs, err := store.NewFileStore(c.Artifacts.Dir)
		if err != nil {
			return nil, fmt.Errorf("open artifact dir %s: %w", c.Artifacts.Dir, err)
		}
		return fs, nil
	}
}

// Close releases connections in reverse order of opening.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *services) pricing(c *config.Config, log *zap.Logger) *pricing.Service {
	return pricing.NewService(s.registry, s.locations, s.geocoder, geo.NewAddressParser(),
		matcher.New(c.Matcher.Threshold),
		pricing.Config{Currency: c.Pricing.Currency, LargeContainerVolume: c.Pricing.LargeContainerVolume},
		log)
}

func (s *services) trainer(c *config.Config, log *zap.Logger) *training.Trainer {
	return training.NewTrainer(s.registry, s.locations, s.geocoder, trainingOptions(c.Training), log)
}

func trainingOptions(t config.TrainingConfig) training.Options {
	return training.Options{
		Ridge: t.Ridge,
		Ensemble: estimator.EnsembleOptions{
			VocabCap:  t.VocabCap,
			TestSplit: t.TestSplit,
			Model: model.EnsembleOptions{
				ChunkSize: t.ChunkSize,
				Parallel:  t.ParallelChunks,
				Forest: model.ForestOptions{
					Trees:    t.Trees,
					MaxDepth: t.MaxDepth,
					MinLeaf:  t.MinLeaf,
					Seed:     t.Seed,
				},
			},
		},
	}
}
