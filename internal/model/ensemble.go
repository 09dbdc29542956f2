package model

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Regressor predicts a value from a feature vector.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Average returns the equal-weight mean of every model's prediction.
func Average[R Regressor](models []R, x []float64) (float64, error) {
	if len(models) == 0 {
		return 0, errors.New("model: no sub-models")
	}
	var sum float64
	for i, m := range models {
		v, err := m.Predict(x)
		if err != nil {
			return 0, fmt.Errorf("sub-model %d: %w", i, err)
		}
		sum += v
	}
	return sum / float64(len(models)), nil
}

// Ensemble holds one forest per training chunk.
type Ensemble struct {
	SubModels []*Forest `json:"subModels"`
}

func (e *Ensemble) Predict(x []float64) (float64, error) {
	return Average(e.SubModels, x)
}

func (e *Ensemble) Validate() error {
	if len(e.SubModels) == 0 {
		return errors.New("model: ensemble has no sub-models")
	}
	for i, f := range e.SubModels {
		if f == nil {
			return fmt.Errorf("model: sub-model %d is null", i)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("sub-model %d: %w", i, err)
		}
	}
	return nil
}

// EnsembleOptions configure TrainEnsemble.
type EnsembleOptions struct {
	// ChunkSize is the number of consecutive rows each sub-model sees.
	ChunkSize int
	// Parallel bounds how many chunks train at once.
	Parallel int
	Forest   ForestOptions
}

// DefaultChunkSize bounds the rows given to one sub-model.
const DefaultChunkSize = 8000

// TrainEnsemble splits the rows into consecutive chunks and trains one
// forest per chunk. Chunks never see each other's rows, so the ensemble can
// generalise differently from a single forest over all rows; in exchange
// memory and time per unit of work stay bounded.
func TrainEnsemble(ctx context.Context, X [][]float64, y []float64, opts EnsembleOptions) (*Ensemble, error) {
	if _, _, err := shape(X, y); err != nil {
		return nil, err
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}

	chunks := (len(X) + opts.ChunkSize - 1) / opts.ChunkSize
	subModels := make([]*Forest, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for c := range chunks {
		start := c * opts.ChunkSize
		end := min(start+opts.ChunkSize, len(X))
		forestOpts := opts.Forest
		if forestOpts.Seed != 0 {
			forestOpts.Seed += uint64(c)
		}

		g.Go(recovered(c, func() error {
			f, err := TrainForest(ctx, X[start:end], y[start:end], forestOpts)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c, err)
			}
			subModels[c] = f
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Ensemble{SubModels: subModels}, nil
}

// recovered turns a panic in chunk c into an error so one bad chunk fails
// the group instead of the process.
func recovered(c int, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("chunk %d panicked: %v", c, v)
			}
		}()
		return fn()
	}
}
