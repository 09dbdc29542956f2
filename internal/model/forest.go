package model

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

// ForestOptions configure TrainForest. Zero fields take the defaults below.
type ForestOptions struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	// Seed makes training reproducible; 0 draws a random seed.
	Seed uint64
}

// Forest defaults.
const (
	DefaultTrees    = 20
	DefaultMaxDepth = 10
	DefaultMinLeaf  = 5
)

func (o ForestOptions) withDefaults() ForestOptions {
	if o.Trees <= 0 {
		o.Trees = DefaultTrees
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = DefaultMinLeaf
	}
	if o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	return o
}

// Forest averages bootstrap-trained regression trees.
type Forest struct {
	NumFeatures int    `json:"numFeatures"`
	Trees       []Tree `json:"trees"`
}

// TrainForest grows opts.Trees trees, each on a bootstrap sample of the rows.
func TrainForest(ctx context.Context, X [][]float64, y []float64, opts ForestOptions) (*Forest, error) {
	n, p, err := shape(X, y)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	treeOpts := TreeOptions{MaxDepth: opts.MaxDepth, MinLeaf: opts.MinLeaf}

	f := &Forest{NumFeatures: p, Trees: make([]Tree, 0, opts.Trees)}
	sample := make([]int, n)
	for range opts.Trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		f.Trees = append(f.Trees, growTree(X, y, sample, treeOpts))
	}
	return f, nil
}

func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), f.NumFeatures)
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

func (f *Forest) Validate() error {
	if f.NumFeatures <= 0 {
		return errors.New("model: forest has no features")
	}
	if len(f.Trees) == 0 {
		return errors.New("model: forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NumFeatures); err != nil {
			return fmt.Errorf("model: tree %d: %w", i, err)
		}
	}
	return nil
}
