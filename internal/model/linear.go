// Package model implements the regression models behind freight estimates:
// a ridge-stabilised linear model and chunk-trained regression forests.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultRidge is the L2 penalty FitLinear adds to non-intercept weights. It
// keeps the normal equations solvable when columns are collinear or
// constant without noticeably moving a well-posed fit.
const DefaultRidge = 1e-6

// ErrDimension is returned when a feature vector has the wrong length.
var ErrDimension = errors.New("model: feature dimension mismatch")

// Linear predicts Bias + Σ Weights[i]*x[i].
type Linear struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
}

func (m *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), len(m.Weights))
	}
	y := m.Bias
	for i, w := range m.Weights {
		y += w * x[i]
	}
	return y, nil
}

func (m *Linear) Validate() error {
	if len(m.Weights) == 0 {
		return errors.New("model: linear model has no weights")
	}
	if !finite(m.Bias) {
		return errors.New("model: linear bias is not finite")
	}
	for i, w := range m.Weights {
		if !finite(w) {
			return fmt.Errorf("model: linear weight %d is not finite", i)
		}
	}
	return nil
}

// FitLinear solves the ridge normal equations (AᵀA + λD)β = Aᵀy, where A is
// X with a leading column of ones and D leaves the intercept unpenalised.
// A non-positive lambda selects DefaultRidge.
func FitLinear(X [][]float64, y []float64, lambda float64) (*Linear, error) {
	n, p, err := shape(X, y)
	if err != nil {
		return nil, err
	}
	if lambda <= 0 {
		lambda = DefaultRidge
	}

	A := mat.NewDense(n, p+1, nil)
	for i, row := range X {
		A.Set(i, 0, 1)
		for j, v := range row {
			A.Set(i, j+1, v)
		}
	}

	var ata mat.SymDense
	ata.SymOuterK(1, A.T())
	for j := 1; j <= p; j++ {
		ata.SetSym(j, j, ata.At(j, j)+lambda)
	}

	var aty mat.VecDense
	aty.MulVec(A.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return nil, errors.New("model: normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &aty); err != nil {
		return nil, fmt.Errorf("model: solve normal equations: %w", err)
	}

	m := &Linear{Bias: beta.AtVec(0), Weights: make([]float64, p)}
	for j := range p {
		m.Weights[j] = beta.AtVec(j + 1)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// shape checks that X is a non-empty rectangle with one target per row.
func shape(X [][]float64, y []float64) (n, p int, err error) {
	if len(X) == 0 {
		return 0, 0, errors.New("model: no training rows")
	}
	if len(X) != len(y) {
		return 0, 0, fmt.Errorf("model: %d rows but %d targets", len(X), len(y))
	}
	p = len(X[0])
	if p == 0 {
		return 0, 0, errors.New("model: rows have no features")
	}
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), p)
		}
	}
	return len(X), p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
