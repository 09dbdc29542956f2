package model

import (
	"fmt"
	"math"
)

// Metrics summarise predictions against held-out targets.
type Metrics struct {
	N    int     `json:"n"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Evaluate compares predictions with targets. When the targets have no
// variance R2 is 1 for a perfect fit and 0 otherwise.
func Evaluate(pred, y []float64) (Metrics, error) {
	if len(pred) != len(y) {
		return Metrics{}, fmt.Errorf("model: %d predictions for %d targets", len(pred), len(y))
	}
	if len(y) == 0 {
		return Metrics{}, nil
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot, absErr float64
	for i := range y {
		d := y[i] - pred[i]
		ssRes += d * d
		absErr += math.Abs(d)
		t := y[i] - mean
		ssTot += t * t
	}

	n := float64(len(y))
	m := Metrics{
		N:    len(y),
		RMSE: math.Sqrt(ssRes / n),
		MAE:  absErr / n,
	}
	switch {
	case ssTot > 0:
		m.R2 = 1 - ssRes/ssTot
	case ssRes == 0:
		m.R2 = 1
	}
	return m, nil
}
