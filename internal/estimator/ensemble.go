package estimator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/source"
)

// DefaultEnsembleMode is assumed when a request names no transport mode.
const DefaultEnsembleMode = "Seafreight"

// DefaultTestSplit is the share of rows held out for evaluation.
const DefaultTestSplit = 0.2

// ensembleColumns are the frequency-encoded features, in feature order.
// Transit days and sailings follow them.
var ensembleColumns = []string{ColOrigin, ColDestination, ColEquipment, ColMode}

// EnsembleArtifact is the persisted ensemble strategy.
type EnsembleArtifact struct {
	Encoders map[string]*FrequencyMap `json:"encoders"`
	Model    *model.Ensemble          `json:"model"`
	Metrics  model.Metrics            `json:"metrics"`
}

func (a *EnsembleArtifact) Validate() error {
	if a.Model == nil {
		return errors.New("ensemble artifact has no model")
	}
	if err := a.Model.Validate(); err != nil {
		return err
	}
	for _, col := range ensembleColumns {
		if a.Encoders[col] == nil {
			return fmt.Errorf("ensemble artifact has no encoder for %s", col)
		}
	}
	want := len(ensembleColumns) + 2
	for i, f := range a.Model.SubModels {
		if f.NumFeatures != want {
			return fmt.Errorf("sub-model %d expects %d features, want %d", i, f.NumFeatures, want)
		}
	}
	return nil
}

// EnsembleOptions configure TrainEnsemble.
type EnsembleOptions struct {
	VocabCap  int
	TestSplit float64
	Model     model.EnsembleOptions
}

// CheckEnsembleColumns fails when a sheet cannot train the ensemble.
func CheckEnsembleColumns(headers []string) error {
	return source.Require(headers, ColOrigin, ColDestination, ColEquipment, ColMode, ColCost)
}

// TrainEnsemble encodes the sheet with frequency maps, trains on the leading
// rows and evaluates on the trailing TestSplit share. Row order is kept, so
// the held-out rows are the last ones of the sheet.
func TrainEnsemble(ctx context.Context, headers []string, rows [][]string, opts EnsembleOptions) (*EnsembleArtifact, error) {
	if err := CheckEnsembleColumns(headers); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("dataset is empty")
	}
	if opts.TestSplit <= 0 || opts.TestSplit >= 1 {
		opts.TestSplit = DefaultTestSplit
	}

	a := &EnsembleArtifact{Encoders: make(map[string]*FrequencyMap, len(ensembleColumns))}
	for _, col := range ensembleColumns {
		idx := source.IndexOf(headers, col)
		values := make([]string, len(rows))
		for r, row := range rows {
			values[r] = source.Cell(row, idx)
		}
		a.Encoders[col] = BuildFrequencyMap(values, opts.VocabCap)
	}

	iTransit := source.IndexOf(headers, ColTransit)
	iSailings := source.IndexOf(headers, ColSailings)
	iCost := source.IndexOf(headers, ColCost)

	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for r, row := range rows {
		x := make([]float64, 0, len(ensembleColumns)+2)
		for _, col := range ensembleColumns {
			x = append(x, float64(a.Encoders[col].Encode(source.Cell(row, source.IndexOf(headers, col)))))
		}
		x = append(x, parseNumber(source.Cell(row, iTransit)), parseNumber(source.Cell(row, iSailings)))
		X[r] = x
		y[r] = parseNumber(source.Cell(row, iCost))
	}

	trainSize := int(float64(len(rows)) * (1 - opts.TestSplit))
	if trainSize == 0 {
		trainSize = len(rows)
	}

	ens, err := model.TrainEnsemble(ctx, X[:trainSize], y[:trainSize], opts.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to train ensemble: %w", err)
	}
	a.Model = ens

	testX, testY := X[trainSize:], y[trainSize:]
	pred := make([]float64, len(testX))
	for i, x := range testX {
		if pred[i], err = ens.Predict(x); err != nil {
			return nil, err
		}
	}
	if a.Metrics, err = model.Evaluate(pred, testY); err != nil {
		return nil, err
	}
	return a, nil
}

// Ensemble encodes inputs with the frequency maps, without fuzzy matching,
// and averages every sub-model.
type Ensemble struct {
	load Loader[*EnsembleArtifact]
}

func NewEnsemble(load Loader[*EnsembleArtifact]) *Ensemble {
	return &Ensemble{load: load}
}

func (e *Ensemble) Name() string { return "ensemble" }

// Encode builds the feature vector. Unseen categorical values encode as 0.
func (e *Ensemble) Encode(a *EnsembleArtifact, req Request) []float64 {
	mode := req.Mode
	if mode == "" {
		mode = DefaultEnsembleMode
	}
	return []float64{
		float64(a.Encoders[ColOrigin].Encode(req.Origin)),
		float64(a.Encoders[ColDestination].Encode(req.Destination)),
		float64(a.Encoders[ColEquipment].Encode(req.Equipment)),
		float64(a.Encoders[ColMode].Encode(mode)),
		req.TransitDays,
		req.Sailings,
	}
}

func (e *Ensemble) Predict(ctx context.Context, req Request) (float64, error) {
	a, err := e.load(ctx)
	if err != nil {
		return 0, err
	}
	cost, err := a.Model.Predict(e.Encode(a, req))
	if err != nil {
		return 0, err
	}
	return round2(cost), nil
}
