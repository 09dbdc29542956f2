package estimator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/source"
)

// Defaults for optional linear inputs, also used to fill blank training
// cells.
const (
	DefaultTradeLane = "DEFAULT"
	DefaultMode      = "SEA"
	unknownValue     = "UNKNOWN"
)

// linearColumns is the feature order of the linear model.
var linearColumns = []string{ColOrigin, ColDestination, ColEquipment, ColTradeLane, ColMode}

// LinearArtifact is the persisted linear strategy: one vocabulary per
// categorical column and the fitted model.
type LinearArtifact struct {
	Encoders map[string]*matcher.Vocabulary `json:"encoders"`
	Model    *model.Linear                  `json:"model"`
	Metrics  model.Metrics                  `json:"metrics"`
}

func (a *LinearArtifact) Validate() error {
	if a.Model == nil {
		return errors.New("linear artifact has no model")
	}
	if err := a.Model.Validate(); err != nil {
		return err
	}
	if len(a.Model.Weights) != len(linearColumns) {
		return fmt.Errorf("linear model has %d weights, want %d", len(a.Model.Weights), len(linearColumns))
	}
	for _, col := range linearColumns {
		if a.Encoders[col].Len() == 0 {
			return fmt.Errorf("linear artifact has no vocabulary for %s", col)
		}
	}
	return nil
}

// CheckLinearColumns fails when a sheet cannot train the linear strategy.
func CheckLinearColumns(headers []string) error {
	return source.Require(headers, ColOrigin, ColDestination, ColEquipment, ColCost)
}

// TrainLinear fits the linear strategy. Blank cells fill with UNKNOWN for
// mandatory columns and with the defaults for trade lane and mode; blank
// or unparsable costs count as 0. Metrics are computed on the training rows.
func TrainLinear(ctx context.Context, headers []string, rows [][]string, ridge float64) (*LinearArtifact, error) {
	if err := CheckLinearColumns(headers); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("dataset is empty")
	}

	fill := map[string]string{
		ColOrigin:      unknownValue,
		ColDestination: unknownValue,
		ColEquipment:   unknownValue,
		ColTradeLane:   DefaultTradeLane,
		ColMode:        DefaultMode,
	}

	columns := make([][]string, len(linearColumns))
	for c, col := range linearColumns {
		idx := source.IndexOf(headers, col)
		columns[c] = make([]string, len(rows))
		for r, row := range rows {
			v := source.Cell(row, idx)
			if v == "" {
				v = fill[col]
			}
			columns[c][r] = v
		}
	}

	a := &LinearArtifact{Encoders: make(map[string]*matcher.Vocabulary, len(linearColumns))}
	for c, col := range linearColumns {
		a.Encoders[col] = matcher.NewVocabulary(columns[c])
	}

	iCost := source.IndexOf(headers, ColCost)
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for r, row := range rows {
		X[r] = make([]float64, len(linearColumns))
		for c, col := range linearColumns {
			X[r][c] = float64(a.Encoders[col].Index(columns[c][r]))
		}
		y[r] = parseNumber(source.Cell(row, iCost))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := model.FitLinear(X, y, ridge)
	if err != nil {
		return nil, fmt.Errorf("failed to fit linear model: %w", err)
	}
	a.Model = m

	pred := make([]float64, len(X))
	for i, x := range X {
		pred[i], _ = m.Predict(x)
	}
	a.Metrics, err = model.Evaluate(pred, y)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Linear resolves each categorical input with the fuzzy matcher and feeds
// the indices to the linear model.
type Linear struct {
	load    Loader[*LinearArtifact]
	matcher *matcher.Matcher
}

func NewLinear(load Loader[*LinearArtifact], m *matcher.Matcher) *Linear {
	if m == nil {
		m = matcher.New(matcher.DefaultThreshold)
	}
	return &Linear{load: load, matcher: m}
}

func (l *Linear) Name() string { return "linear" }

// Encode resolves a request to the model's feature vector. Origin,
// destination and equipment must resolve; trade lane and mode fall back to
// index 0.
func (l *Linear) Encode(a *LinearArtifact, req Request) ([]float64, error) {
	tradeLane, mode := req.TradeLane, req.Mode
	if tradeLane == "" {
		tradeLane = DefaultTradeLane
	}
	if mode == "" {
		mode = DefaultMode
	}

	inputs := []struct {
		column    string
		value     string
		mandatory bool
	}{
		{ColOrigin, req.Origin, true},
		{ColDestination, req.Destination, true},
		{ColEquipment, req.Equipment, true},
		{ColTradeLane, tradeLane, false},
		{ColMode, mode, false},
	}

	x := make([]float64, len(inputs))
	for i, in := range inputs {
		res := l.matcher.Encode(a.Encoders[in.column], in.value)
		if !res.OK() {
			if in.mandatory {
				return nil, &UnresolvableError{Column: in.column, Value: in.value, Suggestions: res.Suggestions}
			}
			res.Index = 0
		}
		x[i] = float64(res.Index)
	}
	return x, nil
}

func (l *Linear) Predict(ctx context.Context, req Request) (float64, error) {
	a, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	x, err := l.Encode(a, req)
	if err != nil {
		return 0, err
	}
	cost, err := a.Model.Predict(x)
	if err != nil {
		return 0, err
	}
	return round2(cost), nil
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
