package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/source"
	"github.com/rate-estimator/internal/store"
)

func static[T any](v T) Loader[T] {
	return func(context.Context) (T, error) { return v, nil }
}

func TestFrequencyMap(t *testing.T) {
	f := BuildFrequencyMap([]string{"b", "a", "c", "a", " b", "d", "a"}, 3)

	// a x3, b x2, then c and d tie at 1 and c was seen first
	assert.Equal(t, 1, f.Encode("a"))
	assert.Equal(t, 2, f.Encode("b"))
	assert.Equal(t, 3, f.Encode("c"))
	assert.Equal(t, 0, f.Encode("d"), "cut by the cap")
	assert.Equal(t, 0, f.Encode("zzz"))
	assert.Equal(t, 3, f.Len())

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b","c"]`, string(data))

	var back FrequencyMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back.Encode("b"))
}

func TestFrequencyMapDefaultCap(t *testing.T) {
	values := make([]string, 0, 300)
	for i := range 300 {
		values = append(values, strconv.Itoa(i))
	}
	assert.Equal(t, DefaultVocabCap, BuildFrequencyMap(values, 0).Len())
}

var linearHeaders = []string{"origin_location", "destination_location", "equipment_type", "trade_lane", "mode", "cost_base_rate_amount"}

func linearRows() [][]string {
	return [][]string{
		{"Rotterdam, ZH, NL", "Shanghai, SH, CN", "20ft dry", "ASIA", "SEA", "1000"},
		{"Hamburg, HH, DE", "Shanghai, SH, CN", "20ft dry", "ASIA", "SEA", "1100"},
		{"Rotterdam, ZH, NL", "Ningbo, ZJ, CN", "40ft dry", "ASIA", "", "1500"},
		{"Antwerp, VAN, BE", "Ningbo, ZJ, CN", "40ft dry", "", "SEA", "1650"},
		{"Hamburg, HH, DE", "Ningbo, ZJ, CN", "20ft dry", "ASIA", "SEA", "1200"},
		{"Antwerp, VAN, BE", "Shanghai, SH, CN", "40ft dry", "ASIA", "SEA", "1550"},
	}
}

func TestTrainLinear(t *testing.T) {
	a, err := TrainLinear(context.Background(), linearHeaders, linearRows(), 0)
	require.NoError(t, err)
	require.NoError(t, a.Validate())

	assert.Equal(t, []string{"Rotterdam, ZH, NL", "Hamburg, HH, DE", "Antwerp, VAN, BE"}, a.Encoders[ColOrigin].Values())
	assert.Equal(t, []string{"ASIA", DefaultTradeLane}, a.Encoders[ColTradeLane].Values())
	assert.Equal(t, []string{"SEA"}, a.Encoders[ColMode].Values())
	assert.Equal(t, 6, a.Metrics.N)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), "linear.json", data))
	var back LinearArtifact
	require.NoError(t, store.GetJSON(context.Background(), s, "linear.json", &back))
	assert.Equal(t, a.Encoders[ColDestination].Values(), back.Encoders[ColDestination].Values())
	assert.Equal(t, a.Model, back.Model)
}

func TestTrainLinearMissingColumns(t *testing.T) {
	_, err := TrainLinear(context.Background(), []string{"origin_location", "mode"}, linearRows(), 0)
	assert.ErrorIs(t, err, source.ErrMissingColumns)

	_, err = TrainLinear(context.Background(), linearHeaders, nil, 0)
	assert.Error(t, err)
}

func fixedLinear() *LinearArtifact {
	return &LinearArtifact{
		Encoders: map[string]*matcher.Vocabulary{
			ColOrigin:      matcher.NewVocabulary([]string{"Rotterdam", "Hamburg"}),
			ColDestination: matcher.NewVocabulary([]string{"Shanghai", "Ningbo"}),
			ColEquipment:   matcher.NewVocabulary([]string{"20ft dry", "40ft dry"}),
			ColTradeLane:   matcher.NewVocabulary([]string{"DEFAULT", "ASIA"}),
			ColMode:        matcher.NewVocabulary([]string{"SEA", "RAIL"}),
		},
		// cost = 1000 + 100*origin + 10*destination + 500*equipment + 1*lane + 2*mode
		Model: &model.Linear{Bias: 1000, Weights: []float64{100, 10, 500, 1, 2}},
	}
}

func TestLinearPredict(t *testing.T) {
	est := NewLinear(static(fixedLinear()), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want float64
	}{
		{"all exact", Request{Origin: "Hamburg", Destination: "Ningbo", Equipment: "40ft dry", TradeLane: "ASIA", Mode: "RAIL"}, 1000 + 100 + 10 + 500 + 1 + 2},
		{"fuzzy origin", Request{Origin: "hamburgg", Destination: "Shanghai", Equipment: "20ft dry"}, 1100},
		{"optional defaults", Request{Origin: "Rotterdam", Destination: "Shanghai", Equipment: "20ft dry"}, 1000},
		{"unresolved optional falls back", Request{Origin: "Rotterdam", Destination: "Shanghai", Equipment: "20ft dry", TradeLane: "Transpacific eastbound", Mode: "Barge on the Rhine"}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.Predict(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinearMandatoryUnresolvable(t *testing.T) {
	est := NewLinear(static(fixedLinear()), nil)

	_, err := est.Predict(context.Background(), Request{Origin: "Rotterdam", Destination: "Valparaiso Chile", Equipment: "20ft dry"})

	var unresolved *UnresolvableError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, ColDestination, unresolved.Column)
	assert.Equal(t, "Valparaiso Chile", unresolved.Value)
	assert.Len(t, unresolved.Suggestions, 2)
	assert.Contains(t, err.Error(), "destination_location")
}

func TestLinearSuggestsThree(t *testing.T) {
	a := fixedLinear()
	a.Encoders[ColEquipment] = matcher.NewVocabulary([]string{"20ft dry", "40ft dry", "40ft hc", "45ft hc"})
	est := NewLinear(static(a), nil)

	_, err := est.Predict(context.Background(), Request{Origin: "Rotterdam", Destination: "Shanghai", Equipment: "reefer"})

	var unresolved *UnresolvableError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, ColEquipment, unresolved.Column)
	assert.Len(t, unresolved.Suggestions, 3)
}

func TestLinearNoModel(t *testing.T) {
	est := NewLinear(func(context.Context) (*LinearArtifact, error) {
		return nil, fmt.Errorf("load linear: %w", ErrNoModel)
	}, nil)

	_, err := est.Predict(context.Background(), Request{Origin: "Rotterdam"})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestLinearArtifactValidate(t *testing.T) {
	assert.NoError(t, fixedLinear().Validate())

	a := fixedLinear()
	delete(a.Encoders, ColMode)
	assert.Error(t, a.Validate())

	a = fixedLinear()
	a.Model.Weights = a.Model.Weights[:3]
	assert.Error(t, a.Validate())

	assert.Error(t, (&LinearArtifact{}).Validate())
}

var ensembleHeaders = []string{"origin_location", "destination_location", "equipment_type", "mode", "time_transit_duration", "number_of_sailings", "cost_base_rate_amount"}

func ensembleRows(n int) [][]string {
	origins := []string{"Rotterdam", "Hamburg", "Antwerp"}
	rows := make([][]string, n)
	for i := range rows {
		equipment, cost := "20ft dry", 1000
		if i%2 == 1 {
			equipment, cost = "40ft dry", 2000
		}
		rows[i] = []string{origins[i%3], "Shanghai", equipment, "Seafreight", "30", "4", strconv.Itoa(cost)}
	}
	return rows
}

func TestTrainEnsemble(t *testing.T) {
	a, err := TrainEnsemble(context.Background(), ensembleHeaders, ensembleRows(100), EnsembleOptions{
		Model: model.EnsembleOptions{ChunkSize: 40, Parallel: 2, Forest: model.ForestOptions{Trees: 3, MinLeaf: 2, Seed: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, a.Validate())

	// 80 training rows in chunks of 40
	assert.Len(t, a.Model.SubModels, 2)
	assert.Equal(t, 20, a.Metrics.N)
	assert.InDelta(t, 0, a.Metrics.RMSE, 1e-9)

	est := NewEnsemble(static(a))
	small, err := est.Predict(context.Background(), Request{Origin: "Hamburg", Destination: "Shanghai", Equipment: "20ft dry", TransitDays: 30, Sailings: 4})
	require.NoError(t, err)
	large, err := est.Predict(context.Background(), Request{Origin: "Hamburg", Destination: "Shanghai", Equipment: "40ft dry", TransitDays: 30, Sailings: 4})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, small)
	assert.Equal(t, 2000.0, large)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	var back EnsembleArtifact
	require.NoError(t, json.Unmarshal(data, &back))
	require.NoError(t, back.Validate())
	if diff := cmp.Diff(est.Encode(a, Request{Origin: "Antwerp", Equipment: "40ft dry"}), NewEnsemble(static(&back)).Encode(&back, Request{Origin: "Antwerp", Equipment: "40ft dry"})); diff != "" {
		t.Errorf("encoding changed after reload (-want +got):\n%s", diff)
	}
}

func TestEnsembleEncodeUnseen(t *testing.T) {
	a, err := TrainEnsemble(context.Background(), ensembleHeaders, ensembleRows(10), EnsembleOptions{
		Model: model.EnsembleOptions{Forest: model.ForestOptions{Trees: 1, Seed: 1}},
	})
	require.NoError(t, err)

	x := NewEnsemble(static(a)).Encode(a, Request{Origin: "Felixstowe", Destination: "Shanghai", Equipment: "reefer"})
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 0}, x)
}

func TestTrainEnsembleMissingColumns(t *testing.T) {
	_, err := TrainEnsemble(context.Background(), linearHeaders[:3], ensembleRows(10), EnsembleOptions{})
	assert.ErrorIs(t, err, source.ErrMissingColumns)
}

func TestEnsembleArtifactValidate(t *testing.T) {
	f := &model.Forest{NumFeatures: 3, Trees: []model.Tree{{Nodes: []model.Node{{Feature: -1, Value: 1}}}}}
	a := &EnsembleArtifact{
		Encoders: map[string]*FrequencyMap{
			ColOrigin: BuildFrequencyMap(nil, 0), ColDestination: BuildFrequencyMap(nil, 0),
			ColEquipment: BuildFrequencyMap(nil, 0), ColMode: BuildFrequencyMap(nil, 0),
		},
		Model: &model.Ensemble{SubModels: []*model.Forest{f}},
	}
	assert.Error(t, a.Validate(), "feature count mismatch")

	f.NumFeatures = 6
	assert.NoError(t, a.Validate())

	delete(a.Encoders, ColMode)
	assert.Error(t, a.Validate())
}
