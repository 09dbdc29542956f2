package artifacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/model"
	"github.com/rate-estimator/internal/ratecache"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/store"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("freight-rates")
	require.NoError(t, err)
	assert.Equal(t, FreightRates, k)

	_, err = ParseKind("customs")
	assert.Error(t, err)
}

func TestMissingArtifactIsNoModel(t *testing.T) {
	reg := NewRegistry(store.NewMemoryStore(), nil)

	_, err := reg.Linear.Get(context.Background())
	assert.ErrorIs(t, err, estimator.ErrNoModel)

	_, err = reg.Tiered.Get(context.Background())
	assert.ErrorIs(t, err, estimator.ErrNoModel)
}

func TestMalformedArtifactFailsLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	reg := NewRegistry(s, nil)

	cases := map[string]string{
		"not json":       `{"rates": [`,
		"wrong shape":    `{"rates": {"operation": "NL-DOM"}}`,
		"unknown fields": `{"rates": [], "version": 2}`,
		"invalid rule":   `{"rates": [{"operation": "", "type": "ORIGIN"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, KeyTiered, []byte(doc)))
			_, err := reg.Tiered.Get(ctx)
			require.Error(t, err)
			assert.NotErrorIs(t, err, estimator.ErrNoModel)
			assert.False(t, reg.Tiered.Loaded())
		})
	}
}

func TestSaveGeneralRefreshesCache(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore(), nil)

	first := &rates.Table{Rules: []rates.Rule{{Operation: "NL-DOM", Type: "ORIGIN", RateType: rates.Flat, FlatRate: 150}}}
	require.NoError(t, reg.SaveGeneral(ctx, first))

	got, err := reg.Tiered.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := &rates.Table{Rules: []rates.Rule{{Operation: "DE-DOM", Type: "ORIGIN", RateType: rates.Flat, FlatRate: 90}}}
	require.NoError(t, reg.SaveGeneral(ctx, second))

	got, err = reg.Tiered.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DE-DOM", got.Rules[0].Operation)
}

func TestSaveFreight(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	reg := NewRegistry(s, nil)

	vocab := func(v ...string) *matcher.Vocabulary { return matcher.NewVocabulary(v) }
	freq := func(v ...string) *estimator.FrequencyMap { return estimator.BuildFrequencyMap(v, 0) }
	f := Freight{
		Records: &ratecache.Records{Rates: []ratecache.Record{{Origin: "Rotterdam, ZH, NL", Destination: "Shanghai, SH, CN", Cost: 1000, EquipmentType: "20ft dry"}}},
		Linear: &estimator.LinearArtifact{
			Encoders: map[string]*matcher.Vocabulary{
				estimator.ColOrigin: vocab("Rotterdam"), estimator.ColDestination: vocab("Shanghai"),
				estimator.ColEquipment: vocab("20ft dry"), estimator.ColTradeLane: vocab("DEFAULT"), estimator.ColMode: vocab("SEA"),
			},
			Model: &model.Linear{Bias: 1000, Weights: make([]float64, 5)},
		},
		Ensemble: &estimator.EnsembleArtifact{
			Encoders: map[string]*estimator.FrequencyMap{
				estimator.ColOrigin: freq("Rotterdam"), estimator.ColDestination: freq("Shanghai"),
				estimator.ColEquipment: freq("20ft dry"), estimator.ColMode: freq("Seafreight"),
			},
			Model: &model.Ensemble{SubModels: []*model.Forest{{NumFeatures: 6, Trees: []model.Tree{{Nodes: []model.Node{{Feature: -1, Value: 1000}}}}}}},
		},
	}
	require.NoError(t, reg.SaveFreight(ctx, f))

	for _, key := range []string{KeyRecords, KeyLinear, KeyEnsemble} {
		_, err := s.Get(ctx, key)
		assert.NoError(t, err, key)
	}

	records, err := reg.Records.Get(ctx)
	require.NoError(t, err)
	cost, ok := records.Lookup("rotterdam, zh, nl", "Shanghai, SH, CN", "20ft dry")
	assert.True(t, ok)
	assert.Equal(t, 1000.0, cost)

	cost, err = estimator.NewLinear(reg.Linear.Get, nil).Predict(ctx, estimator.Request{Origin: "Rotterdam", Destination: "Shanghai", Equipment: "20ft dry"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cost)

	cost, err = estimator.NewEnsemble(reg.Ensemble.Get).Predict(ctx, estimator.Request{Origin: "Rotterdam"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cost)
}
