package ratecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rate-estimator/internal/source"
)

var headers = []string{"origin_location", "destination_location", "cost_base_rate_amount", "equipment_type"}

func TestBuildAndLookup(t *testing.T) {
	recs, err := Build(headers, [][]string{
		{"Rotterdam, ZH, NL", "Shanghai, SH, CN", "1234.567", "40ft dry"},
		{"Rotterdam, ZH, NL", "Shanghai, SH, CN", "999", ""},
		{"Rotterdam, ZH, NL", "Shanghai, SH, CN", "1", "40ft dry"},
		{"Hamburg, DE", "", "n/a", "20ft dry"},
	})
	require.NoError(t, err)
	require.Len(t, recs.Rates, 4)
	assert.Equal(t, DefaultEquipment, recs.Rates[1].EquipmentType)
	assert.Zero(t, recs.Rates[3].Cost)

	cost, ok := recs.Lookup(" rotterdam, zh, nl", "SHANGHAI, SH, CN ", "40ft dry")
	require.True(t, ok)
	assert.Equal(t, 1234.57, cost)

	cost, ok = recs.Lookup("Rotterdam, ZH, NL", "Shanghai, SH, CN", "20ft dry")
	require.True(t, ok)
	assert.Equal(t, 999.0, cost)

	_, ok = recs.Lookup("Rotterdam, ZH, NL", "Shanghai, SH, CN", "40FT DRY")
	assert.False(t, ok, "equipment compares exactly")

	_, ok = recs.Lookup("Antwerp, BE", "Shanghai, SH, CN", "40ft dry")
	assert.False(t, ok)
}

func TestBuildRequiresColumns(t *testing.T) {
	_, err := Build([]string{"origin_location", "equipment_type"}, nil)
	assert.ErrorIs(t, err, source.ErrMissingColumns)
}

func TestLocations(t *testing.T) {
	recs := &Records{Rates: []Record{
		{Origin: "Rotterdam", Destination: "Shanghai"},
		{Origin: "Hamburg", Destination: "Rotterdam"},
		{Origin: "", Destination: "Ningbo"},
	}}
	assert.Equal(t, []string{"Rotterdam", "Shanghai", "Hamburg", "Ningbo"}, recs.Locations())
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Records{}).Validate())
	assert.NoError(t, (&Records{Rates: []Record{}}).Validate())
}
