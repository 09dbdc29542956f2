package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	rotterdam = Point{Lat: 51.9244, Lng: 4.4777}
	hamburg   = Point{Lat: 53.5511, Lng: 9.9937}
	shanghai  = Point{Lat: 31.2304, Lng: 121.4737}
	sydney    = Point{Lat: -33.8688, Lng: 151.2093}
)

func TestHaversineKnownDistance(t *testing.T) {
	// Rotterdam to Hamburg is roughly 410 km as the crow flies.
	assert.InDelta(t, 410, Haversine(rotterdam, hamburg), 10)
}

func TestHaversineSymmetric(t *testing.T) {
	points := []Point{rotterdam, hamburg, shanghai, sydney, {Lat: 0, Lng: 180}, {Lat: 0, Lng: -180}}
	for _, a := range points {
		assert.Zero(t, Haversine(a, a))
		for _, b := range points {
			assert.Equal(t, Haversine(a, b), Haversine(b, a))
		}
	}
}

type ref struct {
	name string
	p    Point
}

func (r ref) Coordinates() Point { return r.p }

func TestNearest(t *testing.T) {
	refs := []ref{
		{"Shanghai", shanghai},
		{"Hamburg", hamburg},
		{"Rotterdam", rotterdam},
	}

	best, dist, ok := Nearest(refs, Point{Lat: 51.95, Lng: 4.14})
	assert.True(t, ok)
	assert.Equal(t, "Rotterdam", best.name)
	assert.Less(t, dist, 30.0)
}

func TestNearestTieKeepsFirst(t *testing.T) {
	refs := []ref{{"a", rotterdam}, {"b", rotterdam}}

	best, _, ok := Nearest(refs, hamburg)
	assert.True(t, ok)
	assert.Equal(t, "a", best.name)
}

func TestNearestEmpty(t *testing.T) {
	_, _, ok := Nearest([]ref(nil), rotterdam)
	assert.False(t, ok)
}
