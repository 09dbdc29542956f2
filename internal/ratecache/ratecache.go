// Package ratecache keeps the freight rates seen in rate sheets for exact
// origin/destination/equipment lookups.
package ratecache

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rate-estimator/internal/source"
)

// Freight sheet columns.
const (
	ColOrigin      = "origin_location"
	ColDestination = "destination_location"
	ColCost        = "cost_base_rate_amount"
	ColEquipment   = "equipment_type"
)

// DefaultEquipment is assumed for rows without an equipment type.
const DefaultEquipment = "20ft dry"

// Record is one observed price.
type Record struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Cost          float64 `json:"cost"`
	EquipmentType string  `json:"equipment_type"`
}

// Records is the persisted rate list, kept in sheet order.
type Records struct {
	Rates []Record `json:"rates"`
}

func (r *Records) Validate() error {
	if r.Rates == nil {
		return errors.New("ratecache: missing rate list")
	}
	return nil
}

// Build reads every row of a freight sheet. Origin, destination and cost
// columns are required; unparsable costs count as 0.
func Build(headers []string, rows [][]string) (*Records, error) {
	if err := source.Require(headers, ColOrigin, ColDestination, ColCost); err != nil {
		return nil, err
	}
	iOrigin := source.IndexOf(headers, ColOrigin)
	iDest := source.IndexOf(headers, ColDestination)
	iCost := source.IndexOf(headers, ColCost)
	iEquip := source.IndexOf(headers, ColEquipment)

	out := &Records{Rates: make([]Record, 0, len(rows))}
	for _, row := range rows {
		cost, err := strconv.ParseFloat(source.Cell(row, iCost), 64)
		if err != nil {
			cost = 0
		}
		equipment := source.Cell(row, iEquip)
		if equipment == "" {
			equipment = DefaultEquipment
		}
		out.Rates = append(out.Rates, Record{
			Origin:        source.Cell(row, iOrigin),
			Destination:   source.Cell(row, iDest),
			Cost:          cost,
			EquipmentType: equipment,
		})
	}
	return out, nil
}

// Lookup returns the cost of the first record whose origin and destination
// equal the query (trimmed, case-insensitive) and whose equipment type
// equals it exactly. The cost is rounded to cents.
func (r *Records) Lookup(origin, destination, equipment string) (float64, bool) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	for _, rec := range r.Rates {
		if strings.EqualFold(strings.TrimSpace(rec.Origin), origin) &&
			strings.EqualFold(strings.TrimSpace(rec.Destination), destination) &&
			rec.EquipmentType == equipment {
			return Round2(rec.Cost), true
		}
	}
	return 0, false
}

// Locations returns the distinct origin and destination names in first-seen
// order, without blanks.
func (r *Records) Locations() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(n string) {
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	for _, rec := range r.Rates {
		add(rec.Origin)
		add(rec.Destination)
	}
	return names
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
