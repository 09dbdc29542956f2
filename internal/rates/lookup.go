package rates

import "strings"

// Quote is the outcome of a lookup. A Rate of 0 with RateType Unknown means
// the cost is unavailable, not free.
type Quote struct {
	RateType    string  `json:"rateType"`
	Rate        float64 `json:"rate"`
	RatePerUnit float64 `json:"ratePerUnit,omitempty"`
}

// Available reports whether a rule produced a rate.
func (q Quote) Available() bool {
	return q.RateType != Unknown && q.Rate != 0
}

// Match returns the first rule whose operation and type equal the query
// case-insensitively and whose closed distance and volume bands contain the
// query. Overlapping rules are not ranked; table order decides.
func (t *Table) Match(distance, volume float64, role, operation string) (Rule, bool) {
	for _, r := range t.Rules {
		if !strings.EqualFold(r.Operation, operation) || !strings.EqualFold(r.Type, role) {
			continue
		}
		if distance < r.DistanceStart || distance > r.DistanceEnd {
			continue
		}
		if volume < r.MinValue || volume > r.MaxValue {
			continue
		}
		return r, true
	}
	return Rule{}, false
}

// Lookup prices a move. Flat rules return their flat rate; variable rules
// charge the per-unit rate times volume.
func (t *Table) Lookup(distance, volume float64, role, operation string) Quote {
	r, ok := t.Match(distance, volume, strings.TrimSpace(role), strings.TrimSpace(operation))
	if !ok {
		return Quote{RateType: Unknown}
	}

	switch r.RateType {
	case Flat:
		return Quote{RateType: Flat, Rate: r.FlatRate}
	case Variable:
		return Quote{RateType: Variable, Rate: r.FlexRate * volume, RatePerUnit: r.FlexRate}
	default:
		return Quote{RateType: Unknown}
	}
}
