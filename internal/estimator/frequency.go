package estimator

import (
	"encoding/json"
	"sort"
	"strings"
)

// DefaultVocabCap bounds a frequency map.
const DefaultVocabCap = 200

// FrequencyMap encodes the most frequent training values as 1..n in order
// of descending frequency. Everything else, including values cut by the
// cap, encodes as 0.
type FrequencyMap struct {
	values []string
	index  map[string]int
}

// BuildFrequencyMap counts values (trimmed) and keeps the cap most frequent.
// Equal counts keep first-seen order.
func BuildFrequencyMap(values []string, limit int) *FrequencyMap {
	if limit <= 0 {
		limit = DefaultVocabCap
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return newFrequencyMap(order)
}

func newFrequencyMap(values []string) *FrequencyMap {
	f := &FrequencyMap{values: values, index: make(map[string]int, len(values))}
	for i, v := range values {
		if _, dup := f.index[v]; !dup {
			f.index[v] = i + 1
		}
	}
	return f
}

// Encode returns the 1-based rank of v, or 0 when v was not kept.
func (f *FrequencyMap) Encode(v string) int {
	return f.index[strings.TrimSpace(v)]
}

func (f *FrequencyMap) Len() int {
	return len(f.values)
}

func (f *FrequencyMap) MarshalJSON() ([]byte, error) {
	values := f.values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func (f *FrequencyMap) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*f = *newFrequencyMap(values)
	return nil
}
