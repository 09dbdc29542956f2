// Package matcher resolves raw categorical values (locations, equipment
// types, trade lanes, modes) against the vocabulary observed at training
// time.
//
// Resolution runs four tiers in order and stops at the first tier that
// produces a candidate:
//
//  1. exact: verbatim equality, then equality after Normalize
//  2. normalized: equality after NormalizeAndMapCountry
//  3. token: most shared tokens (ties go to the earlier vocabulary entry)
//  4. levenshtein: smallest edit distance between the country-mapped
//     forms, accepted while
//     distance/max(len(query), len(candidate)) <= Threshold
//
// When every tier fails the result carries the closest entries by edit
// distance as suggestions.
package matcher

import (
	"encoding/json"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/rate-estimator/internal/metrics"
	"github.com/rate-estimator/internal/normalize"
)

// DefaultThreshold is the largest accepted edit-distance ratio.
const DefaultThreshold = 0.35

// MaxSuggestions bounds the suggestions returned for an unresolved value.
const MaxSuggestions = 3

// Method names the tier that resolved a value.
type Method string

const (
	MethodExact       Method = "exact"
	MethodNormalized  Method = "normalized"
	MethodToken       Method = "token"
	MethodLevenshtein Method = "levenshtein"
	MethodNone        Method = "none"
)

// Vocabulary is the ordered list of distinct values seen for one column.
// Position is the encoded index, so order must survive save and load.
type Vocabulary struct {
	values     []string
	normalized []string
	aliased    []string
	tokens     [][]string
}

// NewVocabulary builds a vocabulary, dropping repeated values after their
// first occurrence.
func NewVocabulary(values []string) *Vocabulary {
	v := &Vocabulary{}
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		v.add(value)
	}
	return v
}

func (v *Vocabulary) add(value string) {
	aliased := normalize.NormalizeAndMapCountry(value)
	v.values = append(v.values, value)
	v.normalized = append(v.normalized, normalize.Normalize(value))
	v.aliased = append(v.aliased, aliased)
	v.tokens = append(v.tokens, normalize.Tokenize(aliased))
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.values)
}

// Values returns a copy of the entries in index order.
func (v *Vocabulary) Values() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.values...)
}

// At returns the entry at index i.
func (v *Vocabulary) At(i int) string {
	return v.values[i]
}

// Index returns the position of the verbatim value, or -1.
func (v *Vocabulary) Index(value string) int {
	for i, s := range v.values {
		if s == value {
			return i
		}
	}
	return -1
}

func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	values := v.values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*v = *NewVocabulary(values)
	return nil
}

// Result is the outcome of encoding one raw value. Index is -1 when no tier
// resolved the value.
type Result struct {
	Index       int      `json:"index"`
	Matched     string   `json:"matched,omitempty"`
	Method      Method   `json:"method"`
	Score       float64  `json:"score"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// OK reports whether the value resolved to a vocabulary entry.
func (r Result) OK() bool {
	return r.Index >= 0
}

// Matcher encodes raw values against vocabularies.
type Matcher struct {
	// Threshold is the largest accepted edit-distance ratio for the
	// levenshtein tier.
	Threshold float64
}

// New returns a matcher with the given threshold; a non-positive threshold
// selects DefaultThreshold.
func New(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

// Encode resolves raw against vocab.
func (m *Matcher) Encode(vocab *Vocabulary, raw string) Result {
	res := m.encode(vocab, raw)
	metrics.MatcherTierHits.WithLabelValues(string(res.Method)).Inc()
	return res
}

func (m *Matcher) encode(vocab *Vocabulary, raw string) Result {
	if vocab.Len() == 0 {
		return Result{Index: -1, Method: MethodNone}
	}

	if i := vocab.Index(raw); i >= 0 {
		return m.found(vocab, i, MethodExact, 1)
	}

	norm := normalize.Normalize(raw)
	for i, s := range vocab.normalized {
		if s == norm {
			return m.found(vocab, i, MethodExact, 1)
		}
	}

	aliased := normalize.NormalizeAndMapCountry(raw)
	for i, s := range vocab.aliased {
		if s == aliased {
			return m.found(vocab, i, MethodNormalized, 1)
		}
	}

	if i, score := bestTokenOverlap(vocab, normalize.Tokenize(aliased)); i >= 0 {
		return m.found(vocab, i, MethodToken, score)
	}

	return m.closest(vocab, aliased)
}

func (m *Matcher) found(vocab *Vocabulary, i int, method Method, score float64) Result {
	return Result{Index: i, Matched: vocab.values[i], Method: method, Score: score}
}

// bestTokenOverlap returns the entry sharing the most distinct tokens with
// the query and the share of query tokens matched, or -1.
func bestTokenOverlap(vocab *Vocabulary, query []string) (int, float64) {
	if len(query) == 0 {
		return -1, 0
	}
	want := make(map[string]struct{}, len(query))
	for _, t := range query {
		want[t] = struct{}{}
	}

	best, bestCount := -1, 0
	for i, tokens := range vocab.tokens {
		count := 0
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := want[t]; ok {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, float64(bestCount) / float64(len(want))
}

type distance struct {
	index int
	dist  int
	ratio float64
}

// closest compares country-mapped forms by edit distance.
func (m *Matcher) closest(vocab *Vocabulary, query string) Result {
	queryLen := utf8.RuneCountInString(query)
	dists := make([]distance, len(vocab.aliased))
	for i, s := range vocab.aliased {
		d := levenshtein.ComputeDistance(query, s)
		longest := max(1, queryLen, utf8.RuneCountInString(s))
		dists[i] = distance{index: i, dist: d, ratio: float64(d) / float64(longest)}
	}
	sort.SliceStable(dists, func(a, b int) bool {
		return dists[a].dist < dists[b].dist
	})

	if best := dists[0]; best.ratio <= m.Threshold {
		return m.found(vocab, best.index, MethodLevenshtein, 1-best.ratio)
	}

	n := min(MaxSuggestions, len(dists))
	suggestions := make([]string, n)
	for i := range n {
		suggestions[i] = vocab.values[dists[i].index]
	}
	return Result{Index: -1, Method: MethodNone, Suggestions: suggestions}
}
