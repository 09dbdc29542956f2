package matcher

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTiers(t *testing.T) {
	vocab := NewVocabulary([]string{
		"Rotterdam, ZH, NL",
		"Hamburg, DE",
		"Shanghai, CN",
		"40ft dry",
	})
	m := New(DefaultThreshold)

	tests := []struct {
		name   string
		raw    string
		index  int
		method Method
	}{
		{"verbatim", "Hamburg, DE", 1, MethodExact},
		{"case and spacing", "  hamburg,   de ", 1, MethodExact},
		{"country alias", "Rotterdam, ZH, Netherlands", 0, MethodNormalized},
		{"token overlap", "Port of Shanghai", 2, MethodToken},
		{"typo", "40ftdry", 3, MethodLevenshtein},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Encode(vocab, tt.raw)
			assert.Equal(t, tt.index, res.Index)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, vocab.At(tt.index), res.Matched)
			assert.True(t, res.OK())
		})
	}
}

func TestEncodeTrailingSpaceDifferentCase(t *testing.T) {
	vocab := NewVocabulary([]string{"Rotterdam", "Hamburg"})

	res := New(DefaultThreshold).Encode(vocab, "rotterdam ")

	assert.Equal(t, 0, res.Index)
	assert.Equal(t, MethodExact, res.Method)
}

func TestEncodeTransposition(t *testing.T) {
	vocab := NewVocabulary([]string{"Rotterdam", "Hamburg"})

	res := New(DefaultThreshold).Encode(vocab, "Rottredam")

	assert.Equal(t, 0, res.Index)
	assert.Equal(t, MethodLevenshtein, res.Method)
	assert.InDelta(t, 1-2.0/9.0, res.Score, 1e-9)
}

func TestEncodeExactWinsOverNearDuplicates(t *testing.T) {
	vocab := NewVocabulary([]string{"Rotterdam ", "ROTTERDAM", "Rotterdam"})

	res := New(DefaultThreshold).Encode(vocab, "Rotterdam")

	assert.Equal(t, 2, res.Index)
	assert.Equal(t, MethodExact, res.Method)
}

func TestEncodeLevenshteinBoundary(t *testing.T) {
	query := strings.Repeat("a", 1000)
	m := New(DefaultThreshold)

	atLimit := NewVocabulary([]string{strings.Repeat("a", 650) + strings.Repeat("b", 350)})
	res := m.Encode(atLimit, query)
	assert.Equal(t, 0, res.Index, "ratio 0.35 must be accepted")
	assert.Equal(t, MethodLevenshtein, res.Method)

	overLimit := NewVocabulary([]string{strings.Repeat("a", 649) + strings.Repeat("b", 351)})
	res = m.Encode(overLimit, query)
	assert.Equal(t, -1, res.Index, "ratio 0.351 must be rejected")
	assert.Equal(t, MethodNone, res.Method)
}

func TestEncodeUnresolvedSuggestions(t *testing.T) {
	vocab := NewVocabulary([]string{"Rotterdam", "Hamburg", "Antwerp", "Felixstowe", "Le Havre"})

	res := New(DefaultThreshold).Encode(vocab, "Xq")

	require.False(t, res.OK())
	assert.Equal(t, -1, res.Index)
	assert.Len(t, res.Suggestions, MaxSuggestions)
	for _, s := range res.Suggestions {
		assert.Contains(t, vocab.Values(), s)
	}
}

func TestEncodeSuggestionsOrderedByDistance(t *testing.T) {
	vocab := NewVocabulary([]string{"zzzzzzzzzz", "abcdefgh", "abcdwxyz", "abqrstuv"})

	res := New(0.1).Encode(vocab, "abcdefgz")

	// closest is distance 1 over length 8, above 0.1
	require.False(t, res.OK())
	assert.Equal(t, []string{"abcdefgh", "abcdwxyz", "abqrstuv"}, res.Suggestions)
}

func TestEncodeEmptyVocabulary(t *testing.T) {
	res := New(0).Encode(NewVocabulary(nil), "Rotterdam")
	assert.Equal(t, -1, res.Index)
	assert.Empty(t, res.Suggestions)
}

func TestTokenTieGoesToFirstEntry(t *testing.T) {
	vocab := NewVocabulary([]string{"Antwerp, BE", "Rotterdam, NL", "Hamburg, DE"})

	res := New(DefaultThreshold).Encode(vocab, "Ghent BE NL")

	assert.Equal(t, 0, res.Index)
	assert.Equal(t, MethodToken, res.Method)
}

func TestVocabularyJSONKeepsOrder(t *testing.T) {
	vocab := NewVocabulary([]string{"b", "a", "b", "c"})
	assert.Equal(t, []string{"b", "a", "c"}, vocab.Values())

	data, err := json.Marshal(vocab)
	require.NoError(t, err)
	assert.JSONEq(t, `["b","a","c"]`, string(data))

	var back Vocabulary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, vocab.Values(), back.Values())
	assert.Equal(t, 2, back.Index("c"))
}

func TestEncodeResolvesEveryVocabularyEntry(t *testing.T) {
	faker := gofakeit.New(7)
	values := make([]string, 0, 200)
	for range 200 {
		values = append(values, faker.City()+", "+faker.CountryAbr())
	}
	vocab := NewVocabulary(values)
	m := New(DefaultThreshold)

	for _, v := range values {
		res := m.Encode(vocab, v)
		require.True(t, res.OK(), v)
		assert.Equal(t, MethodExact, res.Method, v)
		assert.True(t, strings.EqualFold(v, res.Matched), "%q matched %q", v, res.Matched)
	}
}
