package normalize

import (
	"reflect"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing space and case",
			input: "Rotterdam ",
			want:  "rotterdam",
		},
		{
			name:  "smart quotes removed",
			input: "‘Port’ of “Antwerp”",
			want:  "port of antwerp",
		},
		{
			name:  "keeps comma period hyphen",
			input: "Rotterdam, ZH, NL - Maasvlakte.",
			want:  "rotterdam, zh, nl - maasvlakte.",
		},
		{
			name:  "drops odd punctuation",
			input: "40ft (dry) #HC!",
			want:  "40ft dry hc",
		},
		{
			name:  "collapses whitespace",
			input: "  Hamburg \t\n  DE ",
			want:  "hamburg de",
		},
		{
			name:  "transliterates accents",
			input: "Zürich",
			want:  "zurich",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Rotterdam, ZH, NL",
		"  ‘Shanghai’  (CN) ",
		"São Paulo -- BR",
		"40' HC / reefer",
		"Ærøskøbing, Denmark",
		"",
		"...,,--",
	}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
		mapped := NormalizeAndMapCountry(in)
		if again := NormalizeAndMapCountry(mapped); again != mapped {
			t.Errorf("NormalizeAndMapCountry not idempotent for %q: %q then %q", in, mapped, again)
		}
	}
}

func TestNormalizeIdempotentGenerated(t *testing.T) {
	faker := gofakeit.New(42)
	for range 500 {
		in := faker.Street() + ", " + faker.City() + ", " + faker.Country()
		once := NormalizeAndMapCountry(in)
		if twice := NormalizeAndMapCountry(once); twice != once {
			t.Fatalf("NormalizeAndMapCountry not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeAndMapCountry(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Rotterdam, Netherlands", "rotterdam, nl"},
		{"Rotterdam, The Netherlands", "rotterdam, nl"},
		{"Amsterdam Holland", "amsterdam nl"},
		{"Shanghai, China", "shanghai, cn"},
		{"Felixstowe, United Kingdom", "felixstowe, uk"},
		{"Hollandsche Rading", "hollandsche rading"},
		{"Chinatown, USA", "chinatown, us"},
	}

	for _, tt := range tests {
		if got := NormalizeAndMapCountry(tt.input); got != tt.want {
			t.Errorf("NormalizeAndMapCountry(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsCode(t *testing.T) {
	for in, want := range map[string]bool{"CA": true, " nl ": true, "N1": false, "USA": false, "": false} {
		if got := IsCode(in); got != want {
			t.Errorf("IsCode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("rotterdam, zh.nl - maasvlakte")
	want := []string{"rotterdam", "zh", "nl", "maasvlakte"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}

	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"Netherlands", "NL", true},
		{"nl", "NL", true},
		{" de ", "DE", true},
		{"United States", "US", true},
		{"United Kingdom", "UK", true},
		{"Sweden", "SE", true},
		{"japan", "JP", true},
		{"India", "IN", true},
		{"Canada", "CA", true},
		{"United States of America", "US", true},
		{"se", "SE", true},
		{"IL", "IL", true},
		{"ZH", "", false},
		{"Atlantis", "", false},
		{"", "", false},
		{"N1", "", false},
	}

	for _, tt := range tests {
		got, ok := CountryCode(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CountryCode(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
