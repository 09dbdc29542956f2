// Package normalize canonicalizes free-text location and category values so
// that values typed by people can be compared with values observed in rate
// sheets.
package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/biter777/countries"
	"github.com/mozillazg/go-unidecode"
)

var (
	reSmartQuotes = regexp.MustCompile("[‘’“”]")
	reOddPunct    = regexp.MustCompile(`[^\w\s,.-]`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reTokenSplit  = regexp.MustCompile(`[\s,.-]+`)
)

// countryAliases maps country names as people write them to the short codes
// used in rate sheet location strings ("Rotterdam, ZH, NL").
var countryAliases = map[string]string{
	"netherlands":     "nl",
	"the netherlands": "nl",
	"holland":         "nl",
	"china":           "cn",
	"prc":             "cn",
	"denmark":         "dk",
	"germany":         "de",
	"deutschland":     "de",
	"united kingdom":  "uk",
	"unitedkingdom":   "uk",
	"great britain":   "uk",
	"united states":   "us",
	"unitedstates":    "us",
	"usa":             "us",
	"belgium":         "be",
	"france":          "fr",
	"spain":           "es",
	"italy":           "it",
	"poland":          "pl",
}

// aliasPatterns holds one whole-word pattern per alias, longest alias first so
// that "the netherlands" wins over "netherlands".
var aliasPatterns = buildAliasPatterns()

type aliasPattern struct {
	re   *regexp.Regexp
	code string
}

func buildAliasPatterns() []aliasPattern {
	names := make([]string, 0, len(countryAliases))
	for name := range countryAliases {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	patterns := make([]aliasPattern, 0, len(names))
	for _, name := range names {
		patterns = append(patterns, aliasPattern{
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
			code: countryAliases[name],
		})
	}
	return patterns
}

// Normalize lower-cases the value, drops smart quotes, transliterates accented
// letters, strips punctuation other than comma, period and hyphen, collapses
// whitespace and trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(value string) string {
	if value == "" {
		return ""
	}

	s := reSmartQuotes.ReplaceAllString(value, "")
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)
	s = reOddPunct.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeAndMapCountry normalizes the value and replaces whole-word country
// names with their short code, so "Rotterdam, Netherlands" compares equal to
// "rotterdam, nl".
func NormalizeAndMapCountry(value string) string {
	s := Normalize(value)
	if s == "" {
		return s
	}
	for _, p := range aliasPatterns {
		s = p.re.ReplaceAllString(s, p.code)
	}
	return s
}

// Tokenize splits a normalized value on whitespace, comma, period and hyphen.
func Tokenize(value string) []string {
	parts := reTokenSplit.Split(value, -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// CountryCode resolves a country name or two-letter code to an upper-case
// two-letter code. The alias table wins so rate sheet codes such as UK stay
// stable; anything else is looked up in the ISO 3166 list. Unknown names
// report false.
func CountryCode(name string) (string, bool) {
	n := Normalize(name)
	if n == "" {
		return "", false
	}
	if code, ok := countryAliases[n]; ok {
		return strings.ToUpper(code), true
	}
	if len(n) == 2 {
		return isoCode(n)
	}

	for _, candidate := range []string{strings.TrimSpace(name), n} {
		if c := countries.ByName(candidate); c.IsValid() {
			return c.Alpha2(), true
		}
	}
	return "", false
}

// IsCode reports whether value is written as a bare two-letter code.
func IsCode(value string) bool {
	n := Normalize(value)
	return len(n) == 2 && isLetters(n)
}

func isoCode(n string) (string, bool) {
	if !isLetters(n) {
		return "", false
	}
	code := strings.ToUpper(n)
	if aliasCodes[n] {
		return code, true
	}
	if c := countries.ByName(code); c.IsValid() && c.Alpha2() == code {
		return code, true
	}
	return "", false
}

// aliasCodes are the codes the alias table maps to.
var aliasCodes = func() map[string]bool {
	m := make(map[string]bool, len(countryAliases))
	for _, code := range countryAliases {
		m[code] = true
	}
	return m
}()

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
