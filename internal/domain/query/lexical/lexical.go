// Package lexical cleans raw shopping queries before interpretation.
package lexical

import (
	"regexp"
	"strings"
)

// Result is the outcome of Normalize.
type Result struct {
	Corrected    string
	WasCorrected bool
}

type typo struct {
	re   *regexp.Regexp
	with string
}

type synonym struct {
	from, to string
}

var typos = compileTypos(map[string]string{
	"leggo":      "lego",
	"legos":      "lego",
	"barbi":      "barbie",
	"pokeman":    "pokemon",
	"pokemen":    "pokemon",
	"headphons":  "headphones",
	"earphons":   "earphones",
	"playstaion": "playstation",
	"nintedo":    "nintendo",
	"nintendoo":  "nintendo",
	"dinosour":   "dinosaur",
	"dinasaur":   "dinosaur",
	"unicorm":    "unicorn",
	"hoodie's":   "hoodies",
	"jewelery":   "jewellery",
	"jewlery":    "jewellery",
	"neckless":   "necklace",
	"braclet":    "bracelet",
	"perfum":     "perfume",
	"chocolat":   "chocolate",
	"skateboad":  "skateboard",
	"scooterr":   "scooter",
	"trampolene": "trampoline",
})

// Applied in order by substring replacement.
var synonyms = []synonym{
	{"t shirts", "t-shirts"},
	{"t shirt", "t-shirt"},
	{"tshirts", "t-shirts"},
	{"tshirt", "t-shirt"},
	{"cell phone", "mobile phone"},
	{"sneakers", "trainers"},
	{"sneaker", "trainer"},
	{"sweaters", "jumpers"},
	{"sweater", "jumper"},
	{"diapers", "nappies"},
	{"diaper", "nappy"},
	{"strollers", "pushchairs"},
	{"stroller", "pushchair"},
	{"pacifier", "dummy"},
	{"flashlight", "torch"},
	{"color", "colour"},
	{"cookies", "biscuits"},
}

var mediaSuffixes = map[string]struct{}{
	"movie":  {},
	"movies": {},
	"film":   {},
	"films":  {},
}

func compileTypos(m map[string]string) []typo {
	out := make([]typo, 0, len(m))
	for from, to := range m {
		out = append(out, typo{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(from) + `\b`), with: to})
	}
	return out
}

// Clean lowercases, trims and collapses whitespace.
func Clean(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Normalize runs typo correction, phrase synonyms and media-suffix
// stripping, in that order. Case and whitespace cleanup alone does not count
// as a correction.
func Normalize(query string) Result {
	base := Clean(query)
	out := CorrectTypos(base)
	out = ApplySynonyms(out)
	out = StripMediaSuffix(out)
	return Result{Corrected: out, WasCorrected: out != base}
}

// CorrectTypos replaces known misspellings on word boundaries only.
func CorrectTypos(s string) string {
	for _, t := range typos {
		s = t.re.ReplaceAllLiteralString(s, t.with)
	}
	return s
}

// ApplySynonyms rewrites regional and alternate product terms.
func ApplySynonyms(s string) string {
	for _, syn := range synonyms {
		s = strings.ReplaceAll(s, syn.from, syn.to)
	}
	return s
}

// StripMediaSuffix drops a trailing "movie"/"film" word from multi-word queries.
func StripMediaSuffix(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	if _, ok := mediaSuffixes[tokens[len(tokens)-1]]; !ok {
		return s
	}
	return strings.Join(tokens[:len(tokens)-1], " ")
}
