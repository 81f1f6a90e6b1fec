package interpret

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// ParseCompletion reads the first JSON object in an LLM reply and converts it
// into an interpretation of query. Fields that fail type checks are dropped.
func ParseCompletion(query, content string) (interpretation.Interpretation, error) {
	raw, ok := firstObject(content)
	if !ok {
		return interpretation.Interpretation{}, fmt.Errorf("parse completion: %w", domain.ErrMalformedCompletion)
	}

	f := fields(raw)
	productType := f.str("productType")
	brand := f.str("brand")
	character := f.str("character")

	in := interpretation.Interpretation{
		OriginalQuery:   strings.TrimSpace(query),
		IsSemanticQuery: true,
		MustHaveAll:     f.list("mustMatch"),
		MustHaveAny:     f.list("mustMatchAny"),
		RerankerContext: f.str("rerankerContext"),
		Attributes: &interpretation.Attributes{
			Brand:     interpretation.String(brand),
			Character: interpretation.String(character),
			Model:     interpretation.String(f.str("model")),
			Size:      interpretation.String(f.str("size")),
			Color:     interpretation.String(f.str("color")),
			Gender:    interpretation.String(strings.ToLower(f.str("gender"))),
			AgeRange:  interpretation.String(f.str("ageRange")),
			Material:  interpretation.String(f.str("material")),
			Style:     interpretation.String(f.str("style")),
		},
		Context: interpretation.Context{
			Recipient:         interpretation.String(f.str("recipient")),
			Occasion:          interpretation.String(f.str("occasion")),
			AgeRange:          interpretation.String(f.str("ageRange")),
			MinPrice:          f.price("minPrice"),
			MaxPrice:          f.price("maxPrice"),
			CategoryFilter:    interpretation.String(f.str("category")),
			ExcludeCategories: f.list("excludeCategories"),
		},
	}

	primary := strings.TrimSpace(strings.Join([]string{firstNonEmpty(brand, character), productType}, " "))
	if primary != "" {
		group := []string{primary}
		if productType != "" && productType != primary {
			group = append(group, productType)
		}
		in.SearchTerms = append(in.SearchTerms, group)
	}
	if kw := f.list("keywords"); len(kw) > 0 {
		in.SearchTerms = append(in.SearchTerms, kw)
	}

	in.Normalize()
	return in, nil
}

// firstObject returns the first balanced, decodable JSON object in s.
func firstObject(s string) (map[string]any, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		end := matchBrace(s, start)
		if end < 0 {
			return nil, false
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil {
			return obj, true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return nil, false
		}
		start += next + 1
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (f fields) list(key string) []string {
	switch v := f[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

func (f fields) price(key string) *float64 {
	switch v := f[key].(type) {
	case float64:
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return interpretation.Float(v)
	case string:
		p, ok := ParsePrice(v)
		if !ok {
			return nil
		}
		return interpretation.Float(p)
	default:
		return nil
	}
}

var currencyWords = strings.NewReplacer(
	"£", "", "$", "", "€", "", ",", "",
	"pounds", "", "pound", "", "quid", "",
	"dollars", "", "dollar", "", "euros", "", "euro", "",
	"gbp", "", "usd", "", "eur", "",
)

// ParsePrice reads a price that may carry currency symbols, thousands
// separators or currency words ("£1,299.99", "20 pounds").
func ParsePrice(s string) (float64, bool) {
	s = currencyWords.Replace(strings.ToLower(strings.TrimSpace(s)))
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
