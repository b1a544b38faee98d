package store

import (
	"strings"
	"unicode"
)

// DefaultTokenMapField is the token map field used by CreateTokenMapQueries.
const DefaultTokenMapField = "tokenMap"

// Tokenize returns the distinct 1- and 2-character N-grams of text, after
// removing whitespace, the characters ~ * [ ], the field path separator '.'
// and any character outside the Basic Multilingual Plane. The result is in first-seen order.
func Tokenize(text string) []string {
	runes := searchable(text)
	seen := make(map[string]struct{}, len(runes)*2)
	tokens := make([]string, 0, len(runes)*2)
	add := func(tok string) {
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	for _, r := range runes {
		add(string(r))
	}
	for i := 0; i+1 < len(runes); i++ {
		add(string(runes[i : i+2]))
	}
	return tokens
}

// TokenMap returns the token set of text in its stored form.
func TokenMap(text string) map[string]bool {
	tokens := Tokenize(text)
	m := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		m[tok] = true
	}
	return m
}

// CreateTokenMapQueries returns one equality predicate per token of text on
// DefaultTokenMapField. A Store configured with another TokenMapField needs
// (*Store).CreateTokenMapQueries instead.
//
// It fails with ErrInvalidArgument if text is blank. Text made only of
// unindexed characters, such as "~*" or emoji, yields no predicates.
func CreateTokenMapQueries(text string) ([]Predicate, error) {
	return CreateTokenMapQueriesFor(DefaultTokenMapField, text)
}

// CreateTokenMapQueries is the package-level CreateTokenMapQueries on the
// store's configured token map field.
func (s *Store) CreateTokenMapQueries(text string) ([]Predicate, error) {
	return CreateTokenMapQueriesFor(s.config.TokenMapField, text)
}

// CreateTokenMapQueriesFor is CreateTokenMapQueries on a custom field.
func CreateTokenMapQueriesFor(field, text string) ([]Predicate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalidArg("search text is empty")
	}
	tokens := Tokenize(text)
	preds := make([]Predicate, 0, len(tokens))
	for _, tok := range tokens {
		preds = append(preds, Predicate{Field: field + "." + tok, Op: OpEqual, Value: true})
	}
	return preds, nil
}

func searchable(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if unicode.IsSpace(r) || r > 0xFFFF || r == unicode.ReplacementChar {
			continue
		}
		switch r {
		case '~', '*', '[', ']', '.':
			continue
		}
		out = append(out, r)
	}
	return out
}
