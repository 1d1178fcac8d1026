package store

import (
	"regexp"
	"strings"
)

// legalTokenRegex matches the token shapes that appear in Swiss legal
// text: ordinary words, and docket-like fragments that mix letters,
// digits, underscores and slashes (e.g. "4A_123/2021", "1C.456/2020").
var legalTokenRegex = regexp.MustCompile(`[\p{L}\p{N}_./]+`)

// umlautFolds maps German/French/Italian diacritics to their ASCII-ish
// base form, mirroring the original retrieval implementation's
// normalization so that "Gerät" and "Geraet"-style variants collapse to
// the same token during lexical matching.
var umlautFolds = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	'Ä': "Ae", 'Ö': "Oe", 'Ü': "Ue",
	'é': "e", 'è': "e", 'ê': "e", 'à': "a", 'â': "a", 'ô': "o", 'î': "i", 'ç': "c",
}

// TokenizeLegalText splits Swiss legal text into lowercase tokens,
// preserving docket-shaped fragments (digits/letters/slashes/dots) as
// single tokens rather than shredding them the way a code tokenizer's
// camelCase/snake_case split would.
func TokenizeLegalText(text string) []string {
	words := legalTokenRegex.FindAllString(text, -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(foldDiacritics(w))
		if len([]rune(lower)) >= 2 {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// foldDiacritics collapses umlaut/accent variants to their ASCII-ish base.
func foldDiacritics(s string) string {
	var b strings.Builder
	for _, r := range s {
		if folded, ok := umlautFolds[r]; ok {
			b.WriteString(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, isStop := stopWords[lower]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
