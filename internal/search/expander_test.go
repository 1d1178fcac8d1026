package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryExpander_Expand_BasicSynonyms(t *testing.T) {
	expander := NewQueryExpander()

	tests := []struct {
		query string
		terms []string
	}{
		{"asyl", []string{"asyl", "asile"}},
		{"wegweisung", []string{"wegweisung", "renvoi"}},
		{"fristlose kuendigung", []string{"fristlose", "kuendigung", "resiliation"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result := expander.Expand(tt.query)
			for _, term := range tt.terms {
				assert.Contains(t, result, term)
			}
		})
	}
}

func TestQueryExpander_Expand_PreservesOriginalTerms(t *testing.T) {
	expander := NewQueryExpander()
	result := expander.Expand("hundebiss haftpflicht")

	assert.Contains(t, result, "hundebiss")
	assert.Contains(t, result, "haftpflicht")
}

func TestQueryExpander_Expand_DeduplicatesTerms(t *testing.T) {
	expander := NewQueryExpander()
	// "kuendigung" expands to "resiliation", which is itself a query term.
	result := expander.Expand("kuendigung resiliation")

	count := 0
	for _, tok := range strings.Fields(result) {
		if tok == "resiliation" {
			count++
		}
	}
	assert.Equal(t, 1, count, "resiliation should appear exactly once")
}

func TestQueryExpander_Expand_EmptyQuery(t *testing.T) {
	expander := NewQueryExpander()
	assert.Equal(t, "", expander.Expand(""))
	assert.Equal(t, "   ", expander.Expand("   "), "no tokens found, original input passed through unchanged")
}

func TestQueryExpander_MaxExpansions(t *testing.T) {
	expander := NewQueryExpander(WithMaxExpansions(1))
	result := expander.Expand("asyl")
	terms := strings.Fields(result)
	assert.LessOrEqual(t, len(terms), 2, "should limit to original term plus 1 expansion")
}

func TestQueryExpander_CustomSynonyms(t *testing.T) {
	expander := NewQueryExpander(WithCustomSynonyms(map[string][]string{
		"mobbing": {"belaestigung"},
	}))
	result := expander.Expand("mobbing")
	assert.Contains(t, result, "belaestigung")
}

func TestQueryExpander_ExpandToTerms(t *testing.T) {
	expander := NewQueryExpander()
	terms := expander.ExpandToTerms("asyl wegweisung")

	assert.Contains(t, terms, "asyl")
	assert.Contains(t, terms, "wegweisung")
}

func TestGetSynonyms_KnownTerm(t *testing.T) {
	synonyms := GetSynonyms("asyl")
	assert.NotEmpty(t, synonyms)
	assert.Contains(t, synonyms, "asile")
}

func TestGetSynonyms_UnknownTerm(t *testing.T) {
	synonyms := GetSynonyms("xyzzyunknownterm")
	assert.Nil(t, synonyms)
}
