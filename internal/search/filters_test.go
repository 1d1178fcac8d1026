package search

import (
	"testing"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/stretchr/testify/assert"
)

func decision(id, court, canton, lang, date string) *store.Decision {
	return &store.Decision{
		DecisionID:   id,
		Court:        court,
		Canton:       canton,
		Language:     lang,
		DecisionDate: date,
	}
}

func TestCourtFilter(t *testing.T) {
	filter := courtFilter("BGer")

	assert.True(t, filter(&SearchResult{Decision: decision("1", "bger", "", "de", "")}))
	assert.True(t, filter(&SearchResult{Decision: decision("2", "BGER", "", "de", "")}))
	assert.False(t, filter(&SearchResult{Decision: decision("3", "bvger", "", "de", "")}))
	assert.False(t, filter(&SearchResult{Decision: nil}))
}

func TestCantonFilter(t *testing.T) {
	filter := cantonFilter("ZH")

	assert.True(t, filter(&SearchResult{Decision: decision("1", "", "zh", "de", "")}))
	assert.False(t, filter(&SearchResult{Decision: decision("2", "", "ge", "fr", "")}))
}

func TestLanguageFilter(t *testing.T) {
	filter := languageFilter("fr")

	assert.True(t, filter(&SearchResult{Decision: decision("1", "", "", "fr", "")}))
	assert.False(t, filter(&SearchResult{Decision: decision("2", "", "", "de", "")}))
	assert.False(t, filter(&SearchResult{Decision: nil}))
}

func TestDateRangeFilter(t *testing.T) {
	filter := dateRangeFilter("2020-01-01", "2020-12-31")

	assert.True(t, filter(&SearchResult{Decision: decision("1", "", "", "", "2020-06-15")}))
	assert.False(t, filter(&SearchResult{Decision: decision("2", "", "", "", "2019-12-31")}))
	assert.False(t, filter(&SearchResult{Decision: decision("3", "", "", "", "2021-01-01")}))
}

func TestDateRangeFilter_OpenEnded(t *testing.T) {
	fromOnly := dateRangeFilter("2020-01-01", "")
	assert.True(t, fromOnly(&SearchResult{Decision: decision("1", "", "", "", "2025-01-01")}))
	assert.False(t, fromOnly(&SearchResult{Decision: decision("2", "", "", "", "2019-01-01")}))

	toOnly := dateRangeFilter("", "2020-12-31")
	assert.True(t, toOnly(&SearchResult{Decision: decision("3", "", "", "", "2010-01-01")}))
	assert.False(t, toOnly(&SearchResult{Decision: decision("4", "", "", "", "2021-01-01")}))
}

func TestApplyFilters_CombinesWithANDLogic(t *testing.T) {
	results := []*SearchResult{
		{Decision: decision("1", "bger", "", "de", "2020-05-01")},
		{Decision: decision("2", "bger", "", "fr", "2020-05-01")},
		{Decision: decision("3", "bvger", "", "de", "2020-05-01")},
	}

	opts := SearchOptions{Court: "bger", Language: "de"}
	filtered := ApplyFilters(results, opts)

	assert.Len(t, filtered, 1)
	assert.Equal(t, "1", filtered[0].Decision.DecisionID)
}

func TestApplyFilters_NoFiltersReturnsAll(t *testing.T) {
	results := []*SearchResult{
		{Decision: decision("1", "bger", "", "de", "")},
		{Decision: decision("2", "bvger", "", "fr", "")},
	}

	filtered := ApplyFilters(results, SearchOptions{})
	assert.Len(t, filtered, 2)
}

func TestFilterByStatute(t *testing.T) {
	results := []*SearchResult{
		{Decision: decision("1", "", "", "", "")},
		{Decision: decision("2", "", "", "", "")},
	}

	matches := map[string]bool{"2": true}
	filtered := FilterByStatute(results, matches)

	assert.Len(t, filtered, 1)
	assert.Equal(t, "2", filtered[0].Decision.DecisionID)
}

func TestFilterByStatute_NoMatchesReturnsAll(t *testing.T) {
	results := []*SearchResult{
		{Decision: decision("1", "", "", "", "")},
	}
	filtered := FilterByStatute(results, nil)
	assert.Len(t, filtered, 1)
}

func TestValidateOptions(t *testing.T) {
	err := ValidateOptions(SearchOptions{Court: "bger"})
	assert.NoError(t, err)
}
