package search

import (
	"testing"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/stretchr/testify/assert"
)

func newCandidate(id, docket, title, regeste, fullText, court, lang string) *SearchResult {
	return &SearchResult{
		Decision: &store.Decision{
			DecisionID:   id,
			DocketNumber: docket,
			Title:        title,
			Regeste:      regeste,
			FullText:     fullText,
			Court:        court,
			Language:     lang,
		},
	}
}

func TestRerankSignals_DocketExactHit(t *testing.T) {
	candidates := []*SearchResult{
		newCandidate("1", "4A_123/2021", "Mietrecht", "", "", "bger", "de"),
		newCandidate("2", "4A_999/2019", "Mietrecht fristlose Kuendigung", "", "", "bger", "de"),
	}

	results := RerankSignals("4A_123/2021", candidates, SearchOptions{}, nil)

	assert.Equal(t, "1", results[0].Decision.DecisionID)
	assert.Greater(t, results[0].Explain.DocketExactHit, 0.0)
}

func TestRerankSignals_TitleAndRegesteCoverage(t *testing.T) {
	candidates := []*SearchResult{
		newCandidate("1", "", "Fristlose Kuendigung Mietvertrag", "Der Mieter kuendigt fristlos", "", "bger", "de"),
		newCandidate("2", "", "Steuerrecht", "Unrelated content", "", "bger", "de"),
	}

	results := RerankSignals("fristlose kuendigung mietvertrag", candidates, SearchOptions{}, nil)

	assert.Equal(t, "1", results[0].Decision.DecisionID)
	assert.Greater(t, results[0].Explain.TitleCoverage, 0.0)
}

func TestRerankSignals_PhraseHit(t *testing.T) {
	candidates := []*SearchResult{
		newCandidate("1", "", "", "", "Die fristlose kuendigung des mietvertrags ist gerechtfertigt", "bger", "de"),
		newCandidate("2", "", "", "", "kuendigung und mietvertrag sind getrennt erwaehnt fristlos", "bger", "de"),
	}

	results := RerankSignals("fristlose kuendigung des mietvertrags", candidates, SearchOptions{}, nil)

	assert.Equal(t, "1", results[0].Decision.DecisionID)
	assert.Greater(t, results[0].Explain.PhraseHit, 0.0)
}

func TestRerankSignals_AuthoritySignalBoostsHighCourt(t *testing.T) {
	bger := newCandidate("1", "", "Mietrecht", "", "", "bger", "de")
	bger.GraphSignals = GraphSignalSummary{IncomingCitations: 10}

	cantonal := newCandidate("2", "", "Mietrecht", "", "", "zhob", "de")
	cantonal.GraphSignals = GraphSignalSummary{IncomingCitations: 10}

	results := RerankSignals("mietrecht", []*SearchResult{cantonal, bger}, SearchOptions{}, nil)

	assert.Greater(t, results[0].Explain.AuthoritySignal, results[1].Explain.AuthoritySignal)
}

func TestRerankSignals_StatuteSignalOnlyWhenFiltering(t *testing.T) {
	c := newCandidate("1", "", "", "", "", "bger", "de")
	c.GraphSignals = GraphSignalSummary{StatuteMentions: 3}

	withFilter := RerankSignals("art 271 or", []*SearchResult{c}, SearchOptions{StatuteLawCode: "OR"}, nil)
	assert.Greater(t, withFilter[0].Explain.StatuteSignal, 0.0)

	c2 := newCandidate("1", "", "", "", "", "bger", "de")
	c2.GraphSignals = GraphSignalSummary{StatuteMentions: 3}
	withoutFilter := RerankSignals("art 271 or", []*SearchResult{c2}, SearchOptions{}, nil)
	assert.Equal(t, 0.0, withoutFilter[0].Explain.StatuteSignal)
}

func TestRerankSignals_LanguageSignal(t *testing.T) {
	fr := newCandidate("1", "", "", "", "", "bger", "fr")
	de := newCandidate("2", "", "", "", "", "bger", "de")

	results := RerankSignals("comment fonctionne le recours", []*SearchResult{de, fr}, SearchOptions{}, nil)

	var frResult, deResult *SearchResult
	for _, r := range results {
		if r.Decision.DecisionID == "1" {
			frResult = r
		} else {
			deResult = r
		}
	}
	assert.Greater(t, frResult.Explain.LanguageSignal, deResult.Explain.LanguageSignal)
}

func TestRerankSignals_SortOverrideDateDesc(t *testing.T) {
	older := newCandidate("1", "", "", "", "", "bger", "de")
	older.Decision.DecisionDate = "2019-01-01"
	newer := newCandidate("2", "", "", "", "", "bger", "de")
	newer.Decision.DecisionDate = "2022-01-01"

	results := RerankSignals("mietrecht", []*SearchResult{older, newer}, SearchOptions{Sort: "date_desc"}, nil)

	assert.Equal(t, "2", results[0].Decision.DecisionID)
}

func TestRerankSignals_StrategyHitsBoostsConsensus(t *testing.T) {
	a := newCandidate("1", "", "Mietrecht", "", "", "bger", "de")
	b := newCandidate("2", "", "Mietrecht", "", "", "bger", "de")

	hits := map[string]int{"1": 3, "2": 1}
	results := RerankSignals("mietrecht", []*SearchResult{a, b}, SearchOptions{}, hits)

	assert.Equal(t, "1", results[0].Decision.DecisionID)
}

func TestApplyCrossEncoderBoost(t *testing.T) {
	a := newCandidate("1", "", "", "", "", "bger", "de")
	a.Score = 1.0
	b := newCandidate("2", "", "", "", "", "bger", "de")
	b.Score = 1.1

	results := []*SearchResult{b, a}
	ApplyCrossEncoderBoost(results, map[string]float64{"1": 1.0}, 0.5)

	assert.Equal(t, "1", results[0].Decision.DecisionID)
}

func TestBuildSnippet_SelectsDensestWindow(t *testing.T) {
	text := "Lorem ipsum dolor sit amet. " +
		"Die fristlose kuendigung des mietvertrags durch den vermieter war gerechtfertigt. " +
		"Consectetur adipiscing elit sed do eiusmod."

	snippet, highlights := BuildSnippet(text, []string{"fristlose", "kuendigung", "mietvertrags"}, 120)

	assert.Contains(t, snippet, "fristlose")
	assert.NotEmpty(t, highlights)
}

func TestBuildSnippet_EmptyText(t *testing.T) {
	snippet, highlights := BuildSnippet("", []string{"term"}, 100)
	assert.Equal(t, "", snippet)
	assert.Nil(t, highlights)
}

func TestRerankSignals_EmptyCandidates(t *testing.T) {
	results := RerankSignals("query", nil, SearchOptions{}, nil)
	assert.Empty(t, results)
}

func TestRerankSignals_NilDecisionHandledGracefully(t *testing.T) {
	results := RerankSignals("query", []*SearchResult{{Decision: nil}}, SearchOptions{}, nil)
	assert.Len(t, results, 1)
	assert.NotNil(t, results[0].Explain)
}
