package mcp

import (
	"fmt"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/search"
)

// FormatSearchResults formats hybrid search results as markdown.
func FormatSearchResults(query string, results []*search.SearchResult) string {
	valid := filterValidResults(results)

	if len(valid) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for %q\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(valid)))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range valid {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// filterValidResults removes results with no resolved decision.
func filterValidResults(results []*search.SearchResult) []*search.SearchResult {
	valid := make([]*search.SearchResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Decision != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

// formatResult formats a single ranked decision.
func formatResult(sb *strings.Builder, num int, r *search.SearchResult) {
	if r.Decision == nil {
		return
	}
	d := r.Decision

	fmt.Fprintf(sb, "### %d. %s %s (%s, score: %.3f)\n",
		num, d.Court, d.DocketNumber, d.Language, r.Score)

	if d.Title != "" {
		fmt.Fprintf(sb, "**%s**\n", d.Title)
	}
	if d.DecisionDate != "" {
		fmt.Fprintf(sb, "Decided: %s\n", d.DecisionDate)
	}

	if r.Snippet != "" {
		fmt.Fprintf(sb, "\n> %s\n", r.Snippet)
	}

	sb.WriteString("\n")
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// toDecisionOutput converts a store decision to its MCP output shape.
func toDecisionOutput(d *search.SearchResult) DecisionOutput {
	if d == nil || d.Decision == nil {
		return DecisionOutput{}
	}
	dec := d.Decision
	return DecisionOutput{
		DecisionID:   dec.DecisionID,
		Court:        dec.Court,
		Canton:       dec.Canton,
		DocketNumber: dec.DocketNumber,
		Language:     dec.Language,
		Title:        dec.Title,
		Regeste:      dec.Regeste,
		DecisionDate: dec.DecisionDate,
		URL:          dec.URL,
	}
}

// ToSearchResultOutput converts a search result to the MCP output format.
func ToSearchResultOutput(r *search.SearchResult) SearchResultOutput {
	if r == nil || r.Decision == nil {
		return SearchResultOutput{}
	}

	return SearchResultOutput{
		Decision:     toDecisionOutput(r),
		Score:        r.Score,
		BM25Score:    r.BM25Score,
		VectorScore:  r.VecScore,
		SparseScore:  r.SparseScore,
		Snippet:      r.Snippet,
		MatchedTerms: r.MatchedTerms,
		InBothLists:  r.InBothLists,
		MatchReason:  generateMatchReason(r),
	}
}

// generateMatchReason creates a human-readable explanation of why a result matched.
func generateMatchReason(r *search.SearchResult) string {
	if r == nil || r.Decision == nil {
		return ""
	}

	var parts []string

	if len(r.MatchedTerms) > 0 {
		terms := r.MatchedTerms
		if len(terms) > 5 {
			terms = terms[:5]
		}
		parts = append(parts, fmt.Sprintf("matched: %s", strings.Join(terms, ", ")))
	}

	if r.InBothLists {
		parts = append(parts, "found in both keyword and semantic search")
	}

	if r.GraphSignals.IncomingCitations > 0 {
		parts = append(parts, "cited by other decisions")
	}
	if r.GraphSignals.StatuteMentions > 0 {
		parts = append(parts, "cites the requested statute")
	}

	if len(parts) == 0 {
		return "matched content"
	}

	return strings.Join(parts, "; ")
}
