package ingest

import (
	"regexp"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// Statute/citation patterns mirror the query-side patterns in
// internal/search/patterns.go, but capture groups instead of just
// matching, since here the goal is building the citation graph rather
// than classifying a query.
var (
	// "Art. 271 OR", "Artikel 8 Abs. 2 ZGB", "art. 41bis al. 1 CO".
	statuteRefPattern = regexp.MustCompile(
		`(?i)\b(?:Art\.?|Artikel|art\.?)\s*(\d+)\s*((?:bis|ter|quater|quinquies)\b)?\s*` +
			`(?:(?:Abs\.?|Absatz|al\.?|cpv\.?|co\.?|alin\.?)\s*(\d+))?\s*([A-Z]{2,6})\b`,
	)

	// "4A_123/2021", "1C.456/2020", "VD.2021.123".
	docketRefPattern1 = regexp.MustCompile(`\b([A-Z0-9]{1,4}[._-]\d{1,6}[/_]\d{4})\b`)
	docketRefPattern2 = regexp.MustCompile(`\b([A-Z]{1,6}\.\d{4}\.\d{1,6})\b`)
)

// statuteDenylist rejects law-code false positives the pattern's
// catch-all `[A-Z]{2,6}` tail can pick up — paragraph/markers that
// happen to look like a code when the real law code was omitted or
// abbreviated differently in the source text.
var statuteDenylist = map[string]bool{
	"ABS": true, "AL": true, "PARA": true, "BIS": true, "TER": true,
	"FF": true, "AS": true, "SR": true,
}

// normalizeDocket strips everything but letters and digits and
// lowercases the result, so "4A_123/2021" and "4a-123/2021" collapse
// to the same key (spec.md §4.2 normalize_docket).
func normalizeDocket(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// ExtractStatuteReferences scans a decision's regeste and full text for
// Art./Artikel statute citations and returns one StatuteReference per
// distinct (law_code, article, paragraph) triple, with Mentions set to
// the occurrence count.
func ExtractStatuteReferences(d *store.Decision) []*store.StatuteReference {
	type key struct{ lawCode, article, paragraph string }
	counts := make(map[key]int)

	for _, text := range []string{d.Regeste, d.FullText} {
		for _, m := range statuteRefPattern.FindAllStringSubmatch(text, -1) {
			article := m[1] + strings.ToLower(m[2])
			paragraph := m[3]
			lawCode := strings.ToUpper(m[4])
			if statuteDenylist[lawCode] {
				continue
			}
			counts[key{lawCode, article, paragraph}]++
		}
	}

	refs := make([]*store.StatuteReference, 0, len(counts))
	for k, n := range counts {
		refs = append(refs, &store.StatuteReference{
			DecisionID: d.DecisionID,
			LawCode:    k.lawCode,
			Article:    k.article,
			Paragraph:  k.paragraph,
			Mentions:   n,
		})
	}
	return refs
}

// ExtractCitations scans a decision's full text for docket-number
// mentions, resolves each against docketIndex (built by
// BuildDocketIndex over the same export), and returns one
// CitationReference per distinct decision the text cites.
//
// BGE citations (published leading-case references like "BGE 145 III
// 72") are not resolved here: the published collection volume/page
// don't appear verbatim in our docket numbers, so turning one into a
// DecisionID needs a separate BGE-to-docket lookup table this package
// does not build.
func ExtractCitations(d *store.Decision, docketIndex map[string]string) []*store.CitationReference {
	mentionCounts := make(map[string]int)

	for _, pattern := range []*regexp.Regexp{docketRefPattern1, docketRefPattern2} {
		for _, m := range pattern.FindAllStringSubmatch(d.FullText, -1) {
			norm := normalizeDocket(m[1])
			if norm == "" || norm == normalizeDocket(d.DocketNumber) {
				continue // skip self-citations (the decision re-stating its own docket)
			}
			targetID, ok := docketIndex[norm]
			if !ok || targetID == d.DecisionID {
				continue
			}
			mentionCounts[targetID]++
		}
	}

	refs := make([]*store.CitationReference, 0, len(mentionCounts))
	for targetID, n := range mentionCounts {
		refs = append(refs, &store.CitationReference{
			SourceDecisionID: d.DecisionID,
			TargetDecisionID: targetID,
			Confidence:       citationConfidence(n),
		})
	}
	return refs
}

// citationConfidence maps an in-text mention count to a 0..1
// confidence score: a single passing mention of a docket number is
// weaker evidence of a substantive citation than several.
func citationConfidence(mentions int) float64 {
	switch {
	case mentions >= 3:
		return 0.95
	case mentions == 2:
		return 0.8
	default:
		return 0.6
	}
}
