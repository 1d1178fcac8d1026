package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

const (
	// DocketFamilyRadius bounds how far from the query's serial a
	// same-court, same-year decision can be and still backfill the
	// docket fast path as a near neighbor (spec §4.4.1: "±40 in the
	// serial").
	DocketFamilyRadius = 40

	// docketFastPathPoolMultiplier caps the docket fast path's result
	// count at this multiple of the requested page size (spec §4.4.1:
	// "Cap at 4×limit").
	docketFastPathPoolMultiplier = 4
)

// docketPattern1Parts / docketPattern2Parts capture the same two docket
// shapes as patterns.go's docketPattern1/2, but with groups so the fast
// path can recover the court prefix, serial, and year for docket-family
// backfill and separator-permutation matching.
var (
	docketPattern1Parts = regexp.MustCompile(`(?i)\b([A-Z0-9]{1,4})[._-](\d{1,6})[/_](\d{4})\b`)
	docketPattern2Parts = regexp.MustCompile(`(?i)\b([A-Z]{1,6})\.(\d{4})\.(\d{1,6})\b`)
)

// preferredCourtAliases maps a court-name fragment detectable in a query
// to the `court` column values it should bias ordering toward, grounded
// in spec §4.4.1's "BGer -> {bger, bge}" example.
var preferredCourtAliases = map[string][]string{
	"bger":                     {"bger", "bge"},
	"bge":                      {"bger", "bge"},
	"bundesgericht":            {"bger", "bge"},
	"tribunal federal":         {"bger", "bge"},
	"bvger":                    {"bvger"},
	"bundesverwaltungsgericht": {"bvger"},
	"tribunal administratif federal": {"bvger"},
	"bstger":                     {"bstger"},
	"bundesstrafgericht":         {"bstger"},
	"tribunal penal federal":     {"bstger"},
	"bpatger":                    {"bpatger"},
	"bundespatentgericht":        {"bpatger"},
}

// docketQuery holds everything the fast path derives from a
// docket-shaped query: the normalized exact-match key (covering every
// separator permutation, since normalization strips separators
// entirely) and, when the query parses into parts, the (court prefix,
// year, serial) triple used for docket-family backfill.
type docketQuery struct {
	normalized  string
	courtPrefix string
	year        string
	serial      int
	hasParts    bool
}

// parseDocketQuery extracts docket structure from query, trying both
// corpus docket shapes ("4A_123/2021" and "VD.2021.123"). If neither
// shape matches (e.g. a space-collapsed docket like "6B 1234 2025"),
// it falls back to normalizing the whole query for an exact-match-only
// attempt, with no family backfill.
func parseDocketQuery(query string) docketQuery {
	if m := docketPattern1Parts.FindStringSubmatch(query); m != nil {
		serial, _ := strconv.Atoi(m[2])
		return docketQuery{
			normalized:  store.NormalizeDocket(m[0]),
			courtPrefix: strings.ToUpper(m[1]),
			year:        m[3],
			serial:      serial,
			hasParts:    true,
		}
	}
	if m := docketPattern2Parts.FindStringSubmatch(query); m != nil {
		serial, _ := strconv.Atoi(m[3])
		return docketQuery{
			normalized:  store.NormalizeDocket(m[0]),
			courtPrefix: strings.ToUpper(m[1]),
			year:        m[2],
			serial:      serial,
			hasParts:    true,
		}
	}
	return docketQuery{normalized: store.NormalizeDocket(query)}
}

// detectPreferredCourts scans query text for a court-name fragment and
// returns the court values ordering should bias toward, or nil.
func detectPreferredCourts(query string) []string {
	lower := strings.ToLower(query)
	for alias, courts := range preferredCourtAliases {
		if strings.Contains(lower, alias) {
			return courts
		}
	}
	return nil
}

// biasPreferredCourts stable-sorts decisions so any from a preferred
// court lead, without disturbing relative order otherwise (the
// exact-rank/date ordering the store already applied).
func biasPreferredCourts(decisions []*store.Decision, preferred []string) {
	want := make(map[string]bool, len(preferred))
	for _, c := range preferred {
		want[strings.ToLower(c)] = true
	}
	sortStableByPreference(decisions, want)
}

func sortStableByPreference(decisions []*store.Decision, want map[string]bool) {
	n := len(decisions)
	preferred := make([]*store.Decision, 0, n)
	rest := make([]*store.Decision, 0, n)
	for _, d := range decisions {
		if want[strings.ToLower(d.Court)] {
			preferred = append(preferred, d)
		} else {
			rest = append(rest, d)
		}
	}
	copy(decisions, append(preferred, rest...))
}
