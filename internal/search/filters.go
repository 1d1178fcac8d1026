package search

import "strings"

// FilterFunc checks if a search result matches filter criteria.
type FilterFunc func(result *SearchResult) bool

// ApplyFilters filters results based on search options. Filters use AND
// logic — results must match all specified criteria. Statute filtering
// (StatuteLawCode/StatuteArticle) requires a citation-graph lookup and is
// applied separately via FilterByStatute once the engine has resolved the
// matching decision set.
func ApplyFilters(results []*SearchResult, opts SearchOptions) []*SearchResult {
	filters := buildFilters(opts)
	if len(filters) == 0 {
		return results
	}

	filtered := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if matchesAllFilters(r, filters) {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

// buildFilters creates filter functions based on options.
func buildFilters(opts SearchOptions) []FilterFunc {
	var filters []FilterFunc

	if opts.Court != "" {
		filters = append(filters, courtFilter(opts.Court))
	}
	if opts.Canton != "" {
		filters = append(filters, cantonFilter(opts.Canton))
	}
	if opts.Language != "" {
		filters = append(filters, languageFilter(opts.Language))
	}
	if opts.DateFrom != "" || opts.DateTo != "" {
		filters = append(filters, dateRangeFilter(opts.DateFrom, opts.DateTo))
	}

	return filters
}

// matchesAllFilters checks if a result passes all filters (AND logic).
func matchesAllFilters(result *SearchResult, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(result) {
			return false
		}
	}
	return true
}

// courtFilter creates a filter for the deciding court, case-insensitive.
func courtFilter(court string) FilterFunc {
	court = strings.ToLower(court)
	return func(r *SearchResult) bool {
		if r.Decision == nil {
			return false
		}
		return strings.ToLower(r.Decision.Court) == court
	}
}

// cantonFilter creates a filter for the deciding canton, case-insensitive.
func cantonFilter(canton string) FilterFunc {
	canton = strings.ToLower(canton)
	return func(r *SearchResult) bool {
		if r.Decision == nil {
			return false
		}
		return strings.ToLower(r.Decision.Canton) == canton
	}
}

// languageFilter creates a filter for the decision's language.
func languageFilter(lang string) FilterFunc {
	lang = strings.ToLower(lang)
	return func(r *SearchResult) bool {
		if r.Decision == nil {
			return false
		}
		return strings.ToLower(r.Decision.Language) == lang
	}
}

// dateRangeFilter creates a filter matching DecisionDate (ISO yyyy-mm-dd)
// within the inclusive [from, to] range. Either bound may be empty.
// String comparison suffices for ISO 8601 dates.
func dateRangeFilter(from, to string) FilterFunc {
	return func(r *SearchResult) bool {
		if r.Decision == nil || r.Decision.DecisionDate == "" {
			return false
		}
		d := r.Decision.DecisionDate
		if from != "" && d < from {
			return false
		}
		if to != "" && d > to {
			return false
		}
		return true
	}
}

// FilterByStatute restricts results to decisions present in matches, the
// decision-ID set the engine resolved from GraphStore for
// opts.StatuteLawCode/opts.StatuteArticle.
func FilterByStatute(results []*SearchResult, matches map[string]bool) []*SearchResult {
	if len(matches) == 0 {
		return results
	}
	filtered := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if r.Decision == nil {
			continue
		}
		if matches[r.Decision.DecisionID] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ValidateOptions checks if search options are valid.
func ValidateOptions(opts SearchOptions) error {
	return nil
}
