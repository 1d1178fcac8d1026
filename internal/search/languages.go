package search

import "strings"

// languageHintTerms are common function/content words whose presence is a
// strong signal a query is written in that language, grounded in
// original_source's LANGUAGE_HINT_TERMS.
var languageHintTerms = map[string][]string{
	"de": {
		"der", "die", "das", "und", "oder", "nicht", "kein", "eine", "einem", "einer",
		"welche", "welcher", "wie", "warum", "wann", "wurde", "wird", "gericht",
		"urteil", "beschwerde", "kanton", "bundesgericht", "entscheid",
	},
	"fr": {
		"le", "la", "les", "et", "ou", "pas", "une", "un", "des", "quel", "quelle",
		"comment", "pourquoi", "quand", "tribunal", "arret", "recours", "canton",
		"jugement", "decision",
	},
	"it": {
		"il", "lo", "la", "gli", "le", "e", "o", "non", "un", "una", "quale",
		"quali", "come", "perche", "quando", "tribunale", "sentenza", "ricorso",
		"cantone", "decisione",
	},
}

// languageSuffixHints maps word-ending patterns to the language they
// typically belong to, used as a secondary signal when hint words are
// absent (e.g. a query consisting solely of legal-doctrine nouns).
var languageSuffixHints = []struct {
	suffix string
	lang   string
}{
	{"tion", "fr"},
	{"mente", "it"},
	{"zione", "it"},
	{"ung", "de"},
	{"keit", "de"},
	{"heit", "de"},
}

// DetectQueryLanguages returns the languages a query likely mixes,
// ranked by confidence, grounded in original_source's
// _detect_query_languages. It never returns an empty slice for
// non-empty input — falls back to []string{"de"} (the majority
// language in the corpus) when no signal fires.
func DetectQueryLanguages(query string) []string {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}

	scores := map[string]int{}
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok == "" {
			continue
		}
		for lang, hints := range languageHintTerms {
			for _, hint := range hints {
				if tok == hint {
					scores[lang]++
				}
			}
		}
		for _, sh := range languageSuffixHints {
			if strings.HasSuffix(tok, sh.suffix) && len(tok) > len(sh.suffix)+2 {
				scores[sh.lang]++
			}
		}
	}

	if len(scores) == 0 {
		return []string{"de"}
	}

	langs := make([]string, 0, len(scores))
	for lang := range scores {
		langs = append(langs, lang)
	}
	// Stable order: highest score first, ties broken alphabetically.
	for i := 1; i < len(langs); i++ {
		for j := i; j > 0; j-- {
			a, b := langs[j-1], langs[j]
			if scores[a] < scores[b] || (scores[a] == scores[b] && a > b) {
				langs[j-1], langs[j] = langs[j], langs[j-1]
			} else {
				break
			}
		}
	}
	return langs
}

// PrimaryQueryLanguage returns the single highest-confidence language for
// a query, or "" if none could be detected.
func PrimaryQueryLanguage(query string) string {
	langs := DetectQueryLanguages(query)
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
